package remote

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"orcid/internal/lib/logger/slogdiscard"
	"orcid/internal/orcid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPayload = `<?xml version="1.0" encoding="UTF-8"?><orcid-message/>`

type fakeORCID struct {
	t           *testing.T
	tokenStatus int
	status      int
	location    string
	body        string

	gotPayload string
	gotAuth    string
	calls      int
}

func (f *fakeORCID) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(f.t, r.ParseForm())
		assert.Equal(f.t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(f.t, CreateScope, r.PostForm.Get("scope"))
		assert.Equal(f.t, "APP-1", r.PostForm.Get("client_id"))
		assert.Equal(f.t, "s3cret", r.PostForm.Get("client_secret"))

		if f.tokenStatus != 0 {
			w.WriteHeader(f.tokenStatus)
			_, _ = io.WriteString(w, `{"error":"invalid_client"}`)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"tok-123","token_type":"bearer","expires_in":3600,"scope":"/orcid-profile/create"}`)
	})

	mux.HandleFunc("/v1.1/orcid-profile", func(w http.ResponseWriter, r *http.Request) {
		f.calls++
		assert.Equal(f.t, http.MethodPost, r.Method)
		assert.Equal(f.t, "application/vdn.orcid+xml", r.Header.Get("Content-Type"))
		assert.Equal(f.t, "application/xml", r.Header.Get("Accept"))

		body, _ := io.ReadAll(r.Body)
		f.gotPayload = string(body)
		f.gotAuth = r.Header.Get("Authorization")

		if f.location != "" {
			w.Header().Set("Location", f.location)
		}
		w.WriteHeader(f.status)
		_, _ = io.WriteString(w, f.body)
	})

	return mux
}

func newService(t *testing.T, site, tokenURL string, store orcid.MapStore) *ProfileCreationService {
	t.Helper()

	if store == nil {
		store = orcid.MapStore{
			orcid.SettingAppID:     "APP-1",
			orcid.SettingAppSecret: "s3cret",
			orcid.SettingSiteURL:   site,
			orcid.SettingTokenURL:  tokenURL,
		}
	}

	svc, err := NewProfileCreationService(slogdiscard.NewDiscardLogger(), orcid.NewProvider(store), nil)
	require.NoError(t, err)
	return svc
}

func TestSubmit_Success(t *testing.T) {
	fake := &fakeORCID{t: t, status: http.StatusCreated}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()
	fake.location = srv.URL + "/0000-0001-2345-6789/orcid-profile"

	svc := newService(t, srv.URL, srv.URL+"/oauth/token", nil)

	id, err := svc.Submit(context.Background(), testPayload)
	require.NoError(t, err)

	assert.Equal(t, "0000-0001-2345-6789", id)
	assert.Equal(t, testPayload, fake.gotPayload)
	assert.Equal(t, "Bearer tok-123", fake.gotAuth)
	assert.Equal(t, 1, fake.calls)
}

func TestSubmit_RejectedByORCID(t *testing.T) {
	fake := &fakeORCID{t: t, status: http.StatusBadRequest, body: "<error-desc>invalid email</error-desc>"}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	svc := newService(t, srv.URL, srv.URL+"/oauth/token", nil)

	id, err := svc.Submit(context.Background(), testPayload)
	assert.Empty(t, id)

	var remoteErr *orcid.RemoteServiceError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, http.StatusBadRequest, remoteErr.StatusCode())
	assert.Equal(t, srv.URL+"/v1.1/orcid-profile", remoteErr.Options.RequestPath)
	assert.Contains(t, remoteErr.Error(), "<error-desc>invalid email</error-desc>")
	assert.Contains(t, remoteErr.Error(), testPayload)
	assert.Contains(t, remoteErr.Error(), `access_token:`+"\n\t"+`"tok-123"`)
	assert.Equal(t, 1, fake.calls, "no retries")
}

func TestSubmit_MissingLocation(t *testing.T) {
	fake := &fakeORCID{t: t, status: http.StatusCreated}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	svc := newService(t, srv.URL, srv.URL+"/oauth/token", nil)

	_, err := svc.Submit(context.Background(), testPayload)

	var remoteErr *orcid.RemoteServiceError
	require.True(t, errors.As(err, &remoteErr))
	assert.ErrorIs(t, err, ErrMissingLocation)
	assert.Equal(t, http.StatusCreated, remoteErr.StatusCode())
}

func TestSubmit_TokenRejected(t *testing.T) {
	fake := &fakeORCID{t: t, tokenStatus: http.StatusUnauthorized}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	svc := newService(t, srv.URL, srv.URL+"/oauth/token", nil)

	_, err := svc.Submit(context.Background(), testPayload)

	var remoteErr *orcid.RemoteServiceError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, http.StatusUnauthorized, remoteErr.StatusCode())
	assert.Equal(t, srv.URL+"/oauth/token", remoteErr.Options.RequestPath)
	assert.Contains(t, remoteErr.Error(), "invalid_client")
	assert.Zero(t, fake.calls)
}

func TestSubmit_TransportFailure(t *testing.T) {
	fake := &fakeORCID{t: t, status: http.StatusCreated}
	srv := httptest.NewServer(fake.handler())
	tokenURL := srv.URL + "/oauth/token"

	// The API site points at a closed listener.
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()
	defer srv.Close()

	svc := newService(t, deadURL, tokenURL, nil)

	_, err := svc.Submit(context.Background(), testPayload)

	var remoteErr *orcid.RemoteServiceError
	require.True(t, errors.As(err, &remoteErr))
	assert.Zero(t, remoteErr.StatusCode())
	assert.NotNil(t, remoteErr.Options.Cause)
}

func TestNewProfileCreationService_MissingSetting(t *testing.T) {
	_, err := NewProfileCreationService(slogdiscard.NewDiscardLogger(), orcid.NewProvider(orcid.MapStore{
		orcid.SettingAppID: "APP-1",
	}), nil)

	var cfgErr *orcid.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, orcid.SettingAppSecret, cfgErr.Key)
}

func TestProfileIDFromLocation(t *testing.T) {
	tests := []struct {
		name     string
		location string
		want     string
		wantErr  bool
	}{
		{"api location", "https://api.sandbox.orcid.org/0000-0001-2345-6789/orcid-profile", "0000-0001-2345-6789", false},
		{"checksum X", "https://api.orcid.org/v1.1/0000-0002-1694-233X/orcid-profile", "0000-0002-1694-233X", false},
		{"relative", "/0000-0003-1415-9265/orcid-profile", "0000-0003-1415-9265", false},
		{"empty", "", "", true},
		{"no id", "https://api.orcid.org/orcid-profile", "", true},
		{"malformed id", "https://api.orcid.org/0000-0001-2345/orcid-profile", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ProfileIDFromLocation(tt.location)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMissingLocation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
