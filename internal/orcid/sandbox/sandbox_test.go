package sandbox

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

const sessionCookie = "XSRF-SESSION"

type fakeSandbox struct {
	t            *testing.T
	loginSuccess bool
	approvalCode string

	authorizeQuery map[string]string
	approved       bool
}

func (f *fakeSandbox) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/signin/auth.json", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, http.MethodPost, r.Method)
		assert.NoError(f.t, r.ParseForm())
		assert.Equal(f.t, "0000-0002-0000-0001", r.PostForm.Get("userId"))
		assert.Equal(f.t, "pa55word", r.PostForm.Get("password"))

		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "s1", Path: "/"})
		w.Header().Set("Content-Type", "application/json")
		if f.loginSuccess {
			_, _ = io.WriteString(w, `{"success":true,"url":"https://sandbox.orcid.org/my-orcid"}`)
			return
		}
		_, _ = io.WriteString(w, `{"success":false}`)
	})

	mux.HandleFunc("/oauth/authorize", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie(sessionCookie); err != nil {
			http.Error(w, "not signed in", http.StatusForbidden)
			return
		}

		switch r.Method {
		case http.MethodGet:
			q := r.URL.Query()
			f.authorizeQuery = map[string]string{
				"client_id":     q.Get("client_id"),
				"response_type": q.Get("response_type"),
				"scope":         q.Get("scope"),
				"redirect_uri":  q.Get("redirect_uri"),
			}
			_, _ = io.WriteString(w, "<html>authorize</html>")
		case http.MethodPost:
			assert.NoError(f.t, r.ParseForm())
			f.approved = r.PostForm.Get("user_oauth_approval") == "true"
			target := DefaultRedirectURI
			if f.approvalCode != "" {
				target += "?code=" + f.approvalCode
			}
			http.Redirect(w, r, target, http.StatusFound)
		}
	})

	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(f.t, r.ParseForm())
		assert.Equal(f.t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(f.t, f.approvalCode, r.PostForm.Get("code"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"user-token","token_type":"bearer","refresh_token":"r1","expires_in":3600,"orcid":"0000-0002-0000-0001"}`)
	})

	return mux
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	c, err := New(Config{
		ClientID:     "APP-1",
		ClientSecret: "s3cret",
		LoginURL:     baseURL + "/signin/auth.json",
		AuthorizeURL: baseURL + "/oauth/authorize",
		TokenURL:     baseURL + "/oauth/token",
		Scope:        "/authenticate",
	}, slogdiscard.NewDiscardLogger())
	require.NoError(t, err)
	return c
}

var testCreds = Credentials{OrcidProfileID: "0000-0002-0000-0001", Password: "pa55word"}

func TestRequestAuthorizationCode(t *testing.T) {
	fake := &fakeSandbox{t: t, loginSuccess: true, approvalCode: "Xy12Ab"}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	code, err := c.RequestAuthorizationCode(context.Background(), testCreds)
	require.NoError(t, err)

	assert.Equal(t, "Xy12Ab", code)
	assert.True(t, fake.approved)
	assert.Equal(t, map[string]string{
		"client_id":     "APP-1",
		"response_type": "code",
		"scope":         "/authenticate",
		"redirect_uri":  DefaultRedirectURI,
	}, fake.authorizeQuery)

	token, err := c.Exchange(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, "user-token", token.AccessToken)
	assert.Equal(t, "0000-0002-0000-0001", token.Extra("orcid"))
}

func TestRequestAuthorizationCode_LoginFailed(t *testing.T) {
	fake := &fakeSandbox{t: t, loginSuccess: false, approvalCode: "Xy12Ab"}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	code, err := newTestClient(t, srv.URL).RequestAuthorizationCode(context.Background(), testCreds)
	assert.Empty(t, code)
	assert.ErrorIs(t, err, ErrLoginFailed)
	assert.Nil(t, fake.authorizeQuery)
}

func TestRequestAuthorizationCode_NoCodeInRedirect(t *testing.T) {
	fake := &fakeSandbox{t: t, loginSuccess: true}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).RequestAuthorizationCode(context.Background(), testCreds)
	assert.ErrorIs(t, err, ErrNoAuthorization)
}

func TestConfigFromProvider(t *testing.T) {
	store := orcid.MapStore{
		orcid.SettingAppID:               "APP-1",
		orcid.SettingAppSecret:           "s3cret",
		orcid.SettingSigninViaJSONURL:    "https://sandbox.orcid.org/signin/auth.json",
		orcid.SettingAuthorizeURL:        "https://sandbox.orcid.org/oauth/authorize",
		orcid.SettingTokenURL:            "https://sandbox.orcid.org/oauth/token",
		orcid.SettingAuthenticationScope: "/authenticate",
	}

	cfg, err := ConfigFromProvider(orcid.NewProvider(store))
	require.NoError(t, err)
	assert.Equal(t, Config{
		ClientID:     "APP-1",
		ClientSecret: "s3cret",
		LoginURL:     "https://sandbox.orcid.org/signin/auth.json",
		AuthorizeURL: "https://sandbox.orcid.org/oauth/authorize",
		TokenURL:     "https://sandbox.orcid.org/oauth/token",
		RedirectURI:  DefaultRedirectURI,
		Scope:        "/authenticate",
	}, cfg)

	delete(store, orcid.SettingAuthorizeURL)
	_, err = ConfigFromProvider(orcid.NewProvider(store))

	var cfgErr *orcid.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, orcid.SettingAuthorizeURL, cfgErr.Key)
}

func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv("ORCID_CLAIMED_PROFILE_ID", "0000-0002-0000-0001")
	t.Setenv("ORCID_CLAIMED_PROFILE_PASSWORD", "pa55word")

	assert.Equal(t, testCreds, CredentialsFromEnv())
}
