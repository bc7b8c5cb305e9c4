package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"orcid/internal/lib/logger/sl"
	"orcid/internal/orcid"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	CreateScope = "/orcid-profile/create"

	createPath       = "/v1.1/orcid-profile"
	xmlContentType   = "application/vdn.orcid+xml"
	xmlAccept        = "application/xml"
	maxResponseBytes = 1 << 20
)

var (
	ErrMissingLocation = errors.New("response has no orcid profile location")

	orcidIDRX = regexp.MustCompile(`^\d{4}-\d{4}-\d{4}-\d{3}[\dX]$`)

	remoteRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orcid_remote_request_duration_seconds",
			Help:    "Duration of calls to the ORCID API",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
		},
		[]string{"operation", "status"},
	)
)

// ProfileCreationService creates ORCID profiles through the member API.
type ProfileCreationService struct {
	log         *slog.Logger
	httpClient  *http.Client
	credentials *clientcredentials.Config
	client      orcid.ClientInfo
	siteURL     string
}

func NewProfileCreationService(log *slog.Logger, provider *orcid.Provider, httpClient *http.Client) (*ProfileCreationService, error) {
	const op = "remote.NewProfileCreationService"

	id, err := provider.ID()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	secret, err := provider.Secret()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	site, err := provider.SiteURL()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	tokenURL, err := provider.TokenURL()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &ProfileCreationService{
		log:        log,
		httpClient: httpClient,
		credentials: &clientcredentials.Config{
			ClientID:     id,
			ClientSecret: secret,
			TokenURL:     tokenURL,
			Scopes:       []string{CreateScope},
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		client: orcid.ClientInfo{
			ID:      id,
			Site:    site,
			Options: map[string]string{"token_url": tokenURL},
			Scope:   CreateScope,
		},
		siteURL: site,
	}, nil
}

// Submit posts the orcid-message payload and returns the ORCID iD ORCID assigned.
func (s *ProfileCreationService) Submit(ctx context.Context, payload string) (string, error) {
	const op = "remote.ProfileCreationService.Submit"

	log := s.log.With(slog.String("op", op))

	token, err := s.credentials.Token(context.WithValue(ctx, oauth2.HTTPClient, s.httpClient))
	if err != nil {
		log.Error("failed to obtain access token", sl.Err(err))
		return "", s.tokenError(err)
	}

	endpoint, err := url.JoinPath(s.siteURL, createPath)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", xmlContentType)
	req.Header.Set("Accept", xmlAccept)
	token.SetAuthHeader(req)

	remote := orcid.RemoteServiceErrorOptions{
		Client:         &s.client,
		Token:          token,
		RequestPath:    endpoint,
		RequestHeaders: req.Header.Clone(),
		RequestBody:    payload,
	}

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		remoteRequestDuration.WithLabelValues("create_profile", "error").Observe(time.Since(start).Seconds())
		log.Error("orcid request failed", sl.Err(err))
		remote.Cause = err
		return "", orcid.NewRemoteServiceError(remote)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	remoteRequestDuration.WithLabelValues("create_profile", strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error("orcid rejected profile creation", slog.Int("status", resp.StatusCode))
		remote.ResponseStatus = resp.StatusCode
		remote.ResponseBody = string(body)
		return "", orcid.NewRemoteServiceError(remote)
	}

	id, err := ProfileIDFromLocation(resp.Header.Get("Location"))
	if err != nil {
		log.Error("unexpected orcid response", sl.Err(err))
		remote.ResponseStatus = resp.StatusCode
		remote.ResponseBody = string(body)
		remote.Cause = err
		return "", orcid.NewRemoteServiceError(remote)
	}

	log.Info("orcid profile created", slog.String("orcid_profile_id", id))
	return id, nil
}

func (s *ProfileCreationService) tokenError(err error) error {
	opts := orcid.RemoteServiceErrorOptions{
		Client:      &s.client,
		RequestPath: s.credentials.TokenURL,
		Cause:       err,
	}

	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		if rErr.Response != nil {
			opts.ResponseStatus = rErr.Response.StatusCode
		}
		opts.ResponseBody = string(rErr.Body)
	}

	return orcid.NewRemoteServiceError(opts)
}

// ProfileIDFromLocation extracts the iD from a location such as
// https://api.sandbox.orcid.org/0000-0001-2345-6789/orcid-profile.
func ProfileIDFromLocation(location string) (string, error) {
	if location == "" {
		return "", ErrMissingLocation
	}

	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMissingLocation, err)
	}

	for _, segment := range strings.Split(u.Path, "/") {
		if orcidIDRX.MatchString(segment) {
			return segment, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrMissingLocation, location)
}
