// Package sandbox drives ORCID's sandbox login and authorization screens to obtain
// an OAuth authorization code for a claimed test profile. It exists for integration
// tests and operator tooling, never for production traffic.
package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"orcid/internal/orcid"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/oauth2"
)

const DefaultRedirectURI = "https://developers.google.com/oauthplayground"

var (
	ErrLoginFailed     = errors.New("orcid sandbox login was not successful")
	ErrNoAuthorization = errors.New("orcid sandbox did not redirect with an authorization code")
)

type Config struct {
	ClientID     string
	ClientSecret string
	LoginURL     string
	AuthorizeURL string
	TokenURL     string
	RedirectURI  string
	Scope        string
}

// ConfigFromProvider fills every setting from the ORCID provider configuration.
func ConfigFromProvider(p *orcid.Provider) (Config, error) {
	const op = "sandbox.ConfigFromProvider"

	var (
		cfg = Config{RedirectURI: DefaultRedirectURI}
		err error
	)

	fields := []struct {
		dst   *string
		fetch func() (string, error)
	}{
		{&cfg.ClientID, p.ID},
		{&cfg.ClientSecret, p.Secret},
		{&cfg.LoginURL, p.SigninViaJSONURL},
		{&cfg.AuthorizeURL, p.AuthorizeURL},
		{&cfg.TokenURL, p.TokenURL},
		{&cfg.Scope, p.AuthenticationScope},
	}
	for _, f := range fields {
		if *f.dst, err = f.fetch(); err != nil {
			return Config{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	return cfg, nil
}

type Credentials struct {
	OrcidProfileID string
	Password       string
}

// CredentialsFromEnv reads the claimed sandbox profile used by integration tests.
func CredentialsFromEnv() Credentials {
	return Credentials{
		OrcidProfileID: os.Getenv("ORCID_CLAIMED_PROFILE_ID"),
		Password:       os.Getenv("ORCID_CLAIMED_PROFILE_PASSWORD"),
	}
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func New(cfg Config, log *slog.Logger) (*Client, error) {
	const op = "sandbox.New"

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if cfg.RedirectURI == "" {
		cfg.RedirectURI = DefaultRedirectURI
	}

	return &Client{
		cfg: cfg,
		http: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
			// The approval step answers with a redirect whose Location carries the code.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		log: log,
	}, nil
}

// RequestAuthorizationCode logs in as the claimed profile, opens the authorize
// screen and approves it, returning the code from the resulting redirect.
func (c *Client) RequestAuthorizationCode(ctx context.Context, creds Credentials) (string, error) {
	const op = "sandbox.Client.RequestAuthorizationCode"

	log := c.log.With(
		slog.String("op", op),
		slog.String("orcid_profile_id", creds.OrcidProfileID),
	)

	if err := c.login(ctx, creds); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	log.Debug("signed in to orcid sandbox")

	if err := c.requestAuthorization(ctx); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	code, err := c.approve(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("obtained sandbox authorization code")
	return code, nil
}

// Exchange trades an authorization code for an access token.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	const op = "sandbox.Client.Exchange"

	token, err := c.oauthConfig().Exchange(context.WithValue(ctx, oauth2.HTTPClient, c.http), code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

func (c *Client) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		RedirectURL:  c.cfg.RedirectURI,
		Scopes:       []string{c.cfg.Scope},
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.cfg.AuthorizeURL,
			TokenURL:  c.cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func (c *Client) login(ctx context.Context, creds Credentials) error {
	form := url.Values{
		"userId":   {creds.OrcidProfileID},
		"password": {creds.Password},
	}

	body, _, err := c.postForm(ctx, c.cfg.LoginURL, form)
	if err != nil {
		return err
	}

	var result struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(body, &result); err != nil || !result.Success {
		return fmt.Errorf("%w: %s", ErrLoginFailed, body)
	}

	return nil
}

func (c *Client) requestAuthorization(ctx context.Context) error {
	// state is left empty so AuthCodeURL sends exactly client_id, response_type, scope and redirect_uri.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.oauthConfig().AuthCodeURL(""), nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("authorize screen returned status %d", resp.StatusCode)
	}

	return nil
}

func (c *Client) approve(ctx context.Context) (string, error) {
	_, resp, err := c.postForm(ctx, c.cfg.AuthorizeURL, url.Values{"user_oauth_approval": {"true"}})
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusFound && resp.StatusCode != http.StatusSeeOther {
		return "", fmt.Errorf("%w: status %d", ErrNoAuthorization, resp.StatusCode)
	}

	location, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoAuthorization, err)
	}

	code := location.Query().Get("code")
	if code == "" {
		return "", fmt.Errorf("%w: %q", ErrNoAuthorization, location.String())
	}

	return code, nil
}

func (c *Client) postForm(ctx context.Context, target string, form url.Values) ([]byte, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	return body, resp, nil
}
