package orcid

// Setting keys, matching the environment variable names operators already use.
const (
	SettingAppID               = "ORCID_APP_ID"
	SettingAppSecret           = "ORCID_APP_SECRET"
	SettingSiteURL             = "ORCID_SITE_URL"
	SettingTokenURL            = "ORCID_TOKEN_URL"
	SettingSigninViaJSONURL    = "ORCID_REMOTE_SIGNIN_URL"
	SettingAuthorizeURL        = "ORCID_AUTHORIZE_URL"
	SettingAuthenticationScope = "ORCID_APP_AUTHENTICATION_SCOPE"
)

// Store is a keyed configuration source.
type Store interface {
	Lookup(key string) (string, bool)
}

// Provider exposes the ORCID OAuth client settings.
type Provider struct {
	store Store
}

func NewProvider(store Store) *Provider {
	return &Provider{store: store}
}

func (p *Provider) Fetch(key string) (string, error) {
	v, ok := p.store.Lookup(key)
	if !ok {
		return "", &ConfigurationError{Key: key}
	}
	return v, nil
}

func (p *Provider) ID() (string, error)                  { return p.Fetch(SettingAppID) }
func (p *Provider) Secret() (string, error)              { return p.Fetch(SettingAppSecret) }
func (p *Provider) SiteURL() (string, error)             { return p.Fetch(SettingSiteURL) }
func (p *Provider) TokenURL() (string, error)            { return p.Fetch(SettingTokenURL) }
func (p *Provider) SigninViaJSONURL() (string, error)    { return p.Fetch(SettingSigninViaJSONURL) }
func (p *Provider) AuthorizeURL() (string, error)        { return p.Fetch(SettingAuthorizeURL) }
func (p *Provider) AuthenticationScope() (string, error) { return p.Fetch(SettingAuthenticationScope) }

// MapStore is a Store backed by a plain map.
type MapStore map[string]string

func (m MapStore) Lookup(key string) (string, bool) {
	v, ok := m[key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
