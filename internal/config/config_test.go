package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"orcid/internal/orcid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
env: "prod"
dsn: "postgres://u:p@db:5432/orcid"
jwt:
  secret: "s3cret"
grpc:
  port: 50051
http_server:
  port: 9090
orcid:
  app_id: "APP-1"
  app_secret: "app-secret"
  site_url: "https://api.orcid.org"
kafka:
  brokers: ["kafka-1:9092", "kafka-2:9092"]
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, 50051, cfg.GRPC.Port)
	assert.Equal(t, 9090, cfg.HTTPServer.Port)
	assert.Equal(t, 15*time.Second, cfg.HTTPServer.Timeout)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "orcid.profile.created", cfg.Kafka.Topic)

	assert.Equal(t, "https://api.orcid.org", cfg.ORCID.SiteURL)
	assert.Equal(t, "https://sandbox.orcid.org/oauth/token", cfg.ORCID.TokenURL)
	assert.Equal(t, 30*time.Second, cfg.ORCID.Timeout)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ORCID_APP_ID", "APP-ENV")
	t.Setenv("HTTP_PORT", "8181")

	cfg, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, "APP-ENV", cfg.ORCID.AppID)
	assert.Equal(t, 8181, cfg.HTTPServer.Port)
}

func TestORCIDConfig_Lookup(t *testing.T) {
	cfg := ORCIDConfig{
		AppID:    "APP-1",
		SiteURL:  "https://api.orcid.org",
		TokenURL: "https://orcid.org/oauth/token",
	}
	p := orcid.NewProvider(cfg)

	id, err := p.ID()
	require.NoError(t, err)
	assert.Equal(t, "APP-1", id)

	_, err = p.Secret()
	var cfgErr *orcid.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, orcid.SettingAppSecret, cfgErr.Key)

	_, ok := cfg.Lookup("UNKNOWN_SETTING")
	assert.False(t, ok)
}
