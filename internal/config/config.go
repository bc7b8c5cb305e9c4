package config

import (
	"flag"
	"os"
	"time"

	"orcid/internal/orcid"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env            string      `yaml:"env" env:"ENV" env-default:"local"`
	DSN            string      `yaml:"dsn" env:"DSN_STRING"`
	MigrationsPath string      `yaml:"migrations_path" env:"MIGRATE_PATH"`
	JWT            JWTConfig   `yaml:"jwt"`
	GRPC           GRPCConfig  `yaml:"grpc"`
	HTTPServer     HTTPServer  `yaml:"http_server"`
	ORCID          ORCIDConfig `yaml:"orcid"`
	Kafka          KafkaConfig `yaml:"kafka"`
}

type JWTConfig struct {
	Secret string `yaml:"secret" env:"JWT_SECRET"`
}

type HTTPServer struct {
	Port    int           `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	Timeout time.Duration `yaml:"timeout" env-default:"15s"`
}

type GRPCConfig struct {
	Port    int           `yaml:"port" env:"GRPC_PORT" env-default:"44044"`
	Timeout time.Duration `yaml:"timeout" env-default:"5s"`
}

// ORCIDConfig holds the OAuth client registered with ORCID. The app id and secret
// have no defaults; looking them up unset fails with orcid.ConfigurationError.
type ORCIDConfig struct {
	AppID               string        `yaml:"app_id" env:"ORCID_APP_ID"`
	AppSecret           string        `yaml:"app_secret" env:"ORCID_APP_SECRET"`
	SiteURL             string        `yaml:"site_url" env:"ORCID_SITE_URL" env-default:"https://api.sandbox.orcid.org"`
	TokenURL            string        `yaml:"token_url" env:"ORCID_TOKEN_URL" env-default:"https://sandbox.orcid.org/oauth/token"`
	SigninViaJSONURL    string        `yaml:"signin_via_json_url" env:"ORCID_REMOTE_SIGNIN_URL" env-default:"https://sandbox.orcid.org/signin/auth.json"`
	AuthorizeURL        string        `yaml:"authorize_url" env:"ORCID_AUTHORIZE_URL" env-default:"https://sandbox.orcid.org/oauth/authorize"`
	AuthenticationScope string        `yaml:"authentication_scope" env:"ORCID_APP_AUTHENTICATION_SCOPE" env-default:"/authenticate,/orcid-works/create,/orcid-works/update,/read-public"`
	Timeout             time.Duration `yaml:"timeout" env:"ORCID_TIMEOUT" env-default:"30s"`
}

func (c ORCIDConfig) Lookup(key string) (string, bool) {
	return orcid.MapStore{
		orcid.SettingAppID:               c.AppID,
		orcid.SettingAppSecret:           c.AppSecret,
		orcid.SettingSiteURL:             c.SiteURL,
		orcid.SettingTokenURL:            c.TokenURL,
		orcid.SettingSigninViaJSONURL:    c.SigninViaJSONURL,
		orcid.SettingAuthorizeURL:        c.AuthorizeURL,
		orcid.SettingAuthenticationScope: c.AuthenticationScope,
	}.Lookup(key)
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC" env-default:"orcid.profile.created"`
}

// MustLoad panics on failure; only call it while the process is starting.
func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		panic("config path is empty")
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, &os.PathError{Op: "config", Path: configPath, Err: os.ErrNotExist}
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// fetchConfigPath reads the --config flag, falling back to CONFIG_PATH.
func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
