package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "MCC"

type Config struct {
	APIURL     string          `mapstructure:"api_url" yaml:"api_url"`
	ServerName string          `mapstructure:"server_name" yaml:"server_name"`
	Storage    StorageConfig   `mapstructure:"storage" yaml:"storage"`
	HTTP       HTTPConfig      `mapstructure:"http" yaml:"http"`
	Transport  TransportConfig `mapstructure:"transport" yaml:"transport"`
	Retry      RetryConfig     `mapstructure:"retry" yaml:"retry"`
	Account    AccountConfig   `mapstructure:"account" yaml:"account"`
	Tenant     TenantConfig    `mapstructure:"tenant" yaml:"tenant"`
	Log        LogConfig       `mapstructure:"log" yaml:"log"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

type HTTPConfig struct {
	Listen      string `mapstructure:"listen" yaml:"listen"`
	WebhookPath string `mapstructure:"webhook_path" yaml:"webhook_path"`
}

type TransportConfig struct {
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RetryCount   int           `mapstructure:"retry_count" yaml:"retry_count"`
	RetryWait    time.Duration `mapstructure:"retry_wait" yaml:"retry_wait"`
	RetryMaxWait time.Duration `mapstructure:"retry_max_wait" yaml:"retry_max_wait"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	Interval    time.Duration `mapstructure:"interval" yaml:"interval"`
}

type AccountConfig struct {
	RetrieveKeyTTL time.Duration `mapstructure:"retrieve_key_ttl" yaml:"retrieve_key_ttl"`
}

type TenantConfig struct {
	SiteID  int64  `mapstructure:"site_id" yaml:"site_id"`
	SiteURL string `mapstructure:"site_url" yaml:"site_url"`
}

type LogConfig struct {
	Level   string `mapstructure:"level" yaml:"level"`
	Handler string `mapstructure:"handler" yaml:"handler"`
}

var (
	ErrUnknownDriver   = errors.New("storage.driver must be sqlite or memory")
	ErrMissingServer   = errors.New("server_name is required")
	ErrInvalidAttempts = errors.New("retry.max_attempts must be positive")
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_url", "https://api.mycryptocheckout.com/v2/")
	v.SetDefault("server_name", "")
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.dsn", "mycryptocheckout.db")
	v.SetDefault("http.listen", ":8080")
	v.SetDefault("http.webhook_path", "/mycryptocheckout")
	v.SetDefault("transport.timeout", 30*time.Second)
	v.SetDefault("transport.retry_count", 2)
	v.SetDefault("transport.retry_wait", 500*time.Millisecond)
	v.SetDefault("transport.retry_max_wait", 5*time.Second)
	v.SetDefault("retry.max_attempts", 48)
	v.SetDefault("retry.interval", time.Hour)
	v.SetDefault("account.retrieve_key_ttl", 10*time.Minute)
	v.SetDefault("tenant.site_id", 0)
	v.SetDefault("tenant.site_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.handler", "json")
}

// Load reads defaults, then the optional YAML file at path, then MCC_*
// environment variables. A .env file in the working directory is loaded
// into the environment first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("%w, got %q", ErrUnknownDriver, c.Storage.Driver)
	}
	if c.ServerName == "" {
		return ErrMissingServer
	}
	if c.Retry.MaxAttempts <= 0 {
		return ErrInvalidAttempts
	}
	return nil
}

// Dump renders the effective configuration as YAML.
func Dump(c *Config) ([]byte, error) {
	return yaml.Marshal(c)
}
