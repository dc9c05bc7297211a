package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	TransportWebSocket = "websocket"
	TransportNATS      = "nats"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Backend BackendConfig `yaml:"backend"`
	Push    PushConfig    `yaml:"push"`
	NATS    NATSConfig    `yaml:"nats"`
	Clips   ClipsConfig   `yaml:"clips"`
	Reports ReportsConfig `yaml:"reports"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
	// JWTSecret verifies browser tokens issued by the backend login. Empty
	// disables bearer authentication.
	JWTSecret string `yaml:"jwt_secret"`
}

type BackendConfig struct {
	BaseURL          string        `yaml:"base_url"`
	Username         string        `yaml:"username"`
	Password         string        `yaml:"password"`
	Timeout          time.Duration `yaml:"timeout"`
	TokenRefreshSkew time.Duration `yaml:"token_refresh_skew"`
}

type PushConfig struct {
	Transport     string        `yaml:"transport"`
	URL           string        `yaml:"url"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
}

type NATSConfig struct {
	URL      string `yaml:"url"`
	Stream   string `yaml:"stream"`
	Consumer string `yaml:"consumer"`
}

type ClipsConfig struct {
	Endpoint  string        `yaml:"endpoint"`
	AccessKey string        `yaml:"access_key"`
	SecretKey string        `yaml:"secret_key"`
	Bucket    string        `yaml:"bucket"`
	Region    string        `yaml:"region"`
	UseSSL    bool          `yaml:"use_ssl"`
	URLTTL    time.Duration `yaml:"url_ttl"`
}

type ReportsConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
	MaxRange time.Duration `yaml:"max_range"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config data, then applies env overrides and defaults.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New("backend.base_url is required")
	}
	switch c.Push.Transport {
	case TransportWebSocket:
		if c.Push.URL == "" {
			return errors.New("push.url is required for the websocket transport")
		}
	case TransportNATS:
		if c.NATS.URL == "" {
			return errors.New("nats.url is required for the nats transport")
		}
	default:
		return fmt.Errorf("unknown push transport %q", c.Push.Transport)
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = 15 * time.Second
	}
	if cfg.Backend.TokenRefreshSkew == 0 {
		cfg.Backend.TokenRefreshSkew = time.Minute
	}
	if cfg.Push.Transport == "" {
		cfg.Push.Transport = TransportWebSocket
	}
	if cfg.Push.ReconnectWait == 0 {
		cfg.Push.ReconnectWait = 2 * time.Second
	}
	if cfg.NATS.Stream == "" {
		cfg.NATS.Stream = "ALERTS"
	}
	if cfg.NATS.Consumer == "" {
		cfg.NATS.Consumer = "dashboard-gateway"
	}
	if cfg.Clips.Region == "" {
		cfg.Clips.Region = "us-east-1"
	}
	if cfg.Clips.Bucket == "" {
		cfg.Clips.Bucket = "clips"
	}
	if cfg.Clips.URLTTL == 0 {
		cfg.Clips.URLTTL = 15 * time.Minute
	}
	if cfg.Reports.CacheTTL == 0 {
		cfg.Reports.CacheTTL = 5 * time.Minute
	}
	if cfg.Reports.MaxRange == 0 {
		cfg.Reports.MaxRange = 366 * 24 * time.Hour
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SENTINEL_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SENTINEL_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("SENTINEL_JWT_SECRET"); v != "" {
		cfg.Server.JWTSecret = v
	}
	if v := os.Getenv("SENTINEL_BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("SENTINEL_BACKEND_USERNAME"); v != "" {
		cfg.Backend.Username = v
	}
	if v := os.Getenv("SENTINEL_BACKEND_PASSWORD"); v != "" {
		cfg.Backend.Password = v
	}
	if v := os.Getenv("SENTINEL_PUSH_TRANSPORT"); v != "" {
		cfg.Push.Transport = v
	}
	if v := os.Getenv("SENTINEL_PUSH_URL"); v != "" {
		cfg.Push.URL = v
	}
	if v := os.Getenv("SENTINEL_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("SENTINEL_CLIPS_ENDPOINT"); v != "" {
		cfg.Clips.Endpoint = v
	}
	if v := os.Getenv("SENTINEL_CLIPS_ACCESS_KEY"); v != "" {
		cfg.Clips.AccessKey = v
	}
	if v := os.Getenv("SENTINEL_CLIPS_SECRET_KEY"); v != "" {
		cfg.Clips.SecretKey = v
	}
	if v := os.Getenv("SENTINEL_CLIPS_BUCKET"); v != "" {
		cfg.Clips.Bucket = v
	}
	if v := os.Getenv("SENTINEL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
