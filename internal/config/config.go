// Package config loads the application configuration. Defaults are applied
// first, then an optional YAML file, then environment variables, so a bare
// environment-only deployment works without a config file on disk.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

type Config struct {
	Env             string `yaml:"env" env:"ENV"`
	BaseURL         string `yaml:"base_url" env:"BASE_URL"`
	ShortCodeLength int    `yaml:"short_code_length" env:"SHORT_CODE_LENGTH"`
	HTTPServer      `yaml:"http_server"`
	Mongo           `yaml:"mongo"`
	Redis           `yaml:"redis"`
}

type HTTPServer struct {
	Port           int           `yaml:"port" env:"HTTP_PORT"`
	ReadTimeout    time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT"`
	MaxHeaderBytes int           `yaml:"max_header_bytes" env:"HTTP_MAX_HEADER_BYTES"`
	CertFile       string        `yaml:"cert_file" env:"HTTP_CERT_FILE"`
	KeyFile        string        `yaml:"key_file" env:"HTTP_KEY_FILE"`
}

var defaultHTTPServer = HTTPServer{
	Port:           8080,
	ReadTimeout:    5 * time.Second,
	WriteTimeout:   10 * time.Second,
	IdleTimeout:    time.Minute,
	MaxHeaderBytes: 1 << 20,
}

func (s *HTTPServer) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type Mongo struct {
	URI string `yaml:"uri" env:"MONGODB_URI"`
	DB  string `yaml:"db" env:"MONGODB_DB"`
}

var defaultMongo = Mongo{
	URI: "mongodb://localhost:27017",
	DB:  "shortify",
}

type Redis struct {
	URL          string        `yaml:"url" env:"REDIS_URL"`
	CacheTTL     time.Duration `yaml:"cache_ttl" env:"REDIS_CACHE_TTL"`
	SyncInterval time.Duration `yaml:"sync_interval" env:"REDIS_CLICK_SYNC_INTERVAL"`
}

var defaultRedis = Redis{
	URL:          "redis://localhost:6379",
	CacheTTL:     time.Hour,
	SyncInterval: time.Minute,
}

// Load builds the configuration from defaults, the YAML file at path if
// path is non-empty, and finally the process environment.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	var cfg Config
	setDefaults(&cfg)

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to open config file: %w", op, err)
		}
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("%s: failed to decode config file: %w", op, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to parse environment: %w", op, err)
	}

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.BaseURL = "http://localhost:8080"
	cfg.ShortCodeLength = 7
	cfg.HTTPServer = defaultHTTPServer
	cfg.Mongo = defaultMongo
	cfg.Redis = defaultRedis
}
