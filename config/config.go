package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Skill    SkillConfig    `yaml:"skill"`
	Particle ParticleConfig `yaml:"particle"`
	Session  SessionConfig  `yaml:"session"`
	Pushover PushoverConfig `yaml:"pushover"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr       string `yaml:"addr"`
	AuthToken  string `yaml:"auth_token"`
	RateLimit  int    `yaml:"rate_limit"`
	RateWindow string `yaml:"rate_window"`
	// TrustProxyHeaders keys the rate limit on X-Forwarded-For. Enable only
	// behind a proxy that sets it.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers"`
}

type SkillConfig struct {
	ApplicationID string `yaml:"application_id"`
}

type ParticleConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

type SessionConfig struct {
	// Store is one of none, memory, sqlite or s3.
	Store      string   `yaml:"store"`
	SQLitePath string   `yaml:"sqlite_path"`
	S3         S3Config `yaml:"s3"`
}

type S3Config struct {
	Endpoint      string `yaml:"endpoint"`
	Bucket        string `yaml:"bucket"`
	Prefix        string `yaml:"prefix"`
	Region        string `yaml:"region"`
	AccessKeyFile string `yaml:"access_key_file"`
	SecretKeyFile string `yaml:"secret_key_file"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Enabled bool   `yaml:"enabled"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse expands environment references in data and decodes it.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.RateWindow == "" {
		c.Server.RateWindow = "1m"
	}
	if c.Particle.BaseURL == "" {
		c.Particle.BaseURL = "https://api.particle.io"
	}
	if c.Particle.Timeout == "" {
		c.Particle.Timeout = "10s"
	}
	if c.Session.Store == "" {
		c.Session.Store = "none"
	}
	if c.Session.SQLitePath == "" {
		c.Session.SQLitePath = "./particle-skill.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) Validate() error {
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative")
	}
	window, err := time.ParseDuration(c.Server.RateWindow)
	if err != nil {
		return fmt.Errorf("server.rate_window: %w", err)
	}
	if c.Server.RateLimit > 0 && window <= 0 {
		return fmt.Errorf("server.rate_window must be positive when rate_limit is set")
	}
	if _, err := time.ParseDuration(c.Particle.Timeout); err != nil {
		return fmt.Errorf("particle.timeout: %w", err)
	}

	switch c.Session.Store {
	case "none", "memory", "sqlite":
	case "s3":
		if c.Session.S3.Endpoint == "" || c.Session.S3.Bucket == "" {
			return fmt.Errorf("session.s3 requires endpoint and bucket")
		}
	default:
		return fmt.Errorf("unknown session store %q", c.Session.Store)
	}

	if c.Pushover.Enabled && (c.Pushover.Token == "" || c.Pushover.UserKey == "") {
		return fmt.Errorf("pushover enabled without token and user_key")
	}

	return nil
}

func (c *Config) RateWindow() time.Duration {
	d, _ := time.ParseDuration(c.Server.RateWindow)
	return d
}

func (c *Config) ParticleTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Particle.Timeout)
	return d
}
