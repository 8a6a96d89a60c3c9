package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ignite/graphmail/internal/domain"
	"github.com/ignite/graphmail/internal/transport/graph"
	"github.com/ignite/graphmail/internal/transport/ses"
)

// Config holds all configuration for the server, worker and CLI.
type Config struct {
	Server    ServerConfig                 `yaml:"server"`
	Database  DatabaseConfig               `yaml:"database"`
	Redis     RedisConfig                  `yaml:"redis"`
	Worker    WorkerConfig                 `yaml:"worker"`
	Transport TransportConfig              `yaml:"transport"`
	SES       SESConfig                    `yaml:"ses"`
	Logging   LoggingConfig                `yaml:"logging"`
	Profiles  map[string]map[string]string `yaml:"profiles"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the listen host. Containers listen on all interfaces.
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Addr is host:port for http.Server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.GetHost(), c.Port)
}

type DatabaseConfig struct {
	URL                    string `yaml:"url"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

func (c DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeMinutes) * time.Minute
}

// RedisConfig is optional. Without a URL, jobs can only be sent
// synchronously and locks fall back to Postgres advisory locks.
type RedisConfig struct {
	URL      string `yaml:"url"`
	QueueKey string `yaml:"queue_key"`
}

type WorkerConfig struct {
	Concurrency    int `yaml:"concurrency"`
	PollSeconds    int `yaml:"poll_seconds"`
	LockTTLSeconds int `yaml:"lock_ttl_seconds"`
	// DrainSeconds is how long an in-flight job may run after shutdown starts.
	DrainSeconds int `yaml:"drain_seconds"`
}

func (c WorkerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollSeconds) * time.Second
}

func (c WorkerConfig) DrainTimeout() time.Duration {
	return time.Duration(c.DrainSeconds) * time.Second
}

func (c WorkerConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// TransportConfig tunes the Microsoft Graph transport.
type TransportConfig struct {
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
	MaxRetries        int     `yaml:"max_retries"`
	GraphBaseURL      string  `yaml:"graph_base_url"`
	AuthorityURL      string  `yaml:"authority_url"`
	SkipSentItems     bool    `yaml:"skip_sent_items"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

func (c TransportConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Graph converts the section into a graph.Config.
func (c TransportConfig) Graph() graph.Config {
	return graph.Config{
		BaseURL:       c.GraphBaseURL,
		AuthorityURL:  c.AuthorityURL,
		Timeout:       c.Timeout(),
		MaxRetries:    c.MaxRetries,
		SkipSentItems: c.SkipSentItems,
		RateLimit: graph.RateLimitConfig{
			RequestsPerSecond: c.RequestsPerSecond,
			BurstSize:         c.Burst,
		},
	}
}

// SESConfig holds credentials for profiles with senderType "ses".
type SESConfig struct {
	Region           string `yaml:"region"`
	AccessKey        string `yaml:"access_key"`
	SecretKey        string `yaml:"secret_key"`
	ConfigurationSet string `yaml:"configuration_set"`
}

func (c SESConfig) Transport() ses.Config {
	return ses.Config{
		Region:           c.Region,
		AccessKey:        c.AccessKey,
		SecretKey:        c.SecretKey,
		ConfigurationSet: c.ConfigurationSet,
	}
}

type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII bool   `yaml:"redact_pii"`
}

// Load reads and parses the configuration file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetimeMinutes == 0 {
		cfg.Database.ConnMaxLifetimeMinutes = 30
	}
	if cfg.Redis.QueueKey == "" {
		cfg.Redis.QueueKey = "graphmail:jobs"
	}
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = 2
	}
	if cfg.Worker.PollSeconds == 0 {
		cfg.Worker.PollSeconds = 5
	}
	if cfg.Worker.DrainSeconds == 0 {
		cfg.Worker.DrainSeconds = 120
	}
	if cfg.Worker.LockTTLSeconds == 0 {
		cfg.Worker.LockTTLSeconds = 300
	}
	if cfg.Transport.TimeoutSeconds == 0 {
		cfg.Transport.TimeoutSeconds = 30
	}
	if cfg.Transport.MaxRetries == 0 {
		cfg.Transport.MaxRetries = 3
	}
	if cfg.Transport.GraphBaseURL == "" {
		cfg.Transport.GraphBaseURL = graph.DefaultBaseURL
	}
	if cfg.Transport.AuthorityURL == "" {
		cfg.Transport.AuthorityURL = graph.DefaultAuthorityURL
	}
	if cfg.Transport.RequestsPerSecond == 0 {
		cfg.Transport.RequestsPerSecond = graph.DefaultRateLimit.RequestsPerSecond
	}
	if cfg.Transport.Burst == 0 {
		cfg.Transport.Burst = graph.DefaultRateLimit.BurstSize
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-west-2"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// LoadFromEnv loads configuration with environment variable overrides. A
// .env file is read first if present. An empty path skips the YAML file.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.SES.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.SES.Region = v
	}

	// Credentials for the default profile, applied when it is first created.
	envSeeds := map[string]string{
		"GRAPHMAIL_DEFAULT_SENDER": domain.KeyDefaultSenderEmail,
		"GRAPHMAIL_TENANT_ID":      domain.KeyTenantID,
		"GRAPHMAIL_CLIENT_ID":      domain.KeyClientID,
		"GRAPHMAIL_CLIENT_SECRET":  domain.KeyClientSecret,
		"GRAPHMAIL_SCOPES":         domain.KeyScopes,
	}
	for env, key := range envSeeds {
		v := os.Getenv(env)
		if v == "" {
			continue
		}
		if cfg.Profiles == nil {
			cfg.Profiles = make(map[string]map[string]string)
		}
		if cfg.Profiles[domain.DefaultProfileName] == nil {
			cfg.Profiles[domain.DefaultProfileName] = make(map[string]string)
		}
		cfg.Profiles[domain.DefaultProfileName][key] = v
	}

	return cfg, nil
}

// Validate checks settings that have no usable default.
func (cfg *Config) Validate() error {
	if cfg.Database.URL == "" {
		return fmt.Errorf("database url is required (set DATABASE_URL)")
	}
	if cfg.Worker.Concurrency < 1 {
		return fmt.Errorf("worker concurrency must be >= 1")
	}
	for name, settings := range cfg.Profiles {
		for key, value := range settings {
			if !domain.IsProfileKey(key) {
				return fmt.Errorf("profile %s: unknown setting %q", name, key)
			}
			if err := domain.ValidateSetting(key, value); err != nil {
				return fmt.Errorf("profile %s: %w", name, err)
			}
		}
	}
	return nil
}
