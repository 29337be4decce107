package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ignite/newsletter/internal/domain"
)

// Environments recognised by LoadFromEnv.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Email providers.
const (
	ProviderSES       = "ses"
	ProviderSparkPost = "sparkpost"
)

// Fan-out failure policies.
const (
	PolicyCollect  = "collect"
	PolicyFailFast = "fail_fast"
)

// Config holds all configuration for the application
type Config struct {
	Environment string            `yaml:"-"`
	Application ApplicationConfig `yaml:"application"`
	Database    DatabaseConfig    `yaml:"database"`
	EmailClient EmailClientConfig `yaml:"email_client"`
	Newsletter  NewsletterConfig  `yaml:"newsletter"`
	Redis       RedisConfig       `yaml:"redis"`
	CORS        CORSConfig        `yaml:"cors"`
	Log         LogConfig         `yaml:"log"`
}

// ApplicationConfig holds HTTP server and link settings
type ApplicationConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"base_url"`
	// TokenTTLHours bounds how long a confirmation link stays usable.
	// Unset means 72 hours; 0 disables expiry.
	TokenTTLHours *int `yaml:"token_ttl_hours"`
}

// GetHost returns the server host, with ECS detection
func (c ApplicationConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	return c.Host
}

// Address returns host:port for the listener.
func (c ApplicationConfig) Address() string {
	return net.JoinHostPort(c.GetHost(), strconv.Itoa(c.Port))
}

// TokenTTL returns the confirmation token lifetime. Zero means tokens never
// expire.
func (c ApplicationConfig) TokenTTL() time.Duration {
	if c.TokenTTLHours == nil {
		return 72 * time.Hour
	}
	return time.Duration(*c.TokenTTLHours) * time.Hour
}

// DatabaseConfig holds Postgres connection settings. URL wins over the
// individual parts when set.
type DatabaseConfig struct {
	URL                    string `yaml:"url"`
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	Username               string `yaml:"username"`
	Password               string `yaml:"password"`
	Name                   string `yaml:"database_name"`
	RequireSSL             bool   `yaml:"require_ssl"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// DSN returns a lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	sslmode := "disable"
	if c.RequireSSL {
		sslmode = "require"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Username, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + sslmode,
	}
	return u.String()
}

// ConnMaxLifetime returns the pool connection lifetime.
func (c DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeMinutes) * time.Minute
}

// EmailClientConfig holds the outbound email provider settings
type EmailClientConfig struct {
	Provider            string          `yaml:"provider"`
	SenderEmail         string          `yaml:"sender_email"`
	TimeoutMilliseconds int             `yaml:"timeout_milliseconds"`
	SendsPerSecond      float64         `yaml:"sends_per_second"`
	SES                 SESConfig       `yaml:"ses"`
	SparkPost           SparkPostConfig `yaml:"sparkpost"`
}

// Timeout returns the per-call operation timeout.
func (c EmailClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMilliseconds) * time.Millisecond
}

// Sender returns the validated sender address.
func (c EmailClientConfig) Sender() (domain.SubscriberEmail, error) {
	return domain.ParseEmail(c.SenderEmail)
}

// SESConfig holds AWS SES API configuration
type SESConfig struct {
	Region string `yaml:"region"`
	// EndpointURL points the client at a local stub instead of AWS.
	EndpointURL string `yaml:"endpoint_url"`
	AccessKey   string `yaml:"access_key"`
	SecretKey   string `yaml:"secret_key"`
}

// SparkPostConfig holds SparkPost API configuration
type SparkPostConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	MaxRetries int    `yaml:"max_retries"`
}

// NewsletterConfig controls issue fan-out.
type NewsletterConfig struct {
	FailurePolicy  string `yaml:"failure_policy"`
	Concurrency    int    `yaml:"concurrency"`
	LockTTLSeconds int    `yaml:"lock_ttl_seconds"`
}

// LockTTL returns the fan-out lock lifetime.
func (c NewsletterConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// RedisConfig holds Redis connection settings. An empty Addr disables Redis
// and locks fall back to Postgres advisory locks.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Enabled reports whether a Redis address is configured.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// CORSConfig lists browser origins allowed to post forms.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads and parses a single configuration file
func Load(path string) (*Config, error) {
	var cfg Config
	if err := decodeFile(path, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration from dir the way the service runs:
// base.yaml, then the <APP_ENVIRONMENT>.yaml overlay, then environment
// variable overrides. A .env file in the working directory is loaded first
// if present, so secrets can live in .env locally and in real env vars in
// deployment.
func LoadFromEnv(dir string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	env := strings.ToLower(strings.TrimSpace(os.Getenv("APP_ENVIRONMENT")))
	if env == "" {
		env = EnvDevelopment
	}
	if env != EnvDevelopment && env != EnvProduction {
		return nil, fmt.Errorf("config: %q is not a supported environment, use %q or %q", env, EnvDevelopment, EnvProduction)
	}

	var cfg Config
	if err := decodeFile(filepath.Join(dir, "base.yaml"), &cfg); err != nil {
		return nil, err
	}
	if err := decodeFile(filepath.Join(dir, env+".yaml"), &cfg); err != nil {
		return nil, err
	}
	cfg.Environment = env

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// decodeFile unmarshals path on top of cfg; keys absent from the file keep
// their current values.
func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = EnvDevelopment
	}
	if c.Application.Port == 0 {
		c.Application.Port = 8000
	}
	if c.Application.Host == "" {
		c.Application.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetimeMinutes == 0 {
		c.Database.ConnMaxLifetimeMinutes = 5
	}
	if c.EmailClient.Provider == "" {
		c.EmailClient.Provider = ProviderSES
	}
	if c.EmailClient.TimeoutMilliseconds == 0 {
		c.EmailClient.TimeoutMilliseconds = 10000
	}
	if c.EmailClient.SES.Region == "" {
		c.EmailClient.SES.Region = "us-east-1"
	}
	if c.EmailClient.SparkPost.BaseURL == "" {
		c.EmailClient.SparkPost.BaseURL = "https://api.sparkpost.com/api/v1"
	}
	if c.EmailClient.SparkPost.MaxRetries == 0 {
		c.EmailClient.SparkPost.MaxRetries = 3
	}
	if c.Newsletter.FailurePolicy == "" {
		c.Newsletter.FailurePolicy = PolicyCollect
	}
	if c.Newsletter.Concurrency == 0 {
		c.Newsletter.Concurrency = 8
	}
	if c.Newsletter.LockTTLSeconds == 0 {
		c.Newsletter.LockTTLSeconds = 300
	}
}

// applyEnv overrides file values with environment variables if present.
func (c *Config) applyEnv() error {
	if v := os.Getenv("APP_APPLICATION__HOST"); v != "" {
		c.Application.Host = v
	}
	if v := os.Getenv("APP_APPLICATION__PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: APP_APPLICATION__PORT: %w", err)
		}
		c.Application.Port = port
	}
	if v := os.Getenv("APP_APPLICATION__BASE_URL"); v != "" {
		c.Application.BaseURL = v
	}
	if v := os.Getenv("APP_EMAIL_CLIENT__SENDER_EMAIL"); v != "" {
		c.EmailClient.SenderEmail = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		c.EmailClient.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		c.EmailClient.SES.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		c.EmailClient.SES.Region = v
	}
	if v := os.Getenv("SPARKPOST_API_KEY"); v != "" {
		c.EmailClient.SparkPost.APIKey = v
	}
	if v := os.Getenv("SPARKPOST_BASE_URL"); v != "" {
		c.EmailClient.SparkPost.BaseURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate checks settings that would otherwise fail at first use.
func (c *Config) Validate() error {
	var errs []error
	if c.Application.BaseURL == "" {
		errs = append(errs, errors.New("application.base_url is required"))
	} else if _, err := url.ParseRequestURI(c.Application.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("application.base_url: %w", err))
	}
	if c.Application.TokenTTLHours != nil && *c.Application.TokenTTLHours < 0 {
		errs = append(errs, errors.New("application.token_ttl_hours must not be negative"))
	}
	if _, err := c.EmailClient.Sender(); err != nil {
		errs = append(errs, fmt.Errorf("email_client.sender_email: %w", err))
	}
	switch c.EmailClient.Provider {
	case ProviderSES, ProviderSparkPost:
	default:
		errs = append(errs, fmt.Errorf("email_client.provider %q is not one of %q, %q", c.EmailClient.Provider, ProviderSES, ProviderSparkPost))
	}
	switch c.Newsletter.FailurePolicy {
	case PolicyCollect, PolicyFailFast:
	default:
		errs = append(errs, fmt.Errorf("newsletter.failure_policy %q is not one of %q, %q", c.Newsletter.FailurePolicy, PolicyCollect, PolicyFailFast))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
