package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cvpipe/resume-worker/internal/retry"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Config represents the complete worker configuration
type Config struct {
	App        AppConfig        `yaml:"app"`
	Logging    LoggingConfig    `yaml:"logging"`
	Worker     WorkerConfig     `yaml:"worker"`
	Health     HealthConfig     `yaml:"health"`
	RabbitMQ   RabbitMQConfig   `yaml:"rabbitmq"`
	Databases  DatabasesConfig  `yaml:"databases"`
	AI         AIConfig         `yaml:"ai"`
	Renderer   RendererConfig   `yaml:"renderer"`
	Storage    StorageConfig    `yaml:"storage"`
	Retry      RetryConfig      `yaml:"retry"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// WorkerConfig holds job processing limits
type WorkerConfig struct {
	MaxRetries      int           `yaml:"max_retries"`
	FetchLimit      int           `yaml:"fetch_limit"`
	JobTimeout      time.Duration `yaml:"job_timeout"`
	ReconnectDelay  time.Duration `yaml:"reconnect_delay"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// HealthConfig holds the health/metrics HTTP server settings
type HealthConfig struct {
	Port int `yaml:"port"`
}

// RabbitMQConfig holds RabbitMQ connection and topology configuration
type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`

	Exchange             string `yaml:"exchange"`
	Queue                string `yaml:"queue"`
	RoutingKey           string `yaml:"routing_key"`
	DeadLetterExchange   string `yaml:"dead_letter_exchange"`
	DeadLetterRoutingKey string `yaml:"dead_letter_routing_key"`

	PrefetchCount     int           `yaml:"prefetch_count"`
	ConnectAttempts   int           `yaml:"connect_attempts"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// DatabaseConfig holds one PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// DatabasesConfig holds the per-source PostgreSQL connections
type DatabasesConfig struct {
	Jobs       DatabaseConfig `yaml:"jobs"`
	Posts      DatabaseConfig `yaml:"posts"`
	Management DatabaseConfig `yaml:"management"`
	Auth       DatabaseConfig `yaml:"auth"`
}

// AIConfig holds the AI content service client settings
type AIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// RendererConfig holds the render service client settings
type RendererConfig struct {
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
	WaitWindow   time.Duration `yaml:"wait_window"`
}

// StorageConfig holds S3-compatible artifact storage settings
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// RetryConfig holds the process-wide retry policy for collaborator calls
type RetryConfig struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	InitialDelay      time.Duration `yaml:"initial_delay"`
	MaxDelay          time.Duration `yaml:"max_delay"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// Policy converts the config into the retry executor's policy, keeping the
// executor defaults for unset fields.
func (c RetryConfig) Policy() retry.Policy {
	return retry.Policy{
		MaxAttempts:       c.MaxAttempts,
		InitialDelay:      c.InitialDelay,
		MaxDelay:          c.MaxDelay,
		BackoffMultiplier: c.BackoffMultiplier,
	}
}

// SectionConfig tunes enrichment for one content section
type SectionConfig struct {
	Enabled   bool   `yaml:"enabled"`
	MinLength int    `yaml:"min_length"`
	MaxLength int    `yaml:"max_length"`
	Format    string `yaml:"format"`
	Fallback  string `yaml:"fallback"`
}

// EnrichmentConfig holds AI content enrichment settings
type EnrichmentConfig struct {
	Language    string                   `yaml:"language"`
	Concurrency int                      `yaml:"concurrency"`
	Sections    map[string]SectionConfig `yaml:"sections"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Health.Port < MinPort || c.Health.Port > MaxPort {
		return fmt.Errorf("invalid health port: %d (must be between %d and %d)", c.Health.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}

	if c.RabbitMQ.Queue == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	if c.RabbitMQ.DeadLetterExchange == "" {
		return fmt.Errorf("rabbitmq dead_letter_exchange is required")
	}

	for name, db := range map[string]DatabaseConfig{
		"jobs":       c.Databases.Jobs,
		"posts":      c.Databases.Posts,
		"management": c.Databases.Management,
		"auth":       c.Databases.Auth,
	} {
		if db.Host == "" {
			return fmt.Errorf("%s database host is required", name)
		}
		if db.Port < MinPort || db.Port > MaxPort {
			return fmt.Errorf("invalid %s database port: %d (must be between %d and %d)", name, db.Port, MinPort, MaxPort)
		}
		if db.Database == "" {
			return fmt.Errorf("%s database name is required", name)
		}
	}

	if c.AI.BaseURL == "" {
		return fmt.Errorf("ai base_url is required")
	}

	if c.Renderer.BaseURL == "" {
		return fmt.Errorf("renderer base_url is required")
	}

	if c.Storage.Endpoint == "" {
		return fmt.Errorf("storage endpoint is required")
	}

	if c.Storage.Bucket == "" {
		return fmt.Errorf("storage bucket is required")
	}

	if c.Worker.MaxRetries < 0 {
		return fmt.Errorf("worker max_retries must not be negative")
	}

	if c.Worker.JobTimeout <= 0 {
		return fmt.Errorf("worker job_timeout must be greater than 0")
	}

	if c.Worker.ShutdownTimeout <= 0 {
		return fmt.Errorf("worker shutdown_timeout must be greater than 0")
	}

	return nil
}
