package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	db := DatabaseConfig{Host: "localhost", Port: 5432, Database: "db"}
	return &Config{
		Health: HealthConfig{Port: 8081},
		Worker: WorkerConfig{
			MaxRetries:      3,
			JobTimeout:      5 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
		},
		RabbitMQ: RabbitMQConfig{
			Host:               "localhost",
			Port:               5672,
			Exchange:           "resume.jobs",
			Queue:              "resume.generate",
			DeadLetterExchange: "resume.jobs.dlx",
		},
		Databases: DatabasesConfig{Jobs: db, Posts: db, Management: db, Auth: db},
		AI:        AIConfig{BaseURL: "http://localhost:9100"},
		Renderer:  RendererConfig{BaseURL: "http://localhost:9200"},
		Storage:   StorageConfig{Endpoint: "localhost:9000", Bucket: "resumes"},
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				// Verify some key fields are populated
				assert.Equal(t, "resume-worker", cfg.App.Name)
				assert.Equal(t, 8081, cfg.Health.Port)
				assert.Equal(t, "resume.jobs", cfg.RabbitMQ.Exchange)
				assert.Equal(t, "resume.generate", cfg.RabbitMQ.Queue)
				assert.Equal(t, "resume.jobs.dlx", cfg.RabbitMQ.DeadLetterExchange)
				assert.Equal(t, 4, cfg.RabbitMQ.PrefetchCount)
				assert.Equal(t, "resume_jobs", cfg.Databases.Jobs.Database)
				assert.Equal(t, 5433, cfg.Databases.Posts.Port)
				assert.Equal(t, "http://localhost:9100", cfg.AI.BaseURL)
				assert.Equal(t, 2*time.Minute, cfg.Renderer.WaitWindow)
				assert.Equal(t, "resumes", cfg.Storage.Bucket)
				assert.Equal(t, 5*time.Minute, cfg.Worker.JobTimeout)

				section, ok := cfg.Enrichment.Sections["experience"]
				require.True(t, ok)
				assert.True(t, section.Enabled)
				assert.Equal(t, 800, section.MaxLength)
				assert.Equal(t, "bullet", section.Format)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:      "invalid health port - too low",
			mutate:    func(c *Config) { c.Health.Port = 0 },
			wantErr:   true,
			errString: "invalid health port",
		},
		{
			name:      "invalid health port - too high",
			mutate:    func(c *Config) { c.Health.Port = 70000 },
			wantErr:   true,
			errString: "invalid health port",
		},
		{
			name:      "empty rabbitmq host",
			mutate:    func(c *Config) { c.RabbitMQ.Host = "" },
			wantErr:   true,
			errString: "rabbitmq host is required",
		},
		{
			name:      "empty exchange name",
			mutate:    func(c *Config) { c.RabbitMQ.Exchange = "" },
			wantErr:   true,
			errString: "rabbitmq exchange name is required",
		},
		{
			name:      "empty queue name",
			mutate:    func(c *Config) { c.RabbitMQ.Queue = "" },
			wantErr:   true,
			errString: "rabbitmq queue name is required",
		},
		{
			name:      "missing dead letter exchange",
			mutate:    func(c *Config) { c.RabbitMQ.DeadLetterExchange = "" },
			wantErr:   true,
			errString: "dead_letter_exchange is required",
		},
		{
			name:      "empty jobs database host",
			mutate:    func(c *Config) { c.Databases.Jobs.Host = "" },
			wantErr:   true,
			errString: "jobs database host is required",
		},
		{
			name:      "empty auth database name",
			mutate:    func(c *Config) { c.Databases.Auth.Database = "" },
			wantErr:   true,
			errString: "auth database name is required",
		},
		{
			name:      "invalid posts database port",
			mutate:    func(c *Config) { c.Databases.Posts.Port = -1 },
			wantErr:   true,
			errString: "invalid posts database port",
		},
		{
			name:      "missing ai base url",
			mutate:    func(c *Config) { c.AI.BaseURL = "" },
			wantErr:   true,
			errString: "ai base_url is required",
		},
		{
			name:      "missing renderer base url",
			mutate:    func(c *Config) { c.Renderer.BaseURL = "" },
			wantErr:   true,
			errString: "renderer base_url is required",
		},
		{
			name:      "missing storage endpoint",
			mutate:    func(c *Config) { c.Storage.Endpoint = "" },
			wantErr:   true,
			errString: "storage endpoint is required",
		},
		{
			name:      "missing storage bucket",
			mutate:    func(c *Config) { c.Storage.Bucket = "" },
			wantErr:   true,
			errString: "storage bucket is required",
		},
		{
			name:      "negative max retries",
			mutate:    func(c *Config) { c.Worker.MaxRetries = -1 },
			wantErr:   true,
			errString: "max_retries must not be negative",
		},
		{
			name:      "zero job timeout",
			mutate:    func(c *Config) { c.Worker.JobTimeout = 0 },
			wantErr:   true,
			errString: "job_timeout must be greater than 0",
		},
		{
			name:      "zero shutdown timeout",
			mutate:    func(c *Config) { c.Worker.ShutdownTimeout = 0 },
			wantErr:   true,
			errString: "shutdown_timeout must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoad_ValidateIntegration(t *testing.T) {
	cfg, err := Load("testdata/valid_config.yaml")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	require.NoError(t, cfg.Validate())
}

func TestRetryConfig_Policy(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:       5,
		InitialDelay:      2 * time.Second,
		MaxDelay:          time.Minute,
		BackoffMultiplier: 1.5,
	}

	policy := cfg.Policy()
	assert.Equal(t, 5, policy.MaxAttempts)
	assert.Equal(t, 2*time.Second, policy.InitialDelay)
	assert.Equal(t, time.Minute, policy.MaxDelay)
	assert.Equal(t, 1.5, policy.BackoffMultiplier)
}
