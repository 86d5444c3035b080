package config

import (
	"fmt"
	"os"
	"runtime"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values. Secrets (the source
// database password) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3460"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// PackageRoot is the directory exported packages are published under.
	PackageRoot string `yaml:"package_root" env:"PACKAGE_ROOT" env-default:"./packages"`

	Export   ExportConfig   `yaml:"export"`
	Cache    CacheConfig    `yaml:"cache"`
	Budget   BudgetConfig   `yaml:"budget"`
	Provider ProviderConfig `yaml:"provider"`
}

// ExportConfig holds the recognized package-build options.
type ExportConfig struct {
	// IncludeSampleRows samples rows per table into the package.
	IncludeSampleRows bool `yaml:"include_sample_rows" env:"EXPORT_INCLUDE_SAMPLE_ROWS" env-default:"true"`
	// SampleRowCount is the per-table row cap.
	SampleRowCount int `yaml:"sample_row_count" env:"EXPORT_SAMPLE_ROW_COUNT" env-default:"1000"`
	// WorkerConcurrency bounds concurrent per-table extraction.
	// Zero sizes the pool to available parallel-execution capacity.
	WorkerConcurrency int `yaml:"worker_concurrency" env:"EXPORT_WORKER_CONCURRENCY" env-default:"0"`
	// StreamingThreshold is the object count at or above which analysis
	// files are written element-by-element.
	StreamingThreshold int `yaml:"streaming_threshold" env:"EXPORT_STREAMING_THRESHOLD" env-default:"5000"`
	// SourceName labels exports in the metadata layer.
	SourceName string `yaml:"source_name" env:"EXPORT_SOURCE_NAME" env-default:""`
}

// CacheConfig holds the two-tier cache limits and TTL windows.
type CacheConfig struct {
	// Dir is the durable cache location. Empty disables the durable tier.
	Dir string `yaml:"dir" env:"CACHE_DIR" env-default:"./cache"`
	// L1MaxEntries bounds the in-process tier by entry count.
	L1MaxEntries int `yaml:"l1_max_entries" env:"CACHE_L1_MAX_ENTRIES" env-default:"4096"`
	// L1MaxBytes bounds the in-process tier by total payload size.
	L1MaxBytes int64 `yaml:"l1_max_bytes" env:"CACHE_L1_MAX_BYTES" env-default:"67108864"`
	// AnalysisTTLMinutes is the in-process expiry window for
	// derived-analysis entries; the durable tier uses six times this.
	AnalysisTTLMinutes int `yaml:"analysis_ttl_minutes" env:"CACHE_ANALYSIS_TTL_MINUTES" env-default:"5"`
}

// BudgetConfig holds the per-response size ceiling.
type BudgetConfig struct {
	// MaxResponseTokens caps the estimated token cost of any response.
	MaxResponseTokens int `yaml:"max_response_tokens" env:"BUDGET_MAX_RESPONSE_TOKENS" env-default:"6000"`
}

// ProviderConfig holds the source model connection (PostgreSQL).
type ProviderConfig struct {
	Host     string `yaml:"host" env:"SOURCE_PGHOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"SOURCE_PGPORT" env-default:"5432"`
	User     string `yaml:"user" env:"SOURCE_PGUSER" env-default:"postgres"`
	Password string `yaml:"-" env:"SOURCE_PGPASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"SOURCE_PGDATABASE" env-default:"postgres"`
	SSLMode  string `yaml:"ssl_mode" env:"SOURCE_PGSSLMODE" env-default:"disable"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. A missing config.yaml falls back to env/defaults only.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.PackageRoot == "" {
		return fmt.Errorf("package_root must not be empty")
	}
	if c.Export.SampleRowCount < 0 {
		return fmt.Errorf("export.sample_row_count must be >= 0")
	}
	if c.Budget.MaxResponseTokens < 1 {
		return fmt.Errorf("budget.max_response_tokens must be >= 1")
	}
	return nil
}

// EffectiveWorkerConcurrency resolves the worker pool size, defaulting
// to the available parallel-execution capacity.
func (c *ExportConfig) EffectiveWorkerConcurrency() int {
	if c.WorkerConcurrency > 0 {
		return c.WorkerConcurrency
	}
	return runtime.GOMAXPROCS(0)
}
