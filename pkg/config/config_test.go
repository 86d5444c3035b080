package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("test-version")
	require.NoError(t, err)

	assert.Equal(t, "test-version", cfg.Version)
	assert.Equal(t, "3460", cfg.Port)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "./packages", cfg.PackageRoot)
	assert.True(t, cfg.Export.IncludeSampleRows)
	assert.Equal(t, 1000, cfg.Export.SampleRowCount)
	assert.Equal(t, 5000, cfg.Export.StreamingThreshold)
	assert.Equal(t, 6000, cfg.Budget.MaxResponseTokens)
	assert.Equal(t, 5432, cfg.Provider.Port)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("PACKAGE_ROOT", "/var/lib/semlens/packages")
	t.Setenv("EXPORT_SAMPLE_ROW_COUNT", "250")
	t.Setenv("SOURCE_PGPASSWORD", "s3cret")
	t.Setenv("CACHE_L1_MAX_ENTRIES", "128")

	cfg, err := Load("v1")
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, "/var/lib/semlens/packages", cfg.PackageRoot)
	assert.Equal(t, 250, cfg.Export.SampleRowCount)
	assert.Equal(t, "s3cret", cfg.Provider.Password)
	assert.Equal(t, 128, cfg.Cache.L1MaxEntries)
}

func TestLoad_Validation(t *testing.T) {
	t.Run("empty package root", func(t *testing.T) {
		cfg := &Config{PackageRoot: "", Budget: BudgetConfig{MaxResponseTokens: 100}}
		assert.Error(t, cfg.validate())
	})

	t.Run("negative sample row count", func(t *testing.T) {
		cfg := &Config{
			PackageRoot: "./packages",
			Export:      ExportConfig{SampleRowCount: -1},
			Budget:      BudgetConfig{MaxResponseTokens: 100},
		}
		assert.Error(t, cfg.validate())
	})

	t.Run("zero token budget", func(t *testing.T) {
		cfg := &Config{PackageRoot: "./packages"}
		assert.Error(t, cfg.validate())
	})
}

func TestEffectiveWorkerConcurrency(t *testing.T) {
	explicit := ExportConfig{WorkerConcurrency: 7}
	assert.Equal(t, 7, explicit.EffectiveWorkerConcurrency())

	auto := ExportConfig{}
	assert.Greater(t, auto.EffectiveWorkerConcurrency(), 0)
}
