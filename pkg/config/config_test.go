package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, []string{"7z", "zip", "gz", "tar"}, cfg.Formats.CoreFormats)
	assert.Equal(t, int64(1337), cfg.Evolution.Seed)
	assert.Equal(t, "compress", cfg.Evolution.Target)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)

	_, err = Load("")
	assert.Error(t, err)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test_config.yaml")
	content := `
test_settings:
  temp_dir: /tmp/custom
formats:
  core_formats: ["7z"]
performance:
  iterations: 3
  max_file_size: 10MB
evolution:
  population: 8
  target: balanced
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom", cfg.TestSettings.TempDir)
	assert.Equal(t, []string{"7z"}, cfg.Formats.CoreFormats)
	assert.Equal(t, 3, cfg.Performance.Iterations)
	assert.Equal(t, 8, cfg.Evolution.Population)
	assert.Equal(t, "balanced", cfg.Evolution.Target)
	// Untouched sections keep their defaults.
	assert.Equal(t, "best", cfg.Evolution.ScoreMode)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "test_config.yaml")
	cfg := Default()
	cfg.Performance.Iterations = 7

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no formats", func(c *Config) { c.Formats.CoreFormats = nil }},
		{"zero iterations", func(c *Config) { c.Performance.Iterations = 0 }},
		{"bad max file size", func(c *Config) { c.Performance.MaxFileSize = "lots" }},
		{"zero population", func(c *Config) { c.Evolution.Population = 0 }},
		{"elite above population", func(c *Config) { c.Evolution.Elite = c.Evolution.Population + 1 }},
		{"mutation above one", func(c *Config) { c.Evolution.Mutation = 1.5 }},
		{"unknown target", func(c *Config) { c.Evolution.Target = "fastest" }},
		{"unknown score mode", func(c *Config) { c.Evolution.ScoreMode = "median" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEvolutionValidateStandalone(t *testing.T) {
	// The evolve command validates the evolution section alone after
	// merging command-line overrides.
	evo := Default().Evolution
	require.NoError(t, evo.Validate())

	evo.Generations = 0
	assert.Error(t, evo.Validate())
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("HARNESS_LOG_LEVEL", "debug")
	t.Setenv("HARNESS_BENCH_ITERATIONS", "5")
	t.Setenv("HARNESS_COMMAND_TIMEOUT", "90s")
	t.Setenv("HARNESS_EVOLVE_MUTATION", "0.5")
	t.Setenv("HARNESS_EVOLVE_RESUME", "false")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "debug", cfg.TestSettings.LogLevel)
	assert.Equal(t, 5, cfg.Performance.Iterations)
	assert.Equal(t, 90, cfg.Performance.TimeoutSecs)
	assert.Equal(t, 0.5, cfg.Evolution.Mutation)
	assert.False(t, cfg.Evolution.Resume)
}

func TestApplyEnvOverridesKeepsDefaults(t *testing.T) {
	// Unset and malformed variables leave the configuration untouched.
	t.Setenv("HARNESS_BENCH_ITERATIONS", "many")
	t.Setenv("HARNESS_EVOLVE_RESUME", "maybe")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, Default(), cfg)
}

func TestMaxFileSizeBytes(t *testing.T) {
	cfg := Default()
	cfg.Performance.MaxFileSize = "10MB"
	size, err := cfg.MaxFileSizeBytes()
	require.NoError(t, err)
	assert.Equal(t, uint64(10*1000*1000), size)

	cfg.Performance.MaxFileSize = ""
	size, err = cfg.MaxFileSizeBytes()
	require.NoError(t, err)
	assert.Equal(t, uint64(100*1024*1024), size)
}
