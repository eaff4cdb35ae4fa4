package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v2"

	"github.com/gkrost/7z/pkg/env"
)

// Config is the full harness configuration, normally loaded from
// test_config.yaml.
type Config struct {
	TestSettings       TestSettings              `yaml:"test_settings"`
	Formats            FormatsConfig             `yaml:"formats"`
	CompressionMethods map[string][]MethodConfig `yaml:"compression_methods"`
	Performance        PerformanceConfig         `yaml:"performance"`
	Evolution          EvolutionConfig           `yaml:"evolution"`
}

type TestSettings struct {
	TempDir     string `yaml:"temp_dir"`
	OutputDir   string `yaml:"output_dir"`
	TestDataDir string `yaml:"test_data_dir"`
	LogLevel    string `yaml:"log_level"`
}

type FormatsConfig struct {
	CoreFormats []string `yaml:"core_formats"`
}

// MethodConfig is one level/thread combination to exercise for a method.
type MethodConfig struct {
	Level   int `yaml:"level"`
	Threads int `yaml:"threads"`
}

type PerformanceConfig struct {
	Iterations  int    `yaml:"iterations"`
	MaxFileSize string `yaml:"max_file_size"`
	MaxFiles    int    `yaml:"max_files"`
	TimeoutSecs int    `yaml:"timeout_seconds"`
}

// EvolutionConfig drives the genetic flag search.
type EvolutionConfig struct {
	Population     int     `yaml:"population"`
	Generations    int     `yaml:"generations"`
	Elite          int     `yaml:"elite"`
	Mutation       float64 `yaml:"mutation"`
	Seed           int64   `yaml:"seed"`
	Target         string  `yaml:"target"`     // compress | decompress | balanced
	ScoreMode      string  `yaml:"score_mode"` // best | average
	Jobs           int     `yaml:"jobs"`
	Resume         bool    `yaml:"resume"`
	BlacklistReset bool    `yaml:"blacklist_reset"`
	Results        string  `yaml:"results"`
	KeepLogs       string  `yaml:"keep_logs"`
	BaseFlags      string  `yaml:"base_flags"`
	RepoRoot       string  `yaml:"repo_root"`
	Makefile       string  `yaml:"makefile"`
	Program        string  `yaml:"program"`
	BuildDir       string  `yaml:"build_dir"`
}

// Default returns the configuration used when a section is absent from the
// YAML file. Evolution defaults mirror the historical flag-search CLI.
func Default() Config {
	return Config{
		TestSettings: TestSettings{
			TempDir:     filepath.Join(os.TempDir(), "7z_tests"),
			OutputDir:   "results",
			TestDataDir: "test_data",
			LogLevel:    "info",
		},
		Formats: FormatsConfig{
			CoreFormats: []string{"7z", "zip", "gz", "tar"},
		},
		CompressionMethods: map[string][]MethodConfig{
			"lzma2":   {{Level: 5, Threads: 1}},
			"deflate": {{Level: 6, Threads: 1}},
		},
		Performance: PerformanceConfig{
			Iterations:  1,
			MaxFileSize: "100MB",
			MaxFiles:    30,
			TimeoutSecs: 300,
		},
		Evolution: EvolutionConfig{
			Population:  6,
			Generations: 6,
			Elite:       2,
			Mutation:    0.25,
			Seed:        1337,
			Target:      "compress",
			ScoreMode:   "best",
			Jobs:        4,
			Resume:      true,
			Results:     filepath.Join("results", "evo_results.jsonl"),
			KeepLogs:    filepath.Join("results", "logs"),
			Makefile:    "makefile.gcc",
			Program:     "7zz",
			BuildDir:    filepath.Join("b", "ga"),
		},
	}
}

// Load reads a YAML config file into the defaults. A missing or malformed
// file is fatal: nothing downstream can run without configuration.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("config path cannot be empty")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, fmt.Errorf("config file does not exist: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the configuration back out, creating parent directories.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

func (c Config) Validate() error {
	if len(c.Formats.CoreFormats) == 0 {
		return fmt.Errorf("formats.core_formats cannot be empty")
	}
	if c.Performance.Iterations < 1 {
		return fmt.Errorf("performance.iterations must be >= 1")
	}
	if _, err := c.MaxFileSizeBytes(); err != nil {
		return err
	}
	return c.Evolution.Validate()
}

// Validate checks the evolution section on its own; the evolve command
// re-runs it after command-line flags have been merged in.
func (e EvolutionConfig) Validate() error {
	if e.Population < 1 || e.Generations < 1 {
		return fmt.Errorf("evolution.population and evolution.generations must be >= 1")
	}
	if e.Elite < 1 || e.Elite > e.Population {
		return fmt.Errorf("evolution.elite must be between 1 and evolution.population")
	}
	if e.Mutation < 0 || e.Mutation > 1 {
		return fmt.Errorf("evolution.mutation must be between 0.0 and 1.0")
	}
	switch e.Target {
	case "compress", "decompress", "balanced":
	default:
		return fmt.Errorf("evolution.target must be compress, decompress or balanced, got %q", e.Target)
	}
	switch e.ScoreMode {
	case "best", "average":
	default:
		return fmt.Errorf("evolution.score_mode must be best or average, got %q", e.ScoreMode)
	}
	return nil
}

// ApplyEnvOverrides adjusts a loaded configuration from the process
// environment, so CI runs can tweak settings without editing the YAML
// file. The .env file loaded at startup feeds these too.
func (c *Config) ApplyEnvOverrides() {
	c.TestSettings.LogLevel = env.GetEnvString("HARNESS_LOG_LEVEL", c.TestSettings.LogLevel)
	c.Performance.Iterations = env.GetEnvInt("HARNESS_BENCH_ITERATIONS", c.Performance.Iterations)
	timeout := env.GetEnvDuration("HARNESS_COMMAND_TIMEOUT", time.Duration(c.Performance.TimeoutSecs)*time.Second)
	c.Performance.TimeoutSecs = int(timeout / time.Second)
	c.Evolution.Mutation = env.GetEnvFloat("HARNESS_EVOLVE_MUTATION", c.Evolution.Mutation)
	c.Evolution.Resume = env.GetEnvBool("HARNESS_EVOLVE_RESUME", c.Evolution.Resume)
}

// MaxFileSizeBytes parses sizes like "100MB" or "512KB".
func (c Config) MaxFileSizeBytes() (uint64, error) {
	if c.Performance.MaxFileSize == "" {
		return 100 * 1024 * 1024, nil
	}
	size, err := humanize.ParseBytes(c.Performance.MaxFileSize)
	if err != nil {
		return 0, fmt.Errorf("invalid performance.max_file_size %q: %w", c.Performance.MaxFileSize, err)
	}
	return size, nil
}
