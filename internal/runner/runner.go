// Package runner orchestrates a full harness run: fixture generation,
// format suites, performance benchmarks and report generation.
package runner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/gkrost/7z/internal/benchmark"
	"github.com/gkrost/7z/internal/formats"
	"github.com/gkrost/7z/internal/profiler"
	"github.com/gkrost/7z/internal/report"
	"github.com/gkrost/7z/internal/testdata"
	"github.com/gkrost/7z/pkg/config"
	"github.com/gkrost/7z/pkg/logging"
)

// archiverNames are the executable names probed on PATH, in preference
// order, followed by the in-tree build locations.
var archiverNames = []string{"7z", "7zz", "7za"}

var archiverRelPaths = []string{
	filepath.Join("CPP", "7zip", "Bundles", "Alone", "7z"),
	filepath.Join("CPP", "7zip", "Bundles", "Alone7z", "7z"),
	filepath.Join("b", "g", "7zz"),
}

// FindArchiver locates the archiver binary. The harness cannot do anything
// without it, so callers treat an error here as fatal.
func FindArchiver() (string, error) {
	for _, name := range archiverNames {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	for _, rel := range archiverRelPaths {
		if info, err := os.Stat(rel); err == nil && info.Mode().IsRegular() {
			abs, err := filepath.Abs(rel)
			if err != nil {
				return rel, nil
			}
			return abs, nil
		}
	}
	return "", fmt.Errorf("7-Zip executable not found on PATH or in build directories")
}

type Runner struct {
	cfg      config.Config
	archiver string
	logger   logging.Logger
	reporter *report.Reporter
}

func NewRunner(cfg config.Config, logger logging.Logger) (*Runner, error) {
	archiver, err := FindArchiver()
	if err != nil {
		return nil, err
	}
	logger.Infof("using archiver: %s", archiver)
	return &Runner{
		cfg:      cfg,
		archiver: archiver,
		logger:   logger,
		reporter: report.NewReporter(cfg.TestSettings.OutputDir, logger),
	}, nil
}

func (r *Runner) Archiver() string { return r.archiver }

// GenerateTestData synthesizes the fixture corpus, skipping when complete.
func (r *Runner) GenerateTestData() error {
	gen := testdata.NewGenerator(r.cfg.TestSettings.TestDataDir, r.cfg.Evolution.Seed, r.logger)
	return gen.GenerateAll()
}

// RunFormats executes the named suites, or the configured core formats
// when names is empty.
func (r *Runner) RunFormats(ctx context.Context, names []string) ([]formats.FormatResult, error) {
	if len(names) == 0 {
		names = r.cfg.Formats.CoreFormats
	}
	env := formats.Env{
		Archiver:    r.archiver,
		TempDir:     r.cfg.TestSettings.TempDir,
		TestDataDir: r.cfg.TestSettings.TestDataDir,
		Logger:      r.logger,
	}
	if err := os.MkdirAll(env.TempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return formats.Run(ctx, names, env)
}

// RunBenchmark runs the performance matrix against the generated fixtures.
func (r *Runner) RunBenchmark(ctx context.Context) (benchmark.Results, error) {
	snap := profiler.Snapshot()
	r.logger.Infof("host load before benchmark: cpu=%.1f%% mem=%.1f%%", snap.CPUPercent, snap.MemoryPercent)
	engine := benchmark.NewEngine(r.cfg, r.archiver, r.logger)
	return engine.Run(ctx)
}

// RunAll performs the complete suite and writes reports. It returns an
// error when any stage failed so the process can exit non-zero.
func (r *Runner) RunAll(ctx context.Context, formatNames []string, withBenchmark bool) (report.RunResults, error) {
	var results report.RunResults
	var failures []string

	if err := r.GenerateTestData(); err != nil {
		r.logger.Errorf("test data generation failed: %v", err)
		failures = append(failures, fmt.Sprintf("generate: %v", err))
	}

	formatResults, err := r.RunFormats(ctx, formatNames)
	results.Formats = formatResults
	if err != nil {
		r.logger.Errorf("format tests failed to run: %v", err)
		failures = append(failures, fmt.Sprintf("formats: %v", err))
	} else if !formats.Passed(formatResults) {
		failures = append(failures, "formats: one or more tests failed")
	}

	if withBenchmark {
		benchResults, err := r.RunBenchmark(ctx)
		if err != nil {
			r.logger.Errorf("benchmark failed: %v", err)
			failures = append(failures, fmt.Sprintf("benchmark: %v", err))
		} else {
			results.Benchmark = &benchResults
		}
	}

	results.Errors = failures
	if _, err := r.reporter.Generate(results); err != nil {
		r.logger.Errorf("report generation failed: %v", err)
		failures = append(failures, fmt.Sprintf("report: %v", err))
		results.Errors = failures
	}
	report.ConsoleSummary(os.Stdout, results)

	if len(failures) > 0 {
		return results, fmt.Errorf("run finished with %d failure(s)", len(failures))
	}
	return results, nil
}
