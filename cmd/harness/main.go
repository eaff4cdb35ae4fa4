package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"

	"github.com/gkrost/7z/internal/evolve"
	"github.com/gkrost/7z/internal/formats"
	"github.com/gkrost/7z/internal/metrics"
	"github.com/gkrost/7z/internal/runner"
	"github.com/gkrost/7z/pkg/config"
	"github.com/gkrost/7z/pkg/env"
	"github.com/gkrost/7z/pkg/logging"
)

func main() {
	app := &cli.App{
		Name:        "7z-harness",
		Usage:       "7-Zip test and benchmark harness",
		Description: "Drives the archiver through format tests, performance benchmarks and a genetic compiler-flag search.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "test_config.yaml",
				Usage:   "path to the YAML configuration file",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "address to expose Prometheus metrics on (empty disables)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the full suite: generate, format tests, benchmark, report",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "formats", Usage: "comma-separated formats to test (default: configured core formats)"},
					&cli.BoolFlag{Name: "no-benchmark", Usage: "skip the performance benchmark"},
				},
				Action: runAction,
			},
			{
				Name:  "formats",
				Usage: "run format test suites only",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "formats", Usage: "comma-separated formats to test"},
				},
				Action: formatsAction,
			},
			{
				Name:   "benchmark",
				Usage:  "run performance benchmarks only",
				Action: benchmarkAction,
			},
			{
				Name:   "generate",
				Usage:  "generate the test data corpus",
				Action: generateAction,
			},
			{
				Name:  "evolve",
				Usage: "run the genetic compiler-flag search",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "population", Usage: "candidates per generation"},
					&cli.IntFlag{Name: "generations", Usage: "number of generations"},
					&cli.Int64Flag{Name: "seed", Usage: "random seed"},
					&cli.StringFlag{Name: "target", Usage: "compress, decompress or balanced"},
					&cli.BoolFlag{Name: "no-resume", Usage: "ignore previously stored results"},
					&cli.BoolFlag{Name: "blacklist-reset", Usage: "retry previously failed flag combinations"},
				},
				Action: evolveAction,
			},
			{
				Name:  "schedule",
				Usage: "run the full suite on a recurring schedule",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "cron",
						Value: "0 2 * * *",
						Usage: "cron expression for recurring runs",
					},
				},
				Action: scheduleAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalln("Application failed. Message:", err)
	}
}

// setup loads the environment and configuration, initializes the process
// logger and optionally starts the metrics endpoint.
func setup(c *cli.Context, process logging.ProcessName) (config.Config, logging.Logger, func(), error) {
	env.LoadDotEnv()

	cfg, err := loadConfig(c)
	if err != nil {
		return cfg, nil, nil, err
	}

	if err := logging.InitServiceLogger(logging.NewDefaultConfig(process)); err != nil {
		return cfg, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger := logging.GetServiceLogger()

	stopMetrics := make(chan struct{})
	cleanup := func() {
		close(stopMetrics)
		logging.Shutdown()
	}
	if addr := c.String("metrics-addr"); addr != "" {
		metrics.Serve(addr)
		go metrics.StartSystemMetricsCollection(stopMetrics)
		logger.Infof("metrics available on %s/metrics", addr)
	}
	return cfg, logger, cleanup, nil
}

// loadConfig reads the configured YAML file and applies environment
// overrides on top. When the user did not pass --config and the default
// file is absent, built-in defaults apply.
func loadConfig(c *cli.Context) (config.Config, error) {
	path := c.String("config")
	cfg := config.Default()
	if c.IsSet("config") || fileIsPresent(path) {
		loaded, err := config.Load(path)
		if err != nil {
			return loaded, err
		}
		cfg = loaded
	}
	cfg.ApplyEnvOverrides()
	return cfg, nil
}

func fileIsPresent(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func splitFormats(c *cli.Context) []string {
	raw := c.String("formats")
	if raw == "" {
		return nil
	}
	var names []string
	for _, name := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names
}

func runAction(c *cli.Context) error {
	cfg, logger, cleanup, err := setup(c, logging.RunnerProcess)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	r, err := runner.NewRunner(cfg, logger)
	if err != nil {
		logger.Fatalf("archiver discovery failed: %v", err)
	}
	_, err = r.RunAll(ctx, splitFormats(c), !c.Bool("no-benchmark"))
	return err
}

func formatsAction(c *cli.Context) error {
	cfg, logger, cleanup, err := setup(c, logging.FormatsProcess)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	r, err := runner.NewRunner(cfg, logger)
	if err != nil {
		logger.Fatalf("archiver discovery failed: %v", err)
	}
	if err := r.GenerateTestData(); err != nil {
		return err
	}
	results, err := r.RunFormats(ctx, splitFormats(c))
	if err != nil {
		return err
	}
	for _, fr := range results {
		logger.Infof("%s: %d/%d passed, %d skipped", fr.Format, fr.Passed, fr.Total, fr.Skipped)
	}
	if !formats.Passed(results) {
		return fmt.Errorf("one or more format tests failed")
	}
	return nil
}

func benchmarkAction(c *cli.Context) error {
	cfg, logger, cleanup, err := setup(c, logging.BenchmarkProcess)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	r, err := runner.NewRunner(cfg, logger)
	if err != nil {
		logger.Fatalf("archiver discovery failed: %v", err)
	}
	if err := r.GenerateTestData(); err != nil {
		return err
	}
	_, err = r.RunAll(ctx, nil, true)
	return err
}

func generateAction(c *cli.Context) error {
	cfg, logger, cleanup, err := setup(c, logging.RunnerProcess)
	if err != nil {
		return err
	}
	defer cleanup()

	r, err := runner.NewRunner(cfg, logger)
	if err != nil {
		logger.Fatalf("archiver discovery failed: %v", err)
	}
	return r.GenerateTestData()
}

func evolveAction(c *cli.Context) error {
	cfg, logger, cleanup, err := setup(c, logging.EvolveProcess)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	evo := cfg.Evolution
	if c.IsSet("population") {
		evo.Population = c.Int("population")
	}
	if c.IsSet("generations") {
		evo.Generations = c.Int("generations")
	}
	if c.IsSet("seed") {
		evo.Seed = c.Int64("seed")
	}
	if c.IsSet("target") {
		evo.Target = c.String("target")
	}
	if c.Bool("no-resume") {
		evo.Resume = false
	}
	if c.Bool("blacklist-reset") {
		evo.BlacklistReset = true
	}
	// Flag overrides bypass the validation done at config load time.
	if err := evo.Validate(); err != nil {
		return err
	}

	engine := evolve.NewEngine(evo, logger)
	best, err := engine.Run(ctx)
	if err != nil {
		return err
	}
	if best == nil {
		return fmt.Errorf("flag search produced no successful evaluations")
	}
	logger.Infof("best score: %.2f", best.Score)
	logger.Infof("best flags: %s", best.Flags)
	if best.LTO != "" {
		logger.Infof("best lto:   %s", best.LTO)
	}
	return nil
}

func scheduleAction(c *cli.Context) error {
	cfg, logger, cleanup, err := setup(c, logging.RunnerProcess)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	r, err := runner.NewRunner(cfg, logger)
	if err != nil {
		logger.Fatalf("archiver discovery failed: %v", err)
	}

	spec := c.String("cron")
	scheduler := cron.New()
	_, err = scheduler.AddFunc(spec, func() {
		logger.Infof("scheduled run starting")
		if _, err := r.RunAll(ctx, nil, true); err != nil {
			logger.Errorf("scheduled run failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}

	logger.Infof("scheduler started with cron %q", spec)
	scheduler.Start()
	<-ctx.Done()
	logger.Info("shutting down scheduler")
	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
	return nil
}
