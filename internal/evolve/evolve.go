package evolve

import (
	"context"
	"crypto/sha1"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gkrost/7z/internal/metrics"
	"github.com/gkrost/7z/internal/profiler"
	"github.com/gkrost/7z/pkg/config"
	"github.com/gkrost/7z/pkg/logging"
)

const buildTimeout = 10 * time.Minute

// Best is the highest-scoring configuration seen across all generations.
type Best struct {
	Score float64  `json:"score"`
	Flags []string `json:"flags"`
	LTO   string   `json:"lto"`
}

// Engine runs the population-based flag search: one candidate, one clean
// build, one benchmark at a time. The only concurrency is the resource
// sampler inside the command executor.
type Engine struct {
	cfg    config.EvolutionConfig
	store  *Store
	build  *profiler.Profiler
	bench  *profiler.Profiler
	logger logging.Logger
	rng    *rand.Rand

	cache     map[string]Record
	blacklist map[string]struct{}
}

func NewEngine(cfg config.EvolutionConfig, logger logging.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		store:  NewStore(cfg.Results),
		build:  profiler.New(logger, profiler.WithTimeout(buildTimeout)),
		bench:  profiler.New(logger),
		logger: logger,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}
}

type scored struct {
	candidate Candidate
	score     float64
}

// Run executes the configured number of generations and returns the best
// result, or nil when every evaluation failed. Only setup failures (an
// unreadable results log, an append error) are returned as errors; failed
// builds and benchmarks are data.
func (e *Engine) Run(ctx context.Context) (*Best, error) {
	if e.cfg.Population < 1 || e.cfg.Generations < 1 || e.cfg.Elite < 1 {
		return nil, fmt.Errorf("evolution requires population, generations and elite >= 1, got %d/%d/%d",
			e.cfg.Population, e.cfg.Generations, e.cfg.Elite)
	}

	cache := make(map[string]Record)
	if e.cfg.Resume {
		loaded, err := e.store.Load()
		if err != nil {
			return nil, err
		}
		cache = loaded
	}
	e.cache = cache
	e.blacklist = BuildBlacklist(cache, e.cfg.BlacklistReset)

	population := make([]Candidate, e.cfg.Population)
	for i := range population {
		population[i] = AvoidBlacklist(RandomCandidate(e.rng), e.rng, e.blacklist)
	}
	population[0] = AvoidBlacklist(Baseline(), e.rng, e.blacklist)

	var best *Best

	for generation := 1; generation <= e.cfg.Generations; generation++ {
		if err := ctx.Err(); err != nil {
			return best, err
		}

		ranked, err := e.evaluateGeneration(ctx, population, generation)
		if err != nil {
			return best, err
		}

		top := ranked
		if len(top) > e.cfg.Elite {
			top = top[:e.cfg.Elite]
		}
		if len(top) > 0 && (best == nil || top[0].score > best.Score) {
			best = &Best{
				Score: top[0].score,
				Flags: top[0].candidate.FlagList(e.cfg.BaseFlags),
				LTO:   top[0].candidate.LTO,
			}
			metrics.EvolveBestScore.Set(best.Score)
		}

		e.logger.Infof("generation %d: best score %.2f", generation, ranked[0].score)

		population = e.refill(top)
	}

	return best, nil
}

// evaluateGeneration scores every candidate, reusing cached results and
// persisting each fresh evaluation before moving to the next one, then
// returns the candidates ranked by descending score.
func (e *Engine) evaluateGeneration(ctx context.Context, population []Candidate, generation int) ([]scored, error) {
	ranked := make([]scored, 0, len(population))

	for _, candidate := range population {
		key := candidate.Key()

		if record, ok := e.cache[key]; ok {
			score := record.Score
			if record.Status != "" && record.Status != StatusOK {
				e.blacklist[key] = struct{}{}
				score = 0.0
			}
			ranked = append(ranked, scored{candidate, score})
			continue
		}

		score, output, errText, status := e.buildAndBench(ctx, candidate)
		if status != StatusOK {
			e.blacklist[key] = struct{}{}
		}
		record := Record{
			Key:        key,
			Score:      score,
			Flags:      candidate.FlagList(e.cfg.BaseFlags),
			LTO:        candidate.LTO,
			Target:     e.cfg.Target,
			ScoreMode:  e.cfg.ScoreMode,
			Timestamp:  float64(time.Now().UnixNano()) / float64(time.Second),
			Generation: generation,
			Status:     status,
			Error:      errText,
		}
		// Durability before continuing: a crash loses at most this one
		// in-flight evaluation.
		if err := e.store.Append(record); err != nil {
			return nil, err
		}
		e.cache[key] = record
		metrics.EvolveEvaluationsTotal.WithLabelValues(status).Inc()

		if e.cfg.KeepLogs != "" {
			e.writeEvaluationLog(generation, key, output, errText)
		}

		ranked = append(ranked, scored{candidate, score})
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	return ranked, nil
}

// refill keeps the elite unmodified and fills the rest of the next
// population with mutated crossover children of random elite parents.
func (e *Engine) refill(top []scored) []Candidate {
	next := make([]Candidate, 0, e.cfg.Population)
	for _, s := range top {
		next = append(next, s.candidate)
	}
	for len(next) < e.cfg.Population {
		parentA := top[e.rng.Intn(len(top))].candidate
		parentB := top[e.rng.Intn(len(top))].candidate
		child := Mutate(Crossover(parentA, parentB, e.rng), e.rng, e.cfg.Mutation)
		next = append(next, AvoidBlacklist(child, e.rng, e.blacklist))
	}
	return next
}

// buildAndBench rebuilds the archiver from a clean build directory with the
// candidate's flags, then runs its benchmark mode. Returns score, benchmark
// output, error text and status.
func (e *Engine) buildAndBench(ctx context.Context, candidate Candidate) (float64, string, string, string) {
	flags := strings.Join(candidate.FlagList(e.cfg.BaseFlags), " ")
	buildDir := e.cfg.BuildDir
	absBuildDir := buildDir
	if !filepath.IsAbs(absBuildDir) {
		absBuildDir = filepath.Join(e.cfg.RepoRoot, buildDir)
	}

	// The build directory is owned by this evaluation alone; flags from a
	// previous candidate must not leak into this measurement.
	if err := os.RemoveAll(absBuildDir); err != nil {
		return 0.0, "", err.Error(), StatusBuildFailed
	}

	makeCmd := []string{
		"make",
		"-f", e.cfg.Makefile,
		"O=" + buildDir,
		"CFLAGS_BASE2=" + flags,
		"CXXFLAGS_BASE2=" + flags,
		"FLAGS_FLTO=" + candidate.LTO,
		fmt.Sprintf("-j%d", e.cfg.Jobs),
		"-B",
	}
	buildResult := e.build.ProfileCommand(ctx, makeCmd, e.cfg.RepoRoot)
	if !buildResult.Success {
		errText := firstNonEmpty(buildResult.Stderr, buildResult.Stdout, buildResult.Profile.Error)
		return 0.0, "", errText, StatusBuildFailed
	}

	benchPath := filepath.Join(absBuildDir, e.cfg.Program)
	benchResult := e.bench.ProfileCommand(ctx, []string{benchPath, "b"}, e.cfg.RepoRoot)
	if !benchResult.Success {
		errText := firstNonEmpty(benchResult.Stderr, benchResult.Profile.Error)
		return 0.0, benchResult.Stdout, errText, StatusBenchFailed
	}

	score := ParseSpeed(benchResult.Stdout, e.cfg.Target, e.cfg.ScoreMode)
	return score, benchResult.Stdout, buildResult.Stderr, StatusOK
}

// writeEvaluationLog keeps the raw benchmark output for one evaluation.
// The filename hashes the candidate key so it is stable across runs.
func (e *Engine) writeEvaluationLog(generation int, key, output, errText string) {
	name := fmt.Sprintf("gen%d_%x.log", generation, sha1.Sum([]byte(key)))
	path := filepath.Join(e.cfg.KeepLogs, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		e.logger.Warnf("cannot create evaluation log directory: %v", err)
		return
	}
	content := output
	if errText != "" {
		content += "\n" + errText
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		e.logger.Warnf("cannot write evaluation log %s: %v", path, err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
