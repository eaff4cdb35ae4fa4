// Package formats holds the per-format functional test suites. Each suite
// drives the archiver binary through a sequence of archive/verify/extract
// round trips and reports a pass/fail summary per test.
package formats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gkrost/7z/internal/metrics"
	"github.com/gkrost/7z/pkg/logging"
)

type TestStatus string

const (
	StatusPassed  TestStatus = "passed"
	StatusFailed  TestStatus = "failed"
	StatusSkipped TestStatus = "skipped"
)

// TestResult is the outcome of a single named test within a suite.
type TestResult struct {
	Name     string        `json:"name"`
	Status   TestStatus    `json:"status"`
	Duration time.Duration `json:"duration"`
	Details  string        `json:"details,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// FormatResult aggregates every test a suite ran.
type FormatResult struct {
	Format  string       `json:"format"`
	Tests   []TestResult `json:"tests"`
	Total   int          `json:"total"`
	Passed  int          `json:"passed"`
	Failed  int          `json:"failed"`
	Skipped int          `json:"skipped"`
}

func (r *FormatResult) add(res TestResult) {
	r.Tests = append(r.Tests, res)
	r.Total++
	switch res.Status {
	case StatusPassed:
		r.Passed++
	case StatusSkipped:
		r.Skipped++
	default:
		r.Failed++
	}
}

// Env carries everything a suite needs to run.
type Env struct {
	Archiver    string
	TempDir     string
	TestDataDir string
	Logger      logging.Logger
}

// Suite is a named collection of archiver round-trip tests.
type Suite interface {
	Name() string
	Run(ctx context.Context) FormatResult
}

var builders = map[string]func(Env) Suite{}

// Register installs a suite constructor under its format name. Suites
// register themselves from init; there is no dynamic discovery.
func Register(name string, build func(Env) Suite) {
	builders[name] = build
}

// Names lists the registered formats in stable order.
func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the suite registered under name.
func New(name string, env Env) (Suite, error) {
	build, ok := builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown format: %s", name)
	}
	return build(env), nil
}

// Run executes the requested suites in order and returns one result per
// format. Unknown format names fail immediately.
func Run(ctx context.Context, names []string, env Env) ([]FormatResult, error) {
	results := make([]FormatResult, 0, len(names))
	for _, name := range names {
		suite, err := New(name, env)
		if err != nil {
			return results, err
		}
		env.Logger.Infof("running %s format tests", name)
		result := suite.Run(ctx)
		for _, test := range result.Tests {
			metrics.FormatTestsTotal.WithLabelValues(name, string(test.Status)).Inc()
			env.Logger.Infof("  %s: %s", test.Name, test.Status)
		}
		results = append(results, result)
	}
	return results, nil
}

// Passed reports whether no suite in the batch recorded a failure.
func Passed(results []FormatResult) bool {
	for _, r := range results {
		if r.Failed > 0 {
			return false
		}
	}
	return true
}
