package formats

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/gkrost/7z/internal/hashutil"
)

// Every archiver invocation inside a suite gets this long to finish.
const commandTimeout = 2 * time.Minute

type commandResult struct {
	Success bool
	Stdout  string
	Stderr  string
}

// session bundles the per-suite scratch state shared by all tests.
type session struct {
	env Env
}

func newSession(env Env) *session {
	return &session{env: env}
}

// run invokes the archiver with args, optionally in cwd, capturing output.
// Timeouts and launch failures surface as an unsuccessful result rather
// than an error so every test handles them the same way.
func (s *session) run(ctx context.Context, args []string, cwd string) commandResult {
	runCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, s.env.Archiver, args...)
	cmd.Dir = cwd
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Success: err == nil,
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		result.Success = false
		result.Stderr = "Command timed out"
	} else if err != nil && result.Stderr == "" {
		result.Stderr = err.Error()
	}
	return result
}

// workDir creates (or re-creates) a clean scratch directory for one test.
func (s *session) workDir(name string) (string, error) {
	dir := filepath.Join(s.env.TempDir, name)
	if err := os.RemoveAll(dir); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// filesMatch compares two files by content hash.
func filesMatch(a, b string) bool {
	ok, err := hashutil.FilesEqual(a, b)
	return err == nil && ok
}

// referenceArchives lists the pre-built archives with the given extension
// under the reference corpus, if any exist.
func (s *session) referenceArchives(ext string) []string {
	pattern := filepath.Join(s.env.TestDataDir, "reference", "*."+ext)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil
	}
	return matches
}

// timed wraps a test body with duration accounting.
func timed(name string, body func() TestResult) TestResult {
	start := time.Now()
	result := body()
	result.Name = name
	result.Duration = time.Since(start)
	return result
}

func failed(details, errText string) TestResult {
	return TestResult{Status: StatusFailed, Details: details, Error: errText}
}

func passed(details string) TestResult {
	return TestResult{Status: StatusPassed, Details: details}
}

func skipped(reason string) TestResult {
	return TestResult{Status: StatusSkipped, Details: reason}
}
