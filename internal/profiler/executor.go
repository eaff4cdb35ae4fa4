package profiler

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/gkrost/7z/pkg/logging"
)

// DefaultCommandTimeout is the hard wall-clock bound for benchmark
// subprocesses; format test suites use a shorter bound.
const DefaultCommandTimeout = 5 * time.Minute

// ExecutionResult is the outcome of one external command run, including the
// resource profile collected while it executed.
type ExecutionResult struct {
	Command    string        `json:"command"`
	Success    bool          `json:"success"`
	Stdout     string        `json:"stdout"`
	Stderr     string        `json:"stderr"`
	ReturnCode int           `json:"returncode"`
	Profile    ProfileResult `json:"profile"`
}

// Profiler runs external commands to completion under a timeout while a
// Sampler observes resource usage concurrently.
type Profiler struct {
	interval time.Duration
	timeout  time.Duration
	logger   logging.Logger
}

type Option func(*Profiler)

func WithSampleInterval(interval time.Duration) Option {
	return func(p *Profiler) { p.interval = interval }
}

func WithTimeout(timeout time.Duration) Option {
	return func(p *Profiler) { p.timeout = timeout }
}

func New(logger logging.Logger, opts ...Option) *Profiler {
	p := &Profiler{
		interval: DefaultSampleInterval,
		timeout:  DefaultCommandTimeout,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProfileCommand launches argv, captures its output and waits for completion
// or timeout. The returned profile's duration is the measured wall-clock
// span of the command, not the sampler's own estimate.
func (p *Profiler) ProfileCommand(ctx context.Context, argv []string, workDir string) ExecutionResult {
	result := ExecutionResult{
		Command:    strings.Join(argv, " "),
		ReturnCode: -1,
	}
	if len(argv) == 0 {
		result.Profile = ProfileResult{Success: false, Error: "empty command"}
		return result
	}

	sampler := NewSampler(p.logger, p.interval)
	sampler.Start()
	start := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	if workDir != "" {
		cmd.Dir = workDir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	end := time.Now()

	profile := sampler.Stop()
	profile.Duration = end.Sub(start)

	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	var errText string
	switch {
	case runErr == nil:
		result.Success = true
		result.ReturnCode = 0
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		// Partial output captured before the kill is retained.
		errText = "Command timed out"
		if cmd.ProcessState != nil {
			result.ReturnCode = cmd.ProcessState.ExitCode()
		}
	default:
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ReturnCode = exitErr.ExitCode()
			errText = strings.TrimSpace(stderr.String())
			if errText == "" {
				errText = runErr.Error()
			}
		} else {
			// Launch failure: executable missing, permission denied.
			errText = runErr.Error()
		}
	}

	if !result.Success {
		profile.Success = false
		profile.Error = errText
		p.logger.Debugf("command failed: %s: %s", result.Command, errText)
	}
	result.Profile = profile
	return result
}
