package logging

const (
	BaseDataDir = "data"
	LogsDir     = "logs"
	TimeFormat  = "2006-01-02 15:04:05"
)

type LogLevel string

const (
	Development LogLevel = "development" // prints debug and above
	Production  LogLevel = "production"  // prints info and above
)

// ProcessName type to ensure valid process names
type ProcessName string

const (
	RunnerProcess    ProcessName = "runner"
	BenchmarkProcess ProcessName = "benchmark"
	EvolveProcess    ProcessName = "evolve"
	FormatsProcess   ProcessName = "formats"
)

type LoggerConfig struct {
	LogDir      string
	ProcessName ProcessName
	Environment LogLevel
}

func NewDefaultConfig(processName ProcessName) LoggerConfig {
	return LoggerConfig{
		LogDir:      BaseDataDir,
		ProcessName: processName,
		Environment: Development,
	}
}

// Logger is the logging interface shared by every harness component.
type Logger interface {
	Debug(msg string, tags ...any)
	Info(msg string, tags ...any)
	Warn(msg string, tags ...any)
	Error(msg string, tags ...any)
	Fatal(msg string, tags ...any)
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Fatalf(template string, args ...interface{})
	With(tags ...any) Logger
}
