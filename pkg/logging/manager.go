package logging

import "sync"

// A single process-wide logger backs every harness command. The manager
// guards one-time initialization so setup can be called from any command
// path without double-opening log files.
type LoggerManager struct {
	serviceLogger Logger
	once          sync.Once
}

var loggerManager = &LoggerManager{}

// InitServiceLogger builds the shared logger on first call; subsequent
// calls are no-ops.
func InitServiceLogger(config LoggerConfig) error {
	var err error
	loggerManager.once.Do(func() {
		loggerManager.serviceLogger, err = NewZapLogger(config)
	})
	return err
}

// GetServiceLogger panics when called before InitServiceLogger; commands
// initialize logging before touching anything else.
func GetServiceLogger() Logger {
	if loggerManager.serviceLogger == nil {
		panic("logger not initialized")
	}
	return loggerManager.serviceLogger
}

// Shutdown flushes buffered entries at process exit. Sync errors are
// ignored; syncing stdout fails on most platforms.
func Shutdown() {
	if zl, ok := loggerManager.serviceLogger.(*ZapLogger); ok && zl != nil {
		_ = zl.logger.Sync()
	}
}
