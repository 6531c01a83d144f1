package logger

import (
	"go.uber.org/zap"
)

// LoggerAdapter provides a unified interface over the categorized
// multi-logger and a plain console logger. Call sites that only want a
// *zap.Logger use GetSingleLogger; run/error events land in the category
// files when the multi-logger is attached.
type LoggerAdapter struct {
	multiLogger *MultiLogger
	console     *zap.Logger
	useMulti    bool
}

// NewLoggerAdapter creates an adapter combining category files with a
// console logger for general output
func NewLoggerAdapter(multiLogger *MultiLogger, console *zap.Logger) *LoggerAdapter {
	if console == nil {
		console = NewDefault()
	}
	return &LoggerAdapter{
		multiLogger: multiLogger,
		console:     console,
		useMulti:    multiLogger != nil,
	}
}

// NewSingleLoggerAdapter creates an adapter for a single logger (no category files)
func NewSingleLoggerAdapter(logger *zap.Logger) *LoggerAdapter {
	return &LoggerAdapter{
		console:  logger,
		useMulti: false,
	}
}

// Run returns the run event logger
func (la *LoggerAdapter) Run() *zap.Logger {
	if la.useMulti {
		return la.multiLogger.Run()
	}
	return la.console
}

// Error returns the error logger
func (la *LoggerAdapter) Error() *zap.Logger {
	if la.useMulti {
		return la.multiLogger.Error()
	}
	return la.console
}

// LogError logs an error to the console and, when attached, the error file
func (la *LoggerAdapter) LogError(msg string, fields ...zap.Field) {
	la.console.Error(msg, fields...)
	if la.useMulti {
		la.multiLogger.LogAppError(msg, fields...)
	}
}

// LogRunEvent records a run lifecycle event
func (la *LoggerAdapter) LogRunEvent(event string, fields ...zap.Field) {
	if la.useMulti {
		la.multiLogger.LogRunEvent(event, fields...)
		return
	}
	la.console.Info(event, fields...)
}

// Sync flushes all loggers
func (la *LoggerAdapter) Sync() error {
	if la.useMulti {
		if err := la.multiLogger.Sync(); err != nil {
			return err
		}
	}
	return la.console.Sync()
}

// GetMultiLogger returns the underlying multi-logger (nil when not attached)
func (la *LoggerAdapter) GetMultiLogger() *MultiLogger {
	return la.multiLogger
}

// GetSingleLogger returns the console logger
func (la *LoggerAdapter) GetSingleLogger() *zap.Logger {
	return la.console
}
