package templating

import (
	"context"
	"log/slog"
	"os"
	"sync"
)

var (
	globalLogger *slog.Logger
	loggerLevel  = new(slog.LevelVar)
	loggerMutex  sync.RWMutex
	loggerOnce   sync.Once
)

func initGlobalLogger() {
	loggerOnce.Do(func() {
		loggerLevel.Set(parseLogLevel(GetGlobalConfig().LogLevel))
		globalLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: loggerLevel,
		}))
	})
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger returns the package logger.
func Logger() *slog.Logger {
	initGlobalLogger()

	loggerMutex.RLock()
	defer loggerMutex.RUnlock()
	return globalLogger
}

// SetLogger replaces the package logger. Embedding applications use this to
// route engine logging into their own slog handler.
func SetLogger(logger *slog.Logger) {
	initGlobalLogger()

	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	globalLogger = logger
}

// updateLoggerFromConfig re-applies the configured log level. It only
// affects the default handler; a logger installed via SetLogger manages its
// own level.
func updateLoggerFromConfig() {
	initGlobalLogger()
	loggerLevel.Set(parseLogLevel(GetGlobalConfig().LogLevel))
}

func debugEnabled(logger *slog.Logger) bool {
	return logger.Enabled(context.Background(), slog.LevelDebug)
}
