package lakeshift

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"runtime"
	"strings"
	"sync"
)

// Logger is the logging interface used throughout the package, backed by
// log/slog by default. Replace it with SetLogger to route logs elsewhere.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	SetLogLevel(level string) error
	SetOutput(output io.Writer)
}

// callerPrettyfier provides base file name and function name from the
// calling frame.
func callerPrettyfier(frame *runtime.Frame) (string, string) {
	return path.Base(frame.Function), fmt.Sprintf("%s:%d", path.Base(frame.File), frame.Line)
}

type defaultLogger struct {
	mu        sync.RWMutex
	levelVar  *slog.LevelVar
	handlerFn func(io.Writer) slog.Handler
	inner     *slog.Logger
	output    io.Writer
}

// CreateDefaultLogger returns a new instance of the logger with the default
// configuration: text output on stdout at info level with source locations.
func CreateDefaultLogger() Logger {
	levelVar := &slog.LevelVar{}
	levelVar.Set(slog.LevelInfo)

	replaceAttr := func(groups []string, attr slog.Attr) slog.Attr {
		if attr.Key == slog.SourceKey {
			if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
				frame := &runtime.Frame{
					Function: src.Function,
					File:     src.File,
					Line:     src.Line,
				}
				function, location := callerPrettyfier(frame)
				attr.Value = slog.StringValue(strings.TrimSpace(function + " " + location))
			}
		}
		return attr
	}

	handlerFn := func(w io.Writer) slog.Handler {
		if w == nil {
			w = os.Stdout
		}
		return slog.NewTextHandler(w, &slog.HandlerOptions{
			AddSource:   true,
			Level:       levelVar,
			ReplaceAttr: replaceAttr,
		})
	}

	dLogger := &defaultLogger{
		levelVar:  levelVar,
		handlerFn: handlerFn,
		output:    os.Stdout,
	}
	dLogger.inner = slog.New(handlerFn(dLogger.output))
	return dLogger
}

func (log *defaultLogger) getLogger() *slog.Logger {
	log.mu.RLock()
	defer log.mu.RUnlock()
	return log.inner
}

// SetLogLevel sets the logging level for the calling defaultLogger.
func (log *defaultLogger) SetLogLevel(level string) error {
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}
	log.levelVar.Set(lvl)
	return nil
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "trace", "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error", "fatal":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", level)
	}
}

func (log *defaultLogger) Debugf(format string, args ...interface{}) {
	log.getLogger().Debug(fmt.Sprintf(format, args...))
}

func (log *defaultLogger) Infof(format string, args ...interface{}) {
	log.getLogger().Info(fmt.Sprintf(format, args...))
}

func (log *defaultLogger) Warnf(format string, args ...interface{}) {
	log.getLogger().Warn(fmt.Sprintf(format, args...))
}

func (log *defaultLogger) Errorf(format string, args ...interface{}) {
	log.getLogger().Error(fmt.Sprintf(format, args...))
}

func (log *defaultLogger) SetOutput(output io.Writer) {
	if output == nil {
		return
	}
	log.mu.Lock()
	log.output = output
	log.inner = slog.New(log.handlerFn(output))
	log.mu.Unlock()
}

var logger = CreateDefaultLogger()

// SetLogger installs a custom Logger for the package.
func SetLogger(inLogger Logger) {
	if inLogger == nil {
		return
	}
	logger = inLogger
}

// GetLogger returns the package logger.
func GetLogger() Logger {
	return logger
}
