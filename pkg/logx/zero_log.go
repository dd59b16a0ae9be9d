package logx

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type ZeroLogWrapper struct {
	zeroLog            *zerolog.Logger
	isLocalEnvironment bool
}

// SetupLogger builds the zerolog backed Logger from the configuration and installs it
// as the process logger.
//
// Local environments get a human readable console writer, DEV/STAGE/PROD get JSON lines.
func SetupLogger(config Config) Logger {
	return SetupLoggerWithWriter(config, os.Stdout)
}

// SetupLoggerWithWriter is SetupLogger with an explicit output.
func SetupLoggerWithWriter(config Config, out io.Writer) Logger {
	zerolog.SetGlobalLevel(parseLevel(config.GetLogLevel()))

	var zLog zerolog.Logger

	isLocalEnvironment := true

	switch strings.ToUpper(config.GetEnvironment()) {
	case "DEV", "STAGE", "PROD":
		isLocalEnvironment = false
		zLog = zerolog.New(out).With().Timestamp().Logger()
	default:
		zLog = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: out != os.Stdout}).
			With().Timestamp().Logger()
	}

	zLog = zLog.With().
		Str("service", config.GetServiceName()).
		Interface("serviceContext", ServiceContext{Environment: config.GetEnvironment(), Version: config.GetVersion()}).
		Logger()

	l := &ZeroLogWrapper{
		zeroLog:            &zLog,
		isLocalEnvironment: isLocalEnvironment,
	}

	SetLogger(l)

	return l
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (lm *ZeroLogWrapper) logWithContext(_ context.Context, level zerolog.Level, errs []error, msg string) {
	logEvent := lm.zeroLog.WithLevel(level)

	switch level {
	case zerolog.DebugLevel:
		logEvent = logEvent.Str("severity", "DEBUG")
	case zerolog.InfoLevel:
		logEvent = logEvent.Str("severity", "INFO")
	case zerolog.WarnLevel:
		logEvent = logEvent.Str("severity", "WARNING")
	case zerolog.ErrorLevel:
		logEvent = logEvent.Str("severity", "ERROR")
	case zerolog.FatalLevel, zerolog.PanicLevel:
		logEvent = logEvent.Str("severity", "CRITICAL")
	}

	for _, err := range errs {
		if err != nil {
			logEvent = logEvent.Err(err)
		}
	}

	logEvent.Msg(msg)
}

func (lm *ZeroLogWrapper) LogInfo(ctx context.Context, msg string) {
	lm.logWithContext(ctx, zerolog.InfoLevel, nil, msg)
}

func (lm *ZeroLogWrapper) LogDebug(ctx context.Context, msg string) {
	lm.logWithContext(ctx, zerolog.DebugLevel, nil, msg)
}

func (lm *ZeroLogWrapper) LogWarning(ctx context.Context, msg string, errs ...error) {
	lm.logWithContext(ctx, zerolog.WarnLevel, errs, msg)
}

func (lm *ZeroLogWrapper) LogError(ctx context.Context, msg string, errs ...error) {
	lm.logWithContext(ctx, zerolog.ErrorLevel, errs, msg)
}

// LogPanic logs at panic severity, then panics with msg.
func (lm *ZeroLogWrapper) LogPanic(ctx context.Context, msg string, errs ...error) {
	lm.logWithContext(ctx, zerolog.PanicLevel, errs, msg)
	panic(msg)
}

// LogFatal logs at fatal severity, then exits with status 1.
func (lm *ZeroLogWrapper) LogFatal(ctx context.Context, msg string, errs ...error) {
	lm.logWithContext(ctx, zerolog.FatalLevel, errs, msg)
	os.Exit(1)
}

// GetLogger - returns the underlying logger.
func (lm *ZeroLogWrapper) GetLogger() interface{} {
	return lm.zeroLog
}
