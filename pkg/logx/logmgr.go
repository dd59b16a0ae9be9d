//nolint:gochecknoglobals
package logx

import (
	"context"
	"log"
	"sync"
)

// Config is the subset of the application configuration the logger needs.
type Config interface {
	GetServiceName() string
	GetVersion() string
	GetEnvironment() string
	GetLogLevel() string
}

type ServiceContext struct {
	Environment string `json:"environment"`
	Version     string `json:"version"`
}

// Logger - logger interface.
type Logger interface {
	// LogInfo logs a message at Info level.
	LogInfo(ctx context.Context, msg string)
	// LogDebug logs a message at Debug level.
	LogDebug(ctx context.Context, msg string)
	// LogWarning logs a message at Warning level.
	LogWarning(ctx context.Context, msg string, errs ...error)
	// LogError logs a message at Error level.
	LogError(ctx context.Context, msg string, errs ...error)
	// LogPanic logs a message at Panic level then panics.
	LogPanic(ctx context.Context, msg string, errs ...error)
	// LogFatal logs a message at Fatal Level.
	// The logger then calls os.Exit(1), even if logging at FatalLevel is
	// disabled.
	LogFatal(ctx context.Context, msg string, errs ...error)

	GetLogger() interface{}
}

var (
	lock   sync.RWMutex
	logger Logger
)

// DefaultLogger - Logger used before SetupLogger is called. It writes plain lines through the log package.
type DefaultLogger struct{}

// GetLogger - returns an instance of the Logger.
// If called before SetupLogger the DefaultLogger will be returned.
func GetLogger() Logger {
	lock.RLock()
	defer lock.RUnlock()

	if logger == nil {
		return &DefaultLogger{}
	}

	return logger
}

// SetLogger replaces the process logger. Passing nil restores the DefaultLogger.
func SetLogger(l Logger) {
	lock.Lock()
	defer lock.Unlock()

	logger = l
}

func (nl *DefaultLogger) LogInfo(ctx context.Context, msg string) {
	log.Println("INFO " + msg)
}

func (nl *DefaultLogger) LogDebug(ctx context.Context, msg string) {
	log.Println("DEBUG " + msg)
}

func (nl *DefaultLogger) LogWarning(ctx context.Context, msg string, errs ...error) {
	log.Println(withErrors("WARN "+msg, errs)...)
}

func (nl *DefaultLogger) LogError(ctx context.Context, msg string, errs ...error) {
	log.Println(withErrors("ERROR "+msg, errs)...)
}

func (nl *DefaultLogger) LogPanic(ctx context.Context, msg string, errs ...error) {
	log.Panicln(withErrors("PANIC "+msg, errs)...)
}

func (nl *DefaultLogger) LogFatal(ctx context.Context, msg string, errs ...error) {
	log.Fatalln(withErrors("FATAL "+msg, errs)...)
}

// withErrors returns the log line arguments, leaving errs out when there are none.
func withErrors(line string, errs []error) []any {
	if len(errs) == 0 {
		return []any{line}
	}

	return []any{line, errs}
}

// GetLogger noop.
func (nl *DefaultLogger) GetLogger() interface{} { return nil }
