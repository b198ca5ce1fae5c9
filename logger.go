package stateset

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Logger is the minimal structured logging interface the client emits to.
// Keys and values alternate in keysAndValues, slog style.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// slogLogger adapts a *slog.Logger to the Logger interface.
type slogLogger struct {
	l *slog.Logger
}

// NewSlogLogger wraps a *slog.Logger for use with WithLogger. Passing nil
// uses slog.Default().
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return &slogLogger{l: l}
}

func (s *slogLogger) Debug(msg string, keysAndValues ...any) { s.l.Debug(msg, keysAndValues...) }
func (s *slogLogger) Info(msg string, keysAndValues ...any)  { s.l.Info(msg, keysAndValues...) }
func (s *slogLogger) Warn(msg string, keysAndValues ...any)  { s.l.Warn(msg, keysAndValues...) }
func (s *slogLogger) Error(msg string, keysAndValues ...any) { s.l.Error(msg, keysAndValues...) }

// DebugConfig gates the client's diagnostic logging so it stays quiet unless
// asked. RequestIDGen produces the X-Request-ID sent on every request.
type DebugConfig struct {
	Enabled      bool
	LogRequests  bool
	LogRetries   bool
	LogRateLimit bool
	LogCircuit   bool
	RequestIDGen func() string
}

// DefaultDebugConfig enables all categories with the default ID generator.
func DefaultDebugConfig() *DebugConfig {
	return &DebugConfig{
		Enabled:      false,
		LogRequests:  true,
		LogRetries:   true,
		LogRateLimit: true,
		LogCircuit:   true,
		RequestIDGen: defaultRequestID,
	}
}

// defaultRequestID returns "stateset-<unix-millis>-<random>": monotonic
// enough for log ordering, random enough to never collide.
func defaultRequestID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("stateset-%d-%s", time.Now().UnixMilli(), suffix[:12])
}
