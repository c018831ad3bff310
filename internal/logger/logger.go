package logger

import (
	"context"
	"io"
	"strings"

	"focus-billing/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.SugaredLogger so call sites use structured key/value pairs.
type Logger struct {
	*zap.SugaredLogger
}

type ctxKey struct{}

// NewLogger builds a production logger, or a development one when the
// configured level is debug.
func NewLogger(cfg *config.Configuration) (*Logger, error) {
	zcfg := zap.NewProductionConfig()
	level := strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	if level == "debug" {
		zcfg = zap.NewDevelopmentConfig()
	}
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	zcfg.EncoderConfig.TimeKey = "timestamp"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.DisableStacktrace = true

	z, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: z.Sugar().With("service", "focus-billing", "env", cfg.Server.Env)}, nil
}

// NewNopLogger returns a logger that discards everything. Used by tests.
func NewNopLogger() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// With returns a child logger carrying the given fields.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(keysAndValues...)}
}

// IntoContext stores a request-scoped logger.
func IntoContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the request-scoped logger, or fallback when none is set.
func FromContext(ctx context.Context, fallback *Logger) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok && l != nil {
		return l
	}
	return fallback
}

// ginWriter adapts Logger to gin's io.Writer based debug output.
type ginWriter struct {
	logger *Logger
}

// GinWriter returns an io.Writer for gin.DefaultWriter.
func (l *Logger) GinWriter() io.Writer {
	return &ginWriter{logger: l}
}

func (g *ginWriter) Write(p []byte) (int, error) {
	g.logger.Debug(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
