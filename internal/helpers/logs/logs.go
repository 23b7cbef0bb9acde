package logs

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"paysim/internal/correlation"
)

// Options configures the process logger shared by every component.
type Options struct {
	Service string
	Level   string
	// Output defaults to stdout.
	Output zapcore.WriteSyncer
	// Stream, when set, receives a copy of every enabled record.
	Stream *StreamShipper
}

// NewLogger builds a JSON logger tagged with the service name.
func NewLogger(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if s := strings.TrimSpace(opts.Level); s != "" {
		parsed, err := zapcore.ParseLevel(s)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", s, err)
		}
		level = parsed
	}
	out := opts.Output
	if out == nil {
		out = zapcore.Lock(os.Stdout)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.MessageKey = "message"
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), out, level)}
	if opts.Stream != nil {
		cores = append(cores, opts.Stream.Core(level))
	}
	logger := zap.New(zapcore.NewTee(cores...))
	if opts.Service != "" {
		logger = logger.With(zap.String("service", opts.Service))
	}
	return logger, nil
}

// Emitter writes structured lifecycle events. Every event carries the
// correlation ids found on the context plus its event type.
type Emitter struct {
	logger *zap.Logger
}

func NewEmitter(logger *zap.Logger) *Emitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Emitter{logger: logger}
}

func (e *Emitter) Info(ctx context.Context, eventType, message string, fields ...zap.Field) {
	e.Log(ctx, zapcore.InfoLevel, eventType, message, fields...)
}

func (e *Emitter) Error(ctx context.Context, eventType, message string, fields ...zap.Field) {
	e.Log(ctx, zapcore.ErrorLevel, eventType, message, fields...)
}

// Log emits at an explicit level. Levels above error are clamped so an event never exits the process.
func (e *Emitter) Log(ctx context.Context, level zapcore.Level, eventType, message string, fields ...zap.Field) {
	if level > zapcore.ErrorLevel {
		level = zapcore.ErrorLevel
	}
	ce := e.logger.Check(level, message)
	if ce == nil {
		return
	}
	cc := correlation.FromContext(ctx)
	all := make([]zap.Field, 0, len(fields)+3)
	all = append(all,
		zap.String("trace_id", cc.TraceID),
		zap.String("transaction_id", cc.TransactionID),
		zap.String("event_type", eventType),
	)
	all = append(all, fields...)
	ce.Write(all...)
}

func (e *Emitter) Logger() *zap.Logger { return e.logger }

func (e *Emitter) Sync() {
	_ = e.logger.Sync()
}
