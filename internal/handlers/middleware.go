package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"paysim/internal/correlation"
	"paysim/internal/helpers/logs"
	"paysim/internal/helpers/random"
)

type CorrelationConfig struct {
	Emitter *logs.Emitter
	// NewID defaults to random UUIDv4 strings.
	NewID func() string
	// OnComplete runs after the handler chain resolves with the final status and elapsed time.
	OnComplete func(c *fiber.Ctx, cc correlation.Context, status int, elapsed time.Duration)
}

// Correlation assigns trace and transaction ids to every request, exposes them
// as response headers and on the user context, and reports completion.
func Correlation(cfg CorrelationConfig) fiber.Handler {
	if cfg.Emitter == nil {
		cfg.Emitter = logs.NewEmitter(nil)
	}
	if cfg.NewID == nil {
		cfg.NewID = random.UUID
	}
	if cfg.OnComplete == nil {
		cfg.OnComplete = requestCompleted(cfg.Emitter)
	}

	return func(c *fiber.Ctx) error {
		start := time.Now()
		cc := correlation.New(c.Get(correlation.HeaderTraceID), cfg.NewID)
		c.SetUserContext(correlation.WithContext(c.UserContext(), cc))
		c.Set(correlation.HeaderTraceID, cc.TraceID)
		c.Set(correlation.HeaderTransactionID, cc.TransactionID)

		cfg.Emitter.Info(c.UserContext(), "request_received", "Incoming request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("user_agent", c.Get(fiber.HeaderUserAgent)),
		)

		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			status = http.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}
		cfg.OnComplete(c, cc, status, time.Since(start))
		return err
	}
}

func requestCompleted(emitter *logs.Emitter) func(*fiber.Ctx, correlation.Context, int, time.Duration) {
	return func(c *fiber.Ctx, _ correlation.Context, status int, elapsed time.Duration) {
		level := zapcore.InfoLevel
		if status >= http.StatusBadRequest {
			level = zapcore.ErrorLevel
		}
		emitter.Log(c.UserContext(), level, "request_completed", "Request completed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status_code", status),
			zap.Float64("duration_ms", float64(elapsed.Microseconds())/1000),
		)
	}
}
