// Package payment simulates a payment gateway: validation, latency and a
// probabilistic outcome for every payment, refund and status lookup.
package payment

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"paysim/internal/helpers/logs"
	"paysim/internal/helpers/random"
	"paysim/internal/types"
)

// DelayRange is an inclusive range of simulated latency in milliseconds.
type DelayRange struct {
	MinMs int
	MaxMs int
}

func (d DelayRange) draw(src random.Source) time.Duration {
	return random.Millis(src, d.MinMs, d.MaxMs)
}

// Policy holds the nominal probabilities and latencies of the simulator.
type Policy struct {
	TimeoutRate          float64
	ValidationErrorRate  float64
	ProcessorFailureRate float64
	RefundFailureRate    float64

	PaymentDelay DelayRange
	RefundDelay  DelayRange
	StatusDelay  DelayRange
}

func DefaultPolicy() Policy {
	return Policy{
		TimeoutRate:          0.05,
		ValidationErrorRate:  0.10,
		ProcessorFailureRate: 0.20,
		RefundFailureRate:    0.15,
		PaymentDelay:         DelayRange{MinMs: 50, MaxMs: 2000},
		RefundDelay:          DelayRange{MinMs: 100, MaxMs: 1600},
		StatusDelay:          DelayRange{MinMs: 10, MaxMs: 300},
	}
}

var validationReasons = []string{types.ReasonInvalidCardDetails, types.ReasonInsufficientFunds}

// Dependencies are injected by the caller; zero values get sensible defaults.
type Dependencies struct {
	Random    random.Source
	Emitter   *logs.Emitter
	Validator *validator.Validate
	Policy    *Policy
	// Sleep suspends the caller for the simulated latency.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

type Simulator struct {
	rnd      random.Source
	emitter  *logs.Emitter
	validate *validator.Validate
	policy   Policy
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
}

func NewSimulator(deps Dependencies) *Simulator {
	s := &Simulator{
		rnd:      deps.Random,
		emitter:  deps.Emitter,
		validate: deps.Validator,
		policy:   DefaultPolicy(),
		sleep:    deps.Sleep,
		now:      deps.Now,
	}
	if deps.Policy != nil {
		s.policy = *deps.Policy
	}
	if s.rnd == nil {
		s.rnd = random.Default()
	}
	if s.emitter == nil {
		s.emitter = logs.NewEmitter(nil)
	}
	if s.validate == nil {
		s.validate = NewValidator()
	}
	if s.sleep == nil {
		s.sleep = Sleep
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// NewValidator reports field errors under their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// missingFields lists the fields that failed validation. A zero or negative
// amount counts as absent.
func (s *Simulator) missingFields(v any) []string {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fields
}

type rule struct {
	outcome types.Outcome
	p       float64
}

// paymentOutcome evaluates independent draws in priority order; the first hit wins.
func (s *Simulator) paymentOutcome() (types.Outcome, string) {
	rules := []rule{
		{types.OutcomeGatewayTimeout, s.policy.TimeoutRate},
		{types.OutcomeValidationError, s.policy.ValidationErrorRate},
		{types.OutcomeProcessorFailure, s.policy.ProcessorFailureRate},
	}
	for _, r := range rules {
		if !random.Chance(s.rnd, r.p) {
			continue
		}
		if r.outcome == types.OutcomeValidationError {
			return r.outcome, random.Pick(s.rnd, validationReasons)
		}
		return r.outcome, ""
	}
	return types.OutcomeSuccess, ""
}

// ProcessPayment validates req, waits out the simulated latency and decides an
// outcome. The error is non-nil only when ctx ends during the wait.
func (s *Simulator) ProcessPayment(ctx context.Context, req types.PaymentRequest) (types.PaymentResult, error) {
	if missing := s.missingFields(req); len(missing) > 0 {
		s.emitter.Error(ctx, "payment_validation_failed", "Payment request is missing required fields",
			zap.Strings("missing_fields", missing),
			zap.Int("status_code", types.OutcomeValidationError.StatusCode()),
		)
		return types.PaymentResult{
			Outcome:       types.OutcomeValidationError,
			Reason:        types.ReasonMissingFields,
			MissingFields: missing,
		}, nil
	}

	paymentID := random.PaymentID(s.rnd)
	delay := s.policy.PaymentDelay.draw(s.rnd)
	base := []zap.Field{
		zap.String("payment_id", paymentID),
		zap.Int64("processing_time", delay.Milliseconds()),
	}

	s.emitter.Info(ctx, "payment_processing_started", "Processing payment",
		append(base,
			zap.Float64("amount", req.Amount),
			zap.String("currency", req.Currency),
			zap.String("customer_id", req.CustomerID),
		)...,
	)

	if err := s.sleep(ctx, delay); err != nil {
		return types.PaymentResult{}, fmt.Errorf("payment %s interrupted: %w", paymentID, err)
	}

	res := types.PaymentResult{
		PaymentID:      paymentID,
		ProcessingTime: delay,
		Amount:         req.Amount,
		Currency:       req.Currency,
		CustomerID:     req.CustomerID,
	}
	res.Outcome, res.Reason = s.paymentOutcome()
	status := zap.Int("status_code", res.StatusCode())

	switch res.Outcome {
	case types.OutcomeGatewayTimeout:
		s.emitter.Error(ctx, "payment_timeout", "Payment gateway timeout", append(base, status)...)
	case types.OutcomeValidationError:
		s.emitter.Error(ctx, "payment_validation_error", "Payment validation failed",
			append(base, status, zap.String("reason", res.Reason))...)
	case types.OutcomeProcessorFailure:
		s.emitter.Error(ctx, "payment_processor_error", "Payment processor error", append(base, status)...)
	default:
		res.CompletedAt = s.now().UTC()
		s.emitter.Info(ctx, "payment_completed", "Payment processed successfully",
			append(base, status,
				zap.Float64("amount", res.Amount),
				zap.String("currency", res.Currency),
				zap.String("customer_id", res.CustomerID),
			)...,
		)
	}
	return res, nil
}
