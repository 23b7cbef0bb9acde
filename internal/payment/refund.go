package payment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"paysim/internal/helpers/random"
	"paysim/internal/types"
)

// ProcessRefund simulates a refund against any payment id; the id is not checked for existence.
func (s *Simulator) ProcessRefund(ctx context.Context, req types.RefundRequest) (types.RefundResult, error) {
	if missing := s.missingFields(req); len(missing) > 0 {
		s.emitter.Error(ctx, "refund_validation_failed", "Refund request is missing required fields",
			zap.Strings("missing_fields", missing),
			zap.String("payment_id", req.PaymentID),
			zap.Int("status_code", types.OutcomeValidationError.StatusCode()),
		)
		return types.RefundResult{
			Outcome:       types.OutcomeValidationError,
			PaymentID:     req.PaymentID,
			Reason:        types.ReasonMissingFields,
			MissingFields: missing,
		}, nil
	}

	refundID := random.RefundID(s.rnd)
	delay := s.policy.RefundDelay.draw(s.rnd)
	base := []zap.Field{
		zap.String("refund_id", refundID),
		zap.String("payment_id", req.PaymentID),
		zap.Int64("processing_time", delay.Milliseconds()),
	}

	s.emitter.Info(ctx, "refund_processing_started", "Processing refund",
		append(base, zap.Float64("amount", req.Amount), zap.String("reason", req.Reason))...)

	if err := s.sleep(ctx, delay); err != nil {
		return types.RefundResult{}, fmt.Errorf("refund %s interrupted: %w", refundID, err)
	}

	res := types.RefundResult{
		RefundID:       refundID,
		PaymentID:      req.PaymentID,
		ProcessingTime: delay,
		Amount:         req.Amount,
		Outcome:        types.OutcomeSuccess,
	}
	if random.Chance(s.rnd, s.policy.RefundFailureRate) {
		res.Outcome = types.OutcomeProcessorFailure
		s.emitter.Error(ctx, "refund_processor_error", "Refund processor error",
			append(base, zap.Int("status_code", res.StatusCode()))...)
		return res, nil
	}

	res.CompletedAt = s.now().UTC()
	s.emitter.Info(ctx, "refund_completed", "Refund processed successfully",
		append(base, zap.Int("status_code", res.StatusCode()), zap.Float64("amount", res.Amount))...)
	return res, nil
}
