package payment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"paysim/internal/helpers/random"
	"paysim/internal/types"
)

// LookupStatus reports a uniformly random status. No payment history is kept,
// so any id, including an empty one, gets an answer.
func (s *Simulator) LookupStatus(ctx context.Context, paymentID string) (types.StatusResult, error) {
	delay := s.policy.StatusDelay.draw(s.rnd)
	s.emitter.Info(ctx, "payment_status_requested", "Looking up payment status",
		zap.String("payment_id", paymentID),
		zap.Int64("processing_time", delay.Milliseconds()),
	)

	if err := s.sleep(ctx, delay); err != nil {
		return types.StatusResult{}, fmt.Errorf("status lookup for %q interrupted: %w", paymentID, err)
	}

	res := types.StatusResult{
		PaymentID:      paymentID,
		Status:         random.Pick(s.rnd, types.PaymentStatuses),
		ProcessingTime: delay,
		CheckedAt:      s.now().UTC(),
	}
	s.emitter.Info(ctx, "payment_status_retrieved", "Payment status retrieved",
		zap.String("payment_id", paymentID),
		zap.String("status", res.Status),
		zap.Int64("processing_time", delay.Milliseconds()),
	)
	return res, nil
}
