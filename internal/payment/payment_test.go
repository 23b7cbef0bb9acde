package payment

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"paysim/internal/helpers/logs"
	"paysim/internal/helpers/random"
	"paysim/internal/helpers/random/randomtest"
	"paysim/internal/types"
)

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

func (r *sleepRecorder) calls() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestSimulator(src random.Source) (*Simulator, *observer.ObservedLogs, *sleepRecorder) {
	core, recorded := observer.New(zapcore.DebugLevel)
	rec := &sleepRecorder{}
	sim := NewSimulator(Dependencies{
		Random:  src,
		Emitter: logs.NewEmitter(zap.New(core)),
		Sleep:   rec.sleep,
		Now:     func() time.Time { return fixedNow },
	})
	return sim, recorded, rec
}

var validPayment = types.PaymentRequest{Amount: 10, Currency: "USD", CustomerID: "c1"}

func TestProcessPaymentMissingFields(t *testing.T) {
	tests := []struct {
		name string
		req  types.PaymentRequest
		want []string
	}{
		{"no amount", types.PaymentRequest{Currency: "USD", CustomerID: "c1"}, []string{"amount"}},
		{"no currency", types.PaymentRequest{Amount: 5, CustomerID: "c1"}, []string{"currency"}},
		{"no customer", types.PaymentRequest{Amount: 5, Currency: "EUR"}, []string{"customerId"}},
		{"empty", types.PaymentRequest{}, []string{"amount", "currency", "customerId"}},
		{"card details do not help", types.PaymentRequest{CardDetails: map[string]any{"number": "4111"}}, []string{"amount", "currency", "customerId"}},
		{"negative amount", types.PaymentRequest{Amount: -3, Currency: "USD", CustomerID: "c1"}, []string{"amount"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim, recorded, rec := newTestSimulator(randomtest.NewScript(0))
			res, err := sim.ProcessPayment(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Outcome != types.OutcomeValidationError || res.Reason != types.ReasonMissingFields {
				t.Fatalf("unexpected result %+v", res)
			}
			if res.StatusCode() != 400 || !errors.Is(res.Err(), types.ErrValidation) {
				t.Fatalf("expected 400 validation error, got %d %v", res.StatusCode(), res.Err())
			}
			if strings.Join(res.MissingFields, ",") != strings.Join(tt.want, ",") {
				t.Fatalf("missing fields = %v, want %v", res.MissingFields, tt.want)
			}
			if res.PaymentID != "" {
				t.Fatalf("no payment id should be allocated, got %s", res.PaymentID)
			}
			if len(rec.calls()) != 0 {
				t.Fatal("validation failures must not be delayed")
			}
			entries := recorded.All()
			if len(entries) != 1 || entries[0].Level != zapcore.ErrorLevel {
				t.Fatalf("expected one error event, got %+v", entries)
			}
		})
	}
}

func TestProcessPaymentForcedBranches(t *testing.T) {
	tests := []struct {
		name      string
		floats    []float64
		outcome   types.Outcome
		status    int
		sentinel  error
		eventType string
	}{
		{"timeout wins first", []float64{0.01}, types.OutcomeGatewayTimeout, 504, types.ErrGatewayTimeout, "payment_timeout"},
		{"validation second", []float64{0.5, 0.05}, types.OutcomeValidationError, 400, types.ErrValidation, "payment_validation_error"},
		{"processor third", []float64{0.5, 0.5, 0.1}, types.OutcomeProcessorFailure, 500, types.ErrProcessorFailure, "payment_processor_error"},
		{"success otherwise", []float64{0.99}, types.OutcomeSuccess, 200, nil, "payment_completed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim, recorded, rec := newTestSimulator(randomtest.NewScript(tt.floats...).Ints(1))
			res, err := sim.ProcessPayment(context.Background(), validPayment)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Outcome != tt.outcome || res.StatusCode() != tt.status {
				t.Fatalf("got %s/%d, want %s/%d", res.Outcome, res.StatusCode(), tt.outcome, tt.status)
			}
			if tt.sentinel == nil && res.Err() != nil {
				t.Fatalf("expected no error, got %v", res.Err())
			}
			if tt.sentinel != nil && !errors.Is(res.Err(), tt.sentinel) {
				t.Fatalf("expected %v, got %v", tt.sentinel, res.Err())
			}
			if !strings.HasPrefix(res.PaymentID, "pmt_") || len(res.PaymentID) != 14 {
				t.Fatalf("unexpected payment id %q", res.PaymentID)
			}
			delays := rec.calls()
			if len(delays) != 1 || delays[0] != res.ProcessingTime {
				t.Fatalf("expected one delay of %s, got %v", res.ProcessingTime, delays)
			}

			terminal := recorded.FilterField(zap.String("event_type", tt.eventType)).All()
			if len(terminal) != 1 {
				t.Fatalf("expected one %s event, got %d", tt.eventType, len(terminal))
			}
			fields := terminal[0].ContextMap()
			if fields["payment_id"] != res.PaymentID || fields["processing_time"] != res.ProcessingTime.Milliseconds() {
				t.Fatalf("terminal event missing payment fields: %v", fields)
			}
			if got := len(recorded.All()); got != 2 {
				t.Fatalf("expected started + terminal events, got %d", got)
			}
		})
	}
}

func TestProcessPaymentValidationReason(t *testing.T) {
	for idx, want := range validationReasons {
		sim, _, _ := newTestSimulator(randomtest.NewScript(0.5, 0.0).Ints(idx))
		res, _ := sim.ProcessPayment(context.Background(), validPayment)
		if res.Reason != want {
			t.Fatalf("reason index %d: got %q, want %q", idx, res.Reason, want)
		}
	}
}

func TestProcessPaymentSuccessEchoesRequest(t *testing.T) {
	sim, _, _ := newTestSimulator(randomtest.NewScript(0.99))
	for i := 0; i < 1000; i++ {
		res, err := sim.ProcessPayment(context.Background(), validPayment)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Outcome != types.OutcomeSuccess || res.Amount != 10 || res.Currency != "USD" || res.CustomerID != "c1" {
			t.Fatalf("iteration %d: unexpected result %+v", i, res)
		}
		if !res.CompletedAt.Equal(fixedNow) {
			t.Fatalf("unexpected completion time %s", res.CompletedAt)
		}
	}
}

func TestProcessPaymentDelayWithinRange(t *testing.T) {
	sim, _, _ := newTestSimulator(random.Seeded(3))
	for i := 0; i < 500; i++ {
		res, _ := sim.ProcessPayment(context.Background(), validPayment)
		if ms := res.ProcessingTime.Milliseconds(); ms < 50 || ms > 2000 {
			t.Fatalf("processing time %dms outside [50, 2000]", ms)
		}
	}
}

func TestPaymentOutcomeDistribution(t *testing.T) {
	sim, _, _ := newTestSimulator(random.Seeded(2024))
	const n = 200000
	counts := make(map[types.Outcome]int)
	for i := 0; i < n; i++ {
		outcome, _ := sim.paymentOutcome()
		counts[outcome]++
	}
	want := map[types.Outcome]float64{
		types.OutcomeGatewayTimeout:   0.05,
		types.OutcomeValidationError:  0.095,
		types.OutcomeProcessorFailure: 0.171,
		types.OutcomeSuccess:          0.684,
	}
	for outcome, p := range want {
		got := float64(counts[outcome]) / n
		if math.Abs(got-p) > 0.01 {
			t.Errorf("%s: empirical %.4f, expected %.4f", outcome, got, p)
		}
	}
}

func TestProcessPaymentCancelledDuringDelay(t *testing.T) {
	sim := NewSimulator(Dependencies{Random: randomtest.NewScript(0.99)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sim.ProcessPayment(ctx, validPayment); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSleepWaits(t *testing.T) {
	start := time.Now()
	if err := Sleep(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatalf("sleep: %v", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Fatal("sleep returned early")
	}
}
