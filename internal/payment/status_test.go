package payment

import (
	"context"
	"slices"
	"testing"

	"paysim/internal/helpers/random"
	"paysim/internal/helpers/random/randomtest"
	"paysim/internal/types"
)

func TestLookupStatusAnyID(t *testing.T) {
	sim, _, _ := newTestSimulator(random.Seeded(11))
	for _, id := range []string{"", "pmt_abcdefghij", "not-a-payment", "%%%", "pmt_"} {
		res, err := sim.LookupStatus(context.Background(), id)
		if err != nil {
			t.Fatalf("lookup %q: %v", id, err)
		}
		if !slices.Contains(types.PaymentStatuses, res.Status) {
			t.Fatalf("lookup %q returned unknown status %q", id, res.Status)
		}
		if res.PaymentID != id {
			t.Fatalf("expected id %q echoed, got %q", id, res.PaymentID)
		}
		if ms := res.ProcessingTime.Milliseconds(); ms < 10 || ms > 300 {
			t.Fatalf("processing time %dms outside [10, 300]", ms)
		}
	}
}

func TestLookupStatusEmitsBeforeAndAfter(t *testing.T) {
	sim, recorded, _ := newTestSimulator(randomtest.NewScript().Ints(3))
	res, _ := sim.LookupStatus(context.Background(), "pmt_x")
	if res.Status != types.StatusRefunded {
		t.Fatalf("expected forced %q, got %q", types.StatusRefunded, res.Status)
	}
	entries := recorded.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 events, got %d", len(entries))
	}
	if entries[0].ContextMap()["event_type"] != "payment_status_requested" ||
		entries[1].ContextMap()["event_type"] != "payment_status_retrieved" {
		t.Fatalf("unexpected event order %v / %v", entries[0].ContextMap(), entries[1].ContextMap())
	}
}
