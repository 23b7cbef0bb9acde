package generator

import "testing"

func TestChooseThresholds(t *testing.T) {
	tests := []struct {
		r    float64
		want Action
	}{
		{0.0, ActionCreatePayment},
		{0.5999, ActionCreatePayment},
		{0.6, ActionCheckStatus},
		{0.7999, ActionCheckStatus},
		{0.8, ActionRefund},
		{0.9499, ActionRefund},
		{0.95, ActionHealthCheck},
		{0.9999, ActionHealthCheck},
		{1.0, ActionHealthCheck},
	}
	for _, tt := range tests {
		if got := Choose(DefaultMix, tt.r); got != tt.want {
			t.Errorf("Choose(%v) = %s, want %s", tt.r, got, tt.want)
		}
	}
}
