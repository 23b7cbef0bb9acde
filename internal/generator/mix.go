package generator

type Action string

const (
	ActionCreatePayment Action = "create_payment"
	ActionCheckStatus   Action = "check_status"
	ActionRefund        Action = "refund"
	ActionHealthCheck   Action = "health_check"
)

// Weighted pairs an exclusive cumulative upper bound with an action.
type Weighted struct {
	UpperBound float64
	Action     Action
}

// DefaultMix: 60% payments, 20% status lookups, 15% refunds, 5% health probes.
var DefaultMix = []Weighted{
	{UpperBound: 0.60, Action: ActionCreatePayment},
	{UpperBound: 0.80, Action: ActionCheckStatus},
	{UpperBound: 0.95, Action: ActionRefund},
	{UpperBound: 1.00, Action: ActionHealthCheck},
}

// Choose scans mix in order for the first bound above r. Draws past the last
// bound select the last action.
func Choose(mix []Weighted, r float64) Action {
	for _, w := range mix {
		if r < w.UpperBound {
			return w.Action
		}
	}
	return mix[len(mix)-1].Action
}
