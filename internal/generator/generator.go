// Package generator drives a weighted mix of payment, status, refund and
// health calls against the payment service.
package generator

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"paysim/internal/correlation"
	"paysim/internal/helpers/logs"
	"paysim/internal/helpers/random"
	"paysim/internal/types"
)

const refundEvictionChance = 0.5

var (
	currencies    = []string{"USD", "EUR", "GBP", "BRL", "JPY"}
	cardBrands    = []string{"visa", "mastercard", "amex", "elo"}
	refundReasons = []string{"customer_request", "duplicate", "fraudulent", "product_not_received"}
)

type Config struct {
	RequestsPerMinute int
	// Duration of zero runs until the context is cancelled.
	Duration       time.Duration
	HealthInterval time.Duration
	PoolCapacity   int
	Mix            []Weighted
}

type Stats struct {
	Calls    map[Action]int
	Failures map[Action]int
	// Fallbacks counts follow-up actions replaced by a payment because the pool was empty.
	Fallbacks int
	PoolSize  int
}

func (s Stats) Total() int {
	n := 0
	for _, c := range s.Calls {
		n += c
	}
	return n
}

type Generator struct {
	client  Client
	rnd     random.Source
	emitter *logs.Emitter
	cfg     Config
	pool    *Pool

	calls     map[Action]int
	failures  map[Action]int
	fallbacks int

	inflight sync.WaitGroup
}

func New(client Client, rnd random.Source, emitter *logs.Emitter, cfg Config) *Generator {
	if rnd == nil {
		rnd = random.Default()
	}
	if emitter == nil {
		emitter = logs.NewEmitter(nil)
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 30
	}
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = time.Minute
	}
	if len(cfg.Mix) == 0 {
		cfg.Mix = DefaultMix
	}
	return &Generator{
		client:   client,
		rnd:      rnd,
		emitter:  emitter,
		cfg:      cfg,
		pool:     NewPool(cfg.PoolCapacity),
		calls:    make(map[Action]int),
		failures: make(map[Action]int),
	}
}

// Pool exposes the working set. Only read it once Run has returned.
func (g *Generator) Pool() *Pool { return g.pool }

type plan struct {
	action Action
	entry  Entry
	call   Call
}

type result struct {
	plan    plan
	reply   Reply
	err     error
	elapsed time.Duration
}

// Run ticks at the configured rate until ctx is done or the duration elapses.
// Calls still in flight at that point are waited for and their results dropped.
func (g *Generator) Run(ctx context.Context) (Stats, error) {
	if g.client == nil {
		return Stats{}, fmt.Errorf("generator has no client")
	}
	interval := time.Minute / time.Duration(g.cfg.RequestsPerMinute)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	health := time.NewTicker(g.cfg.HealthInterval)
	defer health.Stop()

	var deadline <-chan time.Time
	if g.cfg.Duration > 0 {
		timer := time.NewTimer(g.cfg.Duration)
		defer timer.Stop()
		deadline = timer.C
	}

	results := make(chan result)
	done := make(chan struct{})
	defer func() {
		close(done)
		g.inflight.Wait()
	}()

	g.emitter.Info(ctx, "generator_started", "Traffic generator started",
		zap.Int("requests_per_minute", g.cfg.RequestsPerMinute),
		zap.Duration("duration", g.cfg.Duration),
		zap.Duration("health_interval", g.cfg.HealthInterval),
	)

	for {
		select {
		case <-ctx.Done():
			return g.stop(ctx, "cancelled"), nil
		case <-deadline:
			return g.stop(ctx, "duration_elapsed"), nil
		case <-ticker.C:
			g.dispatch(g.next(), results, done)
		case <-health.C:
			g.dispatch(g.healthPlan(), results, done)
		case r := <-results:
			g.apply(r)
		}
	}
}

func (g *Generator) stop(ctx context.Context, reason string) Stats {
	stats := g.snapshot()
	g.emitter.Info(context.WithoutCancel(ctx), "generator_stopped", "Traffic generator stopped",
		zap.String("reason", reason),
		zap.Int("total_calls", stats.Total()),
		zap.Any("calls", stats.Calls),
		zap.Any("failures", stats.Failures),
		zap.Int("fallbacks", stats.Fallbacks),
		zap.Int("pool_size", stats.PoolSize),
	)
	return stats
}

func (g *Generator) snapshot() Stats {
	s := Stats{
		Calls:     make(map[Action]int, len(g.calls)),
		Failures:  make(map[Action]int, len(g.failures)),
		Fallbacks: g.fallbacks,
		PoolSize:  g.pool.Len(),
	}
	for k, v := range g.calls {
		s.Calls[k] = v
	}
	for k, v := range g.failures {
		s.Failures[k] = v
	}
	return s
}

func (g *Generator) dispatch(p plan, results chan<- result, done <-chan struct{}) {
	g.inflight.Add(1)
	go func() {
		defer g.inflight.Done()
		r := g.execute(p)
		select {
		case results <- r:
		case <-done:
		}
	}()
}

func (g *Generator) execute(p plan) result {
	start := time.Now()
	reply, err := g.client.Do(p.call)
	return result{plan: p, reply: reply, err: err, elapsed: time.Since(start)}
}

// next draws one action from the mix. Follow-ups on an empty pool become payments.
func (g *Generator) next() plan {
	action := Choose(g.cfg.Mix, g.rnd.Float64())
	switch action {
	case ActionCheckStatus, ActionRefund:
		entry, ok := g.pool.Pick(g.rnd)
		if !ok {
			g.fallbacks++
			return g.paymentPlan()
		}
		if action == ActionCheckStatus {
			return plan{action: action, entry: entry, call: Call{
				Method:  http.MethodGet,
				Path:    "/api/payments/" + url.PathEscape(entry.PaymentID),
				TraceID: entry.TraceID,
			}}
		}
		return plan{action: action, entry: entry, call: Call{
			Method:  http.MethodPost,
			Path:    "/api/refunds",
			TraceID: entry.TraceID,
			Body: types.RefundRequest{
				PaymentID: entry.PaymentID,
				Amount:    g.amount(5, 500),
				Reason:    random.Pick(g.rnd, refundReasons),
			},
		}}
	case ActionHealthCheck:
		return g.healthPlan()
	default:
		return g.paymentPlan()
	}
}

func (g *Generator) paymentPlan() plan {
	req := types.PaymentRequest{
		Amount:     g.amount(10, 1000),
		Currency:   random.Pick(g.rnd, currencies),
		CustomerID: "cust_" + random.Token(g.rnd, 8),
		CardDetails: map[string]any{
			"brand": random.Pick(g.rnd, cardBrands),
			"last4": fmt.Sprintf("%04d", random.Between(g.rnd, 0, 9999)),
		},
	}
	return plan{action: ActionCreatePayment, call: Call{
		Method:  http.MethodPost,
		Path:    "/api/payments",
		TraceID: random.UUID(),
		Body:    req,
	}}
}

func (g *Generator) healthPlan() plan {
	return plan{action: ActionHealthCheck, call: Call{Method: http.MethodGet, Path: "/health"}}
}

// amount draws a value with cent precision from [lo, hi].
func (g *Generator) amount(lo, hi int) float64 {
	return float64(random.Between(g.rnd, lo*100, hi*100)) / 100
}

// apply records a completed call and performs its pool mutation. It runs on the loop goroutine only.
func (g *Generator) apply(r result) {
	action := r.plan.action
	g.calls[action]++
	failed := r.err != nil || r.reply.StatusCode >= http.StatusBadRequest
	if failed {
		g.failures[action]++
	}

	switch action {
	case ActionCreatePayment:
		if !failed {
			var body types.PaymentResponse
			if err := sonic.Unmarshal(r.reply.Body, &body); err == nil && body.Success && body.PaymentID != "" {
				g.pool.Add(Entry{PaymentID: body.PaymentID, TraceID: r.plan.call.TraceID})
			}
		}
	case ActionRefund:
		if random.Chance(g.rnd, refundEvictionChance) {
			g.pool.Remove(r.plan.entry.PaymentID)
		}
	}

	traceID := r.reply.TraceID
	if traceID == "" {
		traceID = r.plan.call.TraceID
	}
	ctx := correlation.WithContext(context.Background(), correlation.Context{TraceID: traceID, TransactionID: r.reply.TransactionID})
	fields := []zap.Field{
		zap.String("action", string(action)),
		zap.String("method", r.plan.call.Method),
		zap.String("path", r.plan.call.Path),
		zap.Int("status_code", r.reply.StatusCode),
		zap.Float64("duration_ms", float64(r.elapsed.Microseconds())/1000),
		zap.Int("pool_size", g.pool.Len()),
	}
	if r.plan.entry.PaymentID != "" {
		fields = append(fields, zap.String("payment_id", r.plan.entry.PaymentID))
	}
	if r.err != nil {
		fields = append(fields, zap.Error(r.err))
	}
	level := zapcore.InfoLevel
	if failed {
		level = zapcore.ErrorLevel
	}
	g.emitter.Log(ctx, level, "traffic_call_completed", "Traffic call completed", fields...)
}
