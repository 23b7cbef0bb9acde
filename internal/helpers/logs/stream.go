package logs

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap/zapcore"
)

// StreamAdder is the subset of *redis.Client used to ship events.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

type StreamConfig struct {
	Stream     string
	MaxLen     int64
	BufferSize int
	Workers    int
	// WriteTimeout bounds a single XADD.
	WriteTimeout time.Duration
}

func (c StreamConfig) withDefaults() StreamConfig {
	if c.Stream == "" {
		c.Stream = "telemetry:events"
	}
	if c.MaxLen <= 0 {
		c.MaxLen = 100000
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 1024
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = time.Second
	}
	return c
}

// StreamShipper forwards encoded log records to a Redis stream from a small
// worker pool. Records are dropped, never blocked on, when the buffer is full.
type StreamShipper struct {
	client StreamAdder
	cfg    StreamConfig

	mu     sync.RWMutex
	closed bool
	events chan map[string]any
	wg     sync.WaitGroup

	dropped atomic.Int64
	failed  atomic.Int64
}

func NewStreamShipper(client StreamAdder, cfg StreamConfig) *StreamShipper {
	cfg = cfg.withDefaults()
	return &StreamShipper{
		client: client,
		cfg:    cfg,
		events: make(chan map[string]any, cfg.BufferSize),
	}
}

// Start launches the workers. They exit once Stop has drained the buffer.
func (s *StreamShipper) Start(ctx context.Context) {
	for i := 0; i < s.cfg.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}
}

// Stop closes the buffer and waits for queued records to be written.
func (s *StreamShipper) Stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.events)
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *StreamShipper) Dropped() int64 { return s.dropped.Load() }

func (s *StreamShipper) Failed() int64 { return s.failed.Load() }

func (s *StreamShipper) worker(ctx context.Context) {
	defer s.wg.Done()
	for values := range s.events {
		writeCtx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
		err := s.client.XAdd(writeCtx, &redis.XAddArgs{
			Stream: s.cfg.Stream,
			MaxLen: s.cfg.MaxLen,
			Approx: true,
			Values: values,
		}).Err()
		cancel()
		if err != nil {
			s.failed.Add(1)
		}
	}
}

func (s *StreamShipper) enqueue(values map[string]any) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.dropped.Add(1)
		return false
	}
	select {
	case s.events <- values:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Core returns a zapcore.Core that tees records into the stream.
func (s *StreamShipper) Core(enab zapcore.LevelEnabler) zapcore.Core {
	return &streamCore{LevelEnabler: enab, shipper: s}
}

type streamCore struct {
	zapcore.LevelEnabler
	shipper *StreamShipper
	fields  []zapcore.Field
}

func (c *streamCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = make([]zapcore.Field, 0, len(c.fields)+len(fields))
	clone.fields = append(clone.fields, c.fields...)
	clone.fields = append(clone.fields, fields...)
	return &clone
}

func (c *streamCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

// Write never reports an error; a record that cannot be encoded or queued is counted and dropped.
func (c *streamCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	enc.Fields["level"] = ent.Level.String()
	enc.Fields["message"] = ent.Message
	enc.Fields["timestamp"] = ent.Time.UTC().Format(time.RFC3339Nano)

	payload, err := sonic.Marshal(enc.Fields)
	if err != nil {
		c.shipper.dropped.Add(1)
		return nil
	}
	eventType, _ := enc.Fields["event_type"].(string)
	c.shipper.enqueue(map[string]any{
		"event_type": eventType,
		"level":      ent.Level.String(),
		"payload":    string(payload),
	})
	return nil
}

func (c *streamCore) Sync() error { return nil }
