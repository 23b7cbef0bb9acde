// Package correlation carries the trace and transaction identifiers of a request.
package correlation

import (
	"context"
	"strings"
)

const (
	HeaderTraceID       = "x-trace-id"
	HeaderTransactionID = "x-transaction-id"
)

type Context struct {
	TraceID       string
	TransactionID string
}

// New keeps a non-empty inbound trace id and always allocates a fresh transaction id.
func New(inboundTraceID string, newID func() string) Context {
	traceID := strings.TrimSpace(inboundTraceID)
	if traceID == "" {
		traceID = newID()
	}
	return Context{TraceID: traceID, TransactionID: newID()}
}

type contextKey struct{}

func WithContext(ctx context.Context, cc Context) context.Context {
	return context.WithValue(ctx, contextKey{}, cc)
}

// FromContext returns the zero Context when none is attached.
func FromContext(ctx context.Context) Context {
	if ctx == nil {
		return Context{}
	}
	if cc, ok := ctx.Value(contextKey{}).(Context); ok {
		return cc
	}
	return Context{}
}
