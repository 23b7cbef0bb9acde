package types

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrValidation       = errors.New("validation error")
	ErrProcessorFailure = errors.New("processor failure")
	ErrGatewayTimeout   = errors.New("gateway timeout")
)

// Outcome is the terminal result class of a simulated operation.
type Outcome string

const (
	OutcomeSuccess          Outcome = "success"
	OutcomeValidationError  Outcome = "validation_error"
	OutcomeProcessorFailure Outcome = "processor_failure"
	OutcomeGatewayTimeout   Outcome = "gateway_timeout"
)

// StatusCode maps an outcome onto the HTTP status the service answers with.
func (o Outcome) StatusCode() int {
	switch o {
	case OutcomeSuccess:
		return http.StatusOK
	case OutcomeValidationError:
		return http.StatusBadRequest
	case OutcomeGatewayTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (o Outcome) err(reason string) error {
	switch o {
	case OutcomeSuccess:
		return nil
	case OutcomeValidationError:
		return fmt.Errorf("%w: %s", ErrValidation, reason)
	case OutcomeGatewayTimeout:
		return ErrGatewayTimeout
	default:
		return ErrProcessorFailure
	}
}

// Validation reasons.
const (
	ReasonMissingFields      = "missing_fields"
	ReasonInvalidCardDetails = "invalid_card_details"
	ReasonInsufficientFunds  = "insufficient_funds"
)

// Payment statuses reported by the status lookup.
const (
	StatusCompleted = "completed"
	StatusPending   = "pending"
	StatusFailed    = "failed"
	StatusRefunded  = "refunded"
)

var PaymentStatuses = []string{StatusCompleted, StatusPending, StatusFailed, StatusRefunded}

type PaymentRequest struct {
	Amount      float64        `json:"amount" validate:"required,gt=0"`
	Currency    string         `json:"currency" validate:"required"`
	CustomerID  string         `json:"customerId" validate:"required"`
	CardDetails map[string]any `json:"cardDetails,omitempty"`
}

type RefundRequest struct {
	PaymentID string  `json:"paymentId" validate:"required"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Reason    string  `json:"reason,omitempty"`
}

// PaymentResult is the outcome of one simulated payment attempt. Fields beyond
// the id and processing time are populated according to Outcome.
type PaymentResult struct {
	Outcome        Outcome
	PaymentID      string
	ProcessingTime time.Duration
	Amount         float64
	Currency       string
	CustomerID     string
	CompletedAt    time.Time
	Reason         string
	MissingFields  []string
}

func (r PaymentResult) StatusCode() int { return r.Outcome.StatusCode() }

// Err returns nil for a successful payment and a wrapped taxonomy error otherwise.
func (r PaymentResult) Err() error { return r.Outcome.err(r.Reason) }

type RefundResult struct {
	Outcome        Outcome
	RefundID       string
	PaymentID      string
	ProcessingTime time.Duration
	Amount         float64
	CompletedAt    time.Time
	Reason         string
	MissingFields  []string
}

func (r RefundResult) StatusCode() int { return r.Outcome.StatusCode() }

func (r RefundResult) Err() error { return r.Outcome.err(r.Reason) }

type StatusResult struct {
	PaymentID      string
	Status         string
	ProcessingTime time.Duration
	CheckedAt      time.Time
}

type PaymentResponse struct {
	Success          bool    `json:"success"`
	PaymentID        string  `json:"payment_id,omitempty"`
	Amount           float64 `json:"amount,omitempty"`
	Currency         string  `json:"currency,omitempty"`
	Status           string  `json:"status,omitempty"`
	Timestamp        string  `json:"timestamp,omitempty"`
	ProcessingTimeMs int64   `json:"processing_time_ms,omitempty"`
	Error            string  `json:"error,omitempty"`
}

type RefundResponse struct {
	Success          bool    `json:"success"`
	RefundID         string  `json:"refund_id,omitempty"`
	PaymentID        string  `json:"payment_id,omitempty"`
	Amount           float64 `json:"amount,omitempty"`
	Status           string  `json:"status,omitempty"`
	Timestamp        string  `json:"timestamp,omitempty"`
	ProcessingTimeMs int64   `json:"processing_time_ms,omitempty"`
	Error            string  `json:"error,omitempty"`
}

type StatusResponse struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

type ServiceInfo struct {
	Service   string   `json:"service"`
	Version   string   `json:"version"`
	Endpoints []string `json:"endpoints"`
}

// ErrorResponse is returned for requests that never reach a simulator, such as malformed bodies.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
