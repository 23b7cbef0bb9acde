package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"paysim/internal/helpers/logs"
	"paysim/internal/payment"
	"paysim/internal/types"
)

// timestampLayout matches millisecond ISO-8601 timestamps.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

var endpoints = []string{
	"POST /api/payments",
	"GET /api/payments/:paymentId",
	"POST /api/refunds",
	"GET /health",
}

type Handlers struct {
	Simulator *payment.Simulator
	Emitter   *logs.Emitter
	Service   string
	Version   string
}

// NewApp builds the fiber app with every route and the correlation middleware installed.
func NewApp(h *Handlers) *fiber.App {
	if h.Emitter == nil {
		h.Emitter = logs.NewEmitter(nil)
	}
	app := fiber.New(fiber.Config{
		AppName:               h.Service,
		DisableStartupMessage: true,
		Immutable:             true,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
	})
	h.Register(app)
	return app
}

func (h *Handlers) Register(app *fiber.App) {
	app.Use(Correlation(CorrelationConfig{Emitter: h.Emitter}))

	app.Get("/", h.IndexHandler)
	app.Get("/health", h.HealthHandler)
	app.Post("/api/payments", h.PaymentHandler)
	app.Get("/api/payments/:paymentId?", h.PaymentStatusHandler)
	app.Post("/api/refunds", h.RefundHandler)
}

func (h *Handlers) IndexHandler(c *fiber.Ctx) error {
	return c.JSON(types.ServiceInfo{Service: h.Service, Version: h.Version, Endpoints: endpoints})
}

func (h *Handlers) HealthHandler(c *fiber.Ctx) error {
	h.Emitter.Info(c.UserContext(), "health_check", "Health check")
	return c.JSON(types.HealthResponse{Status: "ok", Service: h.Service})
}

// PaymentHandler simulates a payment and answers once its latency has elapsed.
func (h *Handlers) PaymentHandler(c *fiber.Ctx) error {
	var req types.PaymentRequest
	if err := decodeBody(c.Body(), &req); err != nil {
		return h.badBody(c, "payment_request_malformed", err)
	}
	res, err := h.Simulator.ProcessPayment(c.UserContext(), req)
	if err != nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	return c.Status(res.StatusCode()).JSON(paymentResponse(res))
}

// PaymentStatusHandler answers for any id, including an empty one.
func (h *Handlers) PaymentStatusHandler(c *fiber.Ctx) error {
	res, err := h.Simulator.LookupStatus(c.UserContext(), c.Params("paymentId"))
	if err != nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	return c.Status(http.StatusOK).JSON(types.StatusResponse{
		PaymentID: res.PaymentID,
		Status:    res.Status,
		Timestamp: res.CheckedAt.Format(timestampLayout),
	})
}

func (h *Handlers) RefundHandler(c *fiber.Ctx) error {
	var req types.RefundRequest
	if err := decodeBody(c.Body(), &req); err != nil {
		return h.badBody(c, "refund_request_malformed", err)
	}
	res, err := h.Simulator.ProcessRefund(c.UserContext(), req)
	if err != nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	return c.Status(res.StatusCode()).JSON(refundResponse(res))
}

func (h *Handlers) badBody(c *fiber.Ctx, eventType string, err error) error {
	h.Emitter.Error(c.UserContext(), eventType, "Request body is not valid JSON",
		zap.Error(err),
		zap.Int("status_code", http.StatusBadRequest),
	)
	return c.Status(http.StatusBadRequest).JSON(types.ErrorResponse{Success: false, Error: "Invalid JSON body"})
}

// decodeBody treats an empty body as an empty object so it fails field validation instead.
func decodeBody(body []byte, v any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func missingFieldsMessage(fields []string) string {
	return "Missing required fields: " + strings.Join(fields, ", ")
}

func paymentResponse(res types.PaymentResult) types.PaymentResponse {
	if res.Reason == types.ReasonMissingFields {
		return types.PaymentResponse{Success: false, Error: missingFieldsMessage(res.MissingFields)}
	}
	out := types.PaymentResponse{
		PaymentID:        res.PaymentID,
		ProcessingTimeMs: res.ProcessingTime.Milliseconds(),
	}
	switch res.Outcome {
	case types.OutcomeSuccess:
		out.Success = true
		out.Amount = res.Amount
		out.Currency = res.Currency
		out.Status = types.StatusCompleted
		out.Timestamp = res.CompletedAt.Format(timestampLayout)
	case types.OutcomeValidationError:
		out.Error = res.Reason
	case types.OutcomeGatewayTimeout:
		out.Error = "Gateway timeout"
	default:
		out.Error = "Payment processor error"
	}
	return out
}

func refundResponse(res types.RefundResult) types.RefundResponse {
	if res.Reason == types.ReasonMissingFields {
		return types.RefundResponse{Success: false, PaymentID: res.PaymentID, Error: missingFieldsMessage(res.MissingFields)}
	}
	out := types.RefundResponse{
		RefundID:         res.RefundID,
		PaymentID:        res.PaymentID,
		ProcessingTimeMs: res.ProcessingTime.Milliseconds(),
	}
	if res.Outcome != types.OutcomeSuccess {
		out.Error = "Refund processor error"
		return out
	}
	out.Success = true
	out.Amount = res.Amount
	out.Status = types.StatusCompleted
	out.Timestamp = res.CompletedAt.Format(timestampLayout)
	return out
}
