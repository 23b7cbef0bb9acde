package generator

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/valyala/fasthttp"

	"paysim/internal/correlation"
)

type Call struct {
	Method  string
	Path    string
	TraceID string
	Body    any
}

type Reply struct {
	StatusCode    int
	TraceID       string
	TransactionID string
	Body          []byte
}

// Client issues one call against the payment service. Implementations must be
// safe for concurrent use.
type Client interface {
	Do(call Call) (Reply, error)
}

type HTTPClient struct {
	baseURL string
	client  *fasthttp.Client
	timeout time.Duration
}

// NewHTTPClient wraps client, or a default fasthttp client when nil.
func NewHTTPClient(baseURL string, client *fasthttp.Client, timeout time.Duration) *HTTPClient {
	if client == nil {
		client = &fasthttp.Client{
			Name:                "paysim-trafficgen",
			MaxConnsPerHost:     512,
			MaxIdleConnDuration: 30 * time.Second,
		}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{baseURL: baseURL, client: client, timeout: timeout}
}

func (c *HTTPClient) Do(call Call) (Reply, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + call.Path)
	req.Header.SetMethod(call.Method)
	if call.TraceID != "" {
		req.Header.Set(correlation.HeaderTraceID, call.TraceID)
	}
	if call.Body != nil {
		body, err := sonic.ConfigFastest.Marshal(call.Body)
		if err != nil {
			return Reply{}, fmt.Errorf("marshal %s %s: %w", call.Method, call.Path, err)
		}
		req.Header.SetContentType("application/json")
		req.SetBodyRaw(body)
	}

	if err := c.client.DoTimeout(req, resp, c.timeout); err != nil {
		return Reply{}, fmt.Errorf("%s %s: %w", call.Method, call.Path, err)
	}
	return Reply{
		StatusCode:    resp.StatusCode(),
		TraceID:       string(resp.Header.Peek(correlation.HeaderTraceID)),
		TransactionID: string(resp.Header.Peek(correlation.HeaderTransactionID)),
		Body:          append([]byte(nil), resp.Body()...),
	}, nil
}
