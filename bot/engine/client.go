package engine

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/AnkitShukla-arch/ddos-simulation/definitions"

	jsoniter "github.com/json-iterator/go"
	"github.com/segmentio/ksuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RunID identifies one engine run; it is sent with every request.
type RunID string

// NewRunID returns a fresh, time-ordered run id.
func NewRunID() RunID {
	return RunID(ksuid.New().String())
}

type predictRequest struct {
	IP string `json:"ip"`
}

// TrafficClient submits addresses to the target endpoint. It is shared by all consumers.
type TrafficClient struct {
	endpoint   string
	runID      RunID
	transport  *http.Transport
	httpClient *http.Client
}

// NewTrafficClient returns a client with a per-request timeout and a connection pool sized for cfg.Concurrency.
func NewTrafficClient(cfg *Config, runID RunID) *TrafficClient {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = max(cfg.Concurrency, transport.MaxIdleConns)
	transport.MaxIdleConnsPerHost = cfg.Concurrency

	return &TrafficClient{
		endpoint:  cfg.Endpoint,
		runID:     runID,
		transport: transport,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(transport),
			Timeout:   cfg.RequestTimeout,
		},
	}
}

// Post sends {"ip": address}. latency covers the full exchange including the drained body and is only meaningful
// when err is nil. Any status code is a response; the caller decides what counts as success.
func (c *TrafficClient) Post(ctx context.Context, address string) (statusCode int, latency time.Duration, err error) {
	body, err := jsoniter.Marshal(predictRequest{IP: address})
	if err != nil {
		return 0, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, 0, err
	}

	req.Header.Set("Content-Type", definitions.MIMEApplicationJSON)
	req.Header.Set(definitions.HeaderRequestID, ksuid.New().String())

	if c.runID != "" {
		req.Header.Set(definitions.HeaderRunID, string(c.runID))
	}

	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, 0, err
	}

	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, time.Since(start), nil
}

// Close releases idle connections.
func (c *TrafficClient) Close() {
	c.transport.CloseIdleConnections()
}

// Succeeded reports whether statusCode counts as success.
func Succeeded(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
