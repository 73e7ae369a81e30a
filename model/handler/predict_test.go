package handler

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AnkitShukla-arch/ddos-simulation/model/config"
	"github.com/AnkitShukla-arch/ddos-simulation/model/detector"
	"github.com/AnkitShukla-arch/ddos-simulation/model/middleware/metrics"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	verdicts []string
}

func (r *recordingObserver) ObserveVerdict(action, reason string) {
	r.verdicts = append(r.verdicts, action+"/"+reason)
}

func newTestRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.DiscardHandler)
	m := metrics.New()

	return NewRouter(cfg, New(detector.New(cfg.Rules), m, logger), m, logger)
}

func post(r http.Handler, body string, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func TestPredict(t *testing.T) {
	gin.SetMode(gin.TestMode)

	observer := &recordingObserver{}
	h := New(detector.New(detector.DefaultRules()), observer, nil)

	r := gin.New()
	h.Register(r)

	tests := []struct {
		ip        string
		malicious bool
		action    string
	}{
		{ip: "10.0.0.5", malicious: true, action: "block"},
		{ip: "8.8.8.8", malicious: false, action: "allow"},
		{ip: "2001:db8::1:2", malicious: true, action: "block"},
	}

	for _, tt := range tests {
		w := post(r, `{"ip":"`+tt.ip+`"}`, "")

		require.Equal(t, http.StatusOK, w.Code, tt.ip)

		var got map[string]any
		require.NoError(t, jsoniter.Unmarshal(w.Body.Bytes(), &got))

		assert.Equal(t, map[string]any{"ip": tt.ip, "malicious": tt.malicious, "action": tt.action}, got)
	}

	assert.Equal(t, []string{"block/prefix", "allow/none", "block/substring"}, observer.verdicts)
}

func TestPredictValidation(t *testing.T) {
	r := newTestRouter(config.Default())

	t.Run("missing ip", func(t *testing.T) {
		w := post(r, `{}`, "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"errors":[{"field":"IP","message":"This field is required"}]}`, w.Body.String())
	})

	t.Run("malformed body", func(t *testing.T) {
		w := post(r, `{"ip":`, "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `"error"`)
	})

	t.Run("null ip", func(t *testing.T) {
		w := post(r, `{"ip":null}`, "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"errors":[{"field":"IP","message":"This field is required"}]}`, w.Body.String())
	})

	t.Run("oversized body", func(t *testing.T) {
		w := post(r, `{"ip":"`+strings.Repeat("a", maxPredictBody)+`"}`, "")

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestPredictClassifiesAnyString(t *testing.T) {
	r := newTestRouter(config.Default())

	tests := []struct {
		name      string
		ip        string
		malicious bool
		action    string
	}{
		{name: "long address hits the length rule", ip: strings.Repeat("a", 300), malicious: true, action: "block"},
		{name: "empty address", ip: "", malicious: false, action: "allow"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(r, `{"ip":"`+tt.ip+`"}`, "")

			require.Equal(t, http.StatusOK, w.Code)

			var got map[string]any
			require.NoError(t, jsoniter.Unmarshal(w.Body.Bytes(), &got))

			assert.Equal(t, map[string]any{"ip": tt.ip, "malicious": tt.malicious, "action": tt.action}, got)
		})
	}
}

func TestRouterPingAndMetrics(t *testing.T) {
	r := newTestRouter(config.Default())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	post(r, `{"ip":"10.0.0.5"}`, "")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `classifier_verdicts_total{action="block",reason="prefix"} 1`)
}

func TestRouterRateLimit(t *testing.T) {
	cfg := config.Default()
	cfg.RateLimit.PerSecond = 1
	cfg.RateLimit.Burst = 2

	r := newTestRouter(cfg)

	assert.Equal(t, http.StatusOK, post(r, `{"ip":"8.8.8.8"}`, "198.51.100.7:1000").Code)
	assert.Equal(t, http.StatusOK, post(r, `{"ip":"8.8.8.8"}`, "198.51.100.7:1000").Code)
	assert.Equal(t, http.StatusTooManyRequests, post(r, `{"ip":"8.8.8.8"}`, "198.51.100.7:1000").Code)
	assert.Equal(t, http.StatusOK, post(r, `{"ip":"8.8.8.8"}`, "198.51.100.8:1000").Code)
}
