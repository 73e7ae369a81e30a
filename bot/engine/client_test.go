package engine

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrafficClientPost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Equal(t, "run-1", r.Header.Get("X-Run-ID"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)

		var payload map[string]string
		assert.NoError(t, jsoniter.Unmarshal(body, &payload))
		assert.Equal(t, map[string]string{"ip": "10.0.0.5"}, payload)

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ip":"10.0.0.5","malicious":true,"action":"block"}`))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.Endpoint = server.URL

	client := NewTrafficClient(cfg, "run-1")
	defer client.Close()

	status, latency, err := client.Post(context.Background(), "10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Positive(t, latency)
	assert.True(t, Succeeded(status))
}

func TestTrafficClientUniqueRequestIDs(t *testing.T) {
	ids := make(chan string, 2)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids <- r.Header.Get("X-Request-ID")
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.Endpoint = server.URL

	client := NewTrafficClient(cfg, NewRunID())

	for range 2 {
		_, _, err := client.Post(context.Background(), "8.8.8.8")
		require.NoError(t, err)
	}

	assert.NotEqual(t, <-ids, <-ids)
}

func TestTrafficClientNon2xxIsResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.Endpoint = server.URL

	status, _, err := NewTrafficClient(cfg, "").Post(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.False(t, Succeeded(status))
}

func TestTrafficClientTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	cfg := DefaultConfig()
	cfg.Endpoint = url

	status, latency, err := NewTrafficClient(cfg, "").Post(context.Background(), "8.8.8.8")
	require.Error(t, err)
	assert.Zero(t, status)
	assert.Zero(t, latency)
}

func TestTrafficClientTimeout(t *testing.T) {
	release := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	cfg := DefaultConfig()
	cfg.Endpoint = server.URL
	cfg.RequestTimeout = 50 * time.Millisecond

	begin := time.Now()

	_, _, err := NewTrafficClient(cfg, "").Post(context.Background(), "8.8.8.8")
	require.Error(t, err)
	assert.Less(t, time.Since(begin), time.Second)
}

func TestSucceeded(t *testing.T) {
	for code, want := range map[int]bool{199: false, 200: true, 204: true, 299: true, 301: false, 429: false, 500: false} {
		assert.Equal(t, want, Succeeded(code), code)
	}
}
