package main

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/AnkitShukla-arch/ddos-simulation/model/config"
	"github.com/AnkitShukla-arch/ddos-simulation/model/handler"
	"github.com/AnkitShukla-arch/ddos-simulation/model/middleware/metrics"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func TestClassifierServesPredict(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Listen = ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app := fxtest.New(t,
		fx.NopLogger,
		rootContextOption(ctx, cancel),
		fx.Supply(cfg),
		fx.Provide(
			func() *slog.Logger { return slog.New(slog.DiscardHandler) },
			newDetector,
			metrics.New,
			func(m *metrics.Metrics) handler.VerdictObserver { return m },
			handler.New,
			handler.NewRouter,
		),
		fx.Invoke(registerHTTPServer),
	)

	app.RequireStart()
	defer app.RequireStop()

	client := &http.Client{Timeout: 2 * time.Second}

	for ip, want := range map[string]string{
		"10.0.0.5": `{"ip":"10.0.0.5","malicious":true,"action":"block"}`,
		"8.8.8.8":  `{"ip":"8.8.8.8","malicious":false,"action":"allow"}`,
	} {
		resp, err := client.Post("http://"+cfg.Listen+"/predict", "application/json", strings.NewReader(`{"ip":"`+ip+`"}`))
		require.NoError(t, err)

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, want, string(body))
	}

}
