// Copyright (C) 2024 Christian Rößner
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package handler

import (
	"log/slog"

	"github.com/AnkitShukla-arch/ddos-simulation/model/config"
	"github.com/AnkitShukla-arch/ddos-simulation/model/middleware/limit"
	"github.com/AnkitShukla-arch/ddos-simulation/model/middleware/logging"
	"github.com/AnkitShukla-arch/ddos-simulation/model/middleware/metrics"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// NewRouter builds the gin engine with tracing, logging, metrics and the optional limits in front of the handlers.
func NewRouter(cfg *config.Config, h *Handler, m *metrics.Metrics, logger *slog.Logger) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	router.Use(logging.LoggerMiddleware(logger))
	router.Use(m.Middleware())

	if cfg.MaxConnections > 0 {
		router.Use(limit.NewLimitCounter(cfg.MaxConnections, m.SetCurrentRequests).Middleware(logger))
	}

	if cfg.RateLimit.Enabled() {
		router.Use(limit.NewIPRateLimiter(limit.Rate(cfg.RateLimit.PerSecond), cfg.RateLimit.Burst).Middleware())
	}

	router.GET("/metrics", gin.WrapH(m.Handler()))
	h.Register(router)

	return router
}
