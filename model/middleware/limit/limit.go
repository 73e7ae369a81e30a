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

package limit

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/AnkitShukla-arch/ddos-simulation/definitions"
	"github.com/AnkitShukla-arch/ddos-simulation/log/level"

	"github.com/gin-gonic/gin"
)

// slowRequest is the duration above which a request is logged as long-running.
const slowRequest = 1500 * time.Millisecond

// LimitCounter tracks the current number of active requests and rejects new ones above MaxConnections.
type LimitCounter struct {
	// MaxConnections defines the maximum number of concurrent requests allowed.
	MaxConnections int32

	current atomic.Int32
	gauge   func(float64)
}

// NewLimitCounter creates a new LimitCounter. gauge, if not nil, receives the in-flight count after every change.
func NewLimitCounter(maxConnections int32, gauge func(float64)) *LimitCounter {
	return &LimitCounter{
		MaxConnections: maxConnections,
		gauge:          gauge,
	}
}

// Current returns the number of requests in progress.
func (lc *LimitCounter) Current() int32 {
	return lc.current.Load()
}

func (lc *LimitCounter) report(n int32) {
	if lc.gauge != nil {
		lc.gauge(float64(n))
	}
}

// Middleware limits the number of concurrently handled requests. /ping and /metrics are always served.
func (lc *LimitCounter) Middleware(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx *gin.Context) {
		if exempt(ctx) {
			ctx.Next()

			return
		}

		current := lc.current.Add(1)
		if current > lc.MaxConnections {
			lc.current.Add(-1)

			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				definitions.LogKeyMsg: "Too many requests",
				"scope":               "concurrency",
				"current":             current - 1,
				"max":                 lc.MaxConnections,
			})

			return
		}

		lc.report(current)

		start := time.Now()

		defer func() {
			lc.report(lc.current.Add(-1))

			if errors.Is(ctx.Request.Context().Err(), context.Canceled) {
				level.Warn(logger).Log(
					definitions.LogKeyMsg, "Client closed request",
					definitions.LogKeyClientIP, ctx.ClientIP(),
					"path", ctx.FullPath(),
				)

				return
			}

			if duration := time.Since(start); duration > slowRequest {
				level.Warn(logger).Log(
					definitions.LogKeyMsg, "Long-running request detected",
					"path", ctx.FullPath(),
					"duration_ms", duration.Milliseconds(),
				)
			}
		}()

		ctx.Next()
	}
}
