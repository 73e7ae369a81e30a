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

// Package logging provides the request logging middleware of the classifier service.
package logging

import (
	"log/slog"
	"time"

	"github.com/AnkitShukla-arch/ddos-simulation/definitions"
	"github.com/AnkitShukla-arch/ddos-simulation/log"
	"github.com/AnkitShukla-arch/ddos-simulation/log/level"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/ksuid"
)

// CtxRequestIDKey is the gin context key holding the request id.
const CtxRequestIDKey = "request_id"

// LoggerMiddleware logs every request. The id from the X-Request-ID header is reused (and echoed back) when present,
// otherwise a new one is generated. Successful requests are logged at debug level since a traffic run produces many
// of them; client and server errors at warn and error.
func LoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = log.Logger
	}

	return func(ctx *gin.Context) {
		requestID := ctx.GetHeader(definitions.HeaderRequestID)
		if requestID == "" {
			requestID = ksuid.New().String()
		}

		ctx.Set(CtxRequestIDKey, requestID)
		ctx.Header(definitions.HeaderRequestID, requestID)

		start := time.Now()

		ctx.Next()

		status := ctx.Writer.Status()

		var logWrapper func(*slog.Logger) level.Logger

		switch {
		case len(ctx.Errors) > 0 || status >= 500:
			logWrapper = level.Error
		case status >= 400:
			logWrapper = level.Warn
		default:
			logWrapper = level.Debug
		}

		msg := "HTTP request"
		if err := ctx.Errors.Last(); err != nil {
			msg = err.Error()
		}

		logWrapper(logger).Log(
			definitions.LogKeyMsg, msg,
			"request_id", requestID,
			definitions.LogKeyRunID, ctx.GetHeader(definitions.HeaderRunID),
			definitions.LogKeyClientIP, ctx.ClientIP(),
			"method", ctx.Request.Method,
			"path", ctx.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
		)
	}
}
