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

// Package handler implements the HTTP endpoints of the classifier service.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/AnkitShukla-arch/ddos-simulation/definitions"
	"github.com/AnkitShukla-arch/ddos-simulation/log/level"
	"github.com/AnkitShukla-arch/ddos-simulation/model/detector"

	"github.com/gin-gonic/gin"
)

// maxPredictBody caps the request body; the detector itself accepts strings of any length.
const maxPredictBody = 64 << 10

// PredictRequest is the body of POST /predict. IP must be present but may be any string, including "".
type PredictRequest struct {
	IP *string `json:"ip" binding:"required"`
}

// VerdictObserver receives every classification.
type VerdictObserver interface {
	ObserveVerdict(action, reason string)
}

// Handler serves the classification endpoints.
type Handler struct {
	detector *detector.Detector
	observer VerdictObserver
	logger   *slog.Logger
}

func New(det *detector.Detector, observer VerdictObserver, logger *slog.Logger) *Handler {
	return &Handler{detector: det, observer: observer, logger: logger}
}

// Register adds the routes to router.
func (h *Handler) Register(router gin.IRouter) {
	router.POST("/predict", h.Predict)
	router.GET("/ping", h.Ping)
}

// Predict classifies the address in the request body.
func (h *Handler) Predict(ctx *gin.Context) {
	var req PredictRequest

	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxPredictBody)

	if err := ctx.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ctx.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})

			return
		}

		HandleJSONError(ctx, err)

		return
	}

	ip := *req.IP
	verdict := h.detector.Classify(ip)

	if h.observer != nil {
		h.observer.ObserveVerdict(verdict.Action, verdict.Reason)
	}

	level.Debug(h.logger).Log(
		definitions.LogKeyMsg, "Address classified",
		definitions.LogKeySource, definitions.SourceClassifier,
		definitions.LogKeyAddress, ip,
		"action", verdict.Action,
		"reason", verdict.Reason,
	)

	ctx.JSON(http.StatusOK, verdict)
}

// Ping is the health check.
func (h *Handler) Ping(ctx *gin.Context) {
	ctx.String(http.StatusOK, "pong")
}
