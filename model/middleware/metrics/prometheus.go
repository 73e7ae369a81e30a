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

// Package metrics exports HTTP and classification metrics of the classifier service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "classifier"

// Metrics holds the classifier collectors on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	responseSeconds *prometheus.HistogramVec
	verdictsTotal   *prometheus.CounterVec
	currentRequests prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status code",
			},
			[]string{"path", "code"},
		),
		responseSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_time_seconds",
				Help:      "HTTP response time by route",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 1.7, 16),
			},
			[]string{"path"},
		),
		verdictsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verdicts_total",
				Help:      "Classification results by action and matched rule",
			},
			[]string{"action", "reason"},
		),
		currentRequests: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "current_requests",
				Help:      "Requests currently being handled",
			},
		),
	}
}

// Registry returns the registry holding the classifier collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveVerdict counts one classification.
func (m *Metrics) ObserveVerdict(action, reason string) {
	m.verdictsTotal.WithLabelValues(action, reason).Inc()
}

// SetCurrentRequests updates the in-flight gauge.
func (m *Metrics) SetCurrentRequests(n float64) {
	m.currentRequests.Set(n)
}

// Middleware counts requests and observes their duration per route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		ctx.Next()

		path := ctx.FullPath()
		if path == "" {
			path = "unmatched"
		}

		m.requestsTotal.WithLabelValues(path, strconv.Itoa(ctx.Writer.Status())).Inc()
		m.responseSeconds.WithLabelValues(path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{DisableCompression: true})
}
