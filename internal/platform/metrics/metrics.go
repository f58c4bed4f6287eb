// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

// Package metrics exposes Prometheus collectors for the HTTP layer and the
// authentication core.
//
// Collectors live on a private registry so tests can build as many
// [Registry] values as they like. A nil *Registry is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/EduNauta/sindicapp/internal/platform/constants"
)

const namespace = "sindicapp"

// Auth event outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Registry owns every collector of the process.
type Registry struct {
	registry *prometheus.Registry

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	authEvents     *prometheus.CounterVec
	sessionsPurged prometheus.Counter
}

// New builds a registry with Go runtime, process and application collectors.
func New() *Registry {
	registry := prometheus.NewRegistry()

	metrics := &Registry{
		registry: registry,
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_events_total",
			Help:      "Authentication operations by event and outcome.",
		}, []string{"event", "outcome"}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_purged_total",
			Help:      "Expired or invalidated sessions physically deleted.",
		}),
	}

	buildInfo := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "build_info",
		Help:        "Build information.",
		ConstLabels: prometheus.Labels{"version": constants.AppVersion},
	})
	buildInfo.Set(1)

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		buildInfo,
		metrics.httpInFlight,
		metrics.httpRequestsTotal,
		metrics.httpRequestDuration,
		metrics.authEvents,
		metrics.sessionsPurged,
	)

	return metrics
}

// Handler serves the registry in the Prometheus text format.
func (metrics *Registry) Handler() http.Handler {
	if metrics == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(metrics.registry, promhttp.HandlerOpts{Registry: metrics.registry})
}

// # HTTP

// Instrument measures throughput, latency and concurrency of every request.
// The route label is the chi pattern, so path parameters do not explode cardinality.
func (metrics *Registry) Instrument(next http.Handler) http.Handler {
	if metrics == nil {
		return next
	}

	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		metrics.httpInFlight.Inc()
		defer metrics.httpInFlight.Dec()

		start := time.Now()
		recorder := &statusWriter{ResponseWriter: writer, code: http.StatusOK}
		next.ServeHTTP(recorder, request)

		route := "unmatched"
		if routeContext := chi.RouteContext(request.Context()); routeContext != nil {
			if pattern := routeContext.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		status := strconv.Itoa(recorder.code)
		metrics.httpRequestDuration.WithLabelValues(request.Method, route, status).Observe(time.Since(start).Seconds())
		metrics.httpRequestsTotal.WithLabelValues(request.Method, route, status).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// # Authentication

// AuthEvent counts one authentication operation.
func (metrics *Registry) AuthEvent(event, outcome string) {
	if metrics == nil {
		return
	}
	metrics.authEvents.WithLabelValues(event, outcome).Inc()
}

// SessionsPurged adds n deleted sessions.
func (metrics *Registry) SessionsPurged(n int64) {
	if metrics == nil || n <= 0 {
		return
	}
	metrics.sessionsPurged.Add(float64(n))
}
