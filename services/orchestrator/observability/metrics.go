// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics and instrumentation for the orchestrator.
//
// # Description
//
// This package implements Prometheus metrics for monitoring timeline
// mutations and assistant operations. Metrics include:
//   - Edit plan counters (by outcome) and apply latency histograms
//   - Rollback counters (by invariant violation code)
//   - Clip count gauge tracking the committed timeline
//   - LLM request counters, generation latency, in-flight gauge
//   - WebSocket subscriber gauge
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/GhostCutAI/GhostLocal/services/timeline"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "ghostcut"

// Subsystem for timeline mutation metrics
const timelineSubsystem = "timeline"

// Subsystem for assistant / LLM metrics
const assistantSubsystem = "assistant"

// Metrics holds all Prometheus metrics for the editing service.
//
// # Description
//
// Provides counters, histograms, and gauges for monitoring edit plan
// throughput, rollback causes, and LLM usage. Initialize once at startup
// via InitMetrics().
//
// # Thread Safety
//
// All operations are thread-safe.
type Metrics struct {
	// PlansTotal counts edit plan submissions by outcome.
	// Labels: outcome (applied, parse_error, admission_rejected,
	// execution_conflict)
	PlansTotal *prometheus.CounterVec

	// RollbacksTotal counts engine rollbacks by the violation that
	// forced them. Labels: violation (overlap, negative_start, ...)
	RollbacksTotal *prometheus.CounterVec

	// ApplyDurationSeconds measures the end-to-end apply pipeline
	// latency, parse through commit. Labels: outcome
	ApplyDurationSeconds *prometheus.HistogramVec

	// Clips tracks the clip count of the committed timeline.
	Clips prometheus.Gauge

	// ManualEditsTotal counts manual (non-assistant) mutations.
	// Labels: kind (move, trim)
	ManualEditsTotal *prometheus.CounterVec

	// LLMRequestsTotal counts assistant requests by endpoint and status.
	// Labels: endpoint (prompt, apply), status (success, error)
	LLMRequestsTotal *prometheus.CounterVec

	// GenerationSeconds measures LLM generation latency.
	// Labels: status (success, error)
	GenerationSeconds *prometheus.HistogramVec

	// ActiveGenerations tracks in-flight LLM generations.
	ActiveGenerations prometheus.Gauge

	// ErrorsTotal counts assistant failures by pipeline stage.
	// Labels: endpoint, error_code (screening, generation, parse, ...)
	ErrorsTotal *prometheus.CounterVec

	// WebsocketClients tracks connected state subscribers.
	WebsocketClients prometheus.Gauge
}

// DefaultMetrics is the singleton instance of Metrics.
// Initialized by InitMetrics().
var DefaultMetrics *Metrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics. Should be called once
// at application startup, after the Prometheus registry is available.
//
// # Outputs
//
//   - *Metrics: The initialized metrics instance.
//
// # Limitations
//
//   - Panics if called twice (duplicate registration).
func InitMetrics() *Metrics {
	DefaultMetrics = &Metrics{
		PlansTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: timelineSubsystem,
				Name:      "plans_total",
				Help:      "Total edit plan submissions by outcome",
			},
			[]string{"outcome"},
		),

		RollbacksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: timelineSubsystem,
				Name:      "rollbacks_total",
				Help:      "Total engine rollbacks by violation code",
			},
			[]string{"violation"},
		),

		ApplyDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: timelineSubsystem,
				Name:      "apply_duration_seconds",
				Help:      "Edit plan apply latency in seconds, parse through commit",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"outcome"},
		),

		Clips: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: timelineSubsystem,
				Name:      "clips",
				Help:      "Clip count of the committed timeline",
			},
		),

		ManualEditsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: timelineSubsystem,
				Name:      "manual_edits_total",
				Help:      "Total manual (non-assistant) mutations by kind",
			},
			[]string{"kind"},
		),

		LLMRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: assistantSubsystem,
				Name:      "requests_total",
				Help:      "Total assistant requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		GenerationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: assistantSubsystem,
				Name:      "generation_seconds",
				Help:      "LLM generation latency in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"status"},
		),

		ActiveGenerations: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: assistantSubsystem,
				Name:      "active_generations",
				Help:      "Number of in-flight LLM generations",
			},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: assistantSubsystem,
				Name:      "errors_total",
				Help:      "Total assistant failures by endpoint and stage",
			},
			[]string{"endpoint", "error_code"},
		),

		WebsocketClients: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: timelineSubsystem,
				Name:      "websocket_clients",
				Help:      "Number of connected state subscribers",
			},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Plan Outcomes
// =============================================================================

// Outcome classifies how an edit plan submission ended, used as the
// plans_total and apply_duration_seconds label.
type Outcome string

const (
	// OutcomeApplied indicates the plan committed.
	OutcomeApplied Outcome = "applied"

	// OutcomeParseError indicates the raw text never became a plan.
	OutcomeParseError Outcome = "parse_error"

	// OutcomeAdmissionRejected indicates a gate turned the plan away.
	OutcomeAdmissionRejected Outcome = "admission_rejected"

	// OutcomeExecutionConflict indicates the engine rolled back.
	OutcomeExecutionConflict Outcome = "execution_conflict"
)

// =============================================================================
// Error Codes
// =============================================================================

// ErrorCode represents a categorized error type for metrics. The
// assistant stages reuse their pipeline names so dashboards line up
// with the error sink.
type ErrorCode string

const (
	// ErrorCodeValidation indicates request validation failure.
	ErrorCodeValidation ErrorCode = "validation"

	// ErrorCodeScreening indicates the instruction was blocked by the
	// policy scan.
	ErrorCodeScreening ErrorCode = "screening"

	// ErrorCodeGeneration indicates LLM backend failure or timeout.
	ErrorCodeGeneration ErrorCode = "generation"

	// ErrorCodeParse indicates the LLM reply held no usable plan.
	ErrorCodeParse ErrorCode = "parse"

	// ErrorCodeAdmission indicates an admission gate rejection.
	ErrorCodeAdmission ErrorCode = "admission"

	// ErrorCodeExecution indicates an engine rollback.
	ErrorCodeExecution ErrorCode = "execution"

	// ErrorCodeInternal indicates internal server error.
	ErrorCodeInternal ErrorCode = "internal"
)

// =============================================================================
// Endpoint Names
// =============================================================================

// Endpoint represents an assistant endpoint for metrics labeling.
type Endpoint string

const (
	// EndpointPrompt is the prompt generation endpoint.
	EndpointPrompt Endpoint = "prompt"

	// EndpointApply is the plan application endpoint.
	EndpointApply Endpoint = "apply"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordPlan records a completed plan submission and its latency.
//
// # Inputs
//
//   - outcome: How the submission ended.
//   - seconds: Pipeline latency in seconds.
func (m *Metrics) RecordPlan(outcome Outcome, seconds float64) {
	m.PlansTotal.WithLabelValues(string(outcome)).Inc()
	m.ApplyDurationSeconds.WithLabelValues(string(outcome)).Observe(seconds)
}

// RecordRollback records an engine rollback by violation code.
func (m *Metrics) RecordRollback(violation string) {
	m.RollbacksTotal.WithLabelValues(violation).Inc()
}

// SetClipCount updates the committed clip count gauge.
func (m *Metrics) SetClipCount(n int) {
	m.Clips.Set(float64(n))
}

// RecordManualEdit records a manual move or trim mutation.
func (m *Metrics) RecordManualEdit(kind string) {
	m.ManualEditsTotal.WithLabelValues(kind).Inc()
}

// RecordRequest records a completed assistant request.
//
// # Inputs
//
//   - endpoint: The endpoint that handled the request.
//   - success: Whether the request completed successfully.
func (m *Metrics) RecordRequest(endpoint Endpoint, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.LLMRequestsTotal.WithLabelValues(string(endpoint), status).Inc()
}

// RecordGeneration records LLM generation latency.
func (m *Metrics) RecordGeneration(seconds float64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.GenerationSeconds.WithLabelValues(status).Observe(seconds)
}

// GenerationStarted increments the in-flight generation gauge.
func (m *Metrics) GenerationStarted() {
	m.ActiveGenerations.Inc()
}

// GenerationEnded decrements the in-flight generation gauge.
func (m *Metrics) GenerationEnded() {
	m.ActiveGenerations.Dec()
}

// RecordError records an assistant failure.
//
// # Inputs
//
//   - endpoint: The endpoint where the error occurred.
//   - code: The pipeline stage or error type code.
func (m *Metrics) RecordError(endpoint Endpoint, code ErrorCode) {
	m.ErrorsTotal.WithLabelValues(string(endpoint), string(code)).Inc()
}

// ClientConnected increments the websocket subscriber gauge.
func (m *Metrics) ClientConnected() {
	m.WebsocketClients.Inc()
}

// ClientDisconnected decrements the websocket subscriber gauge.
func (m *Metrics) ClientDisconnected() {
	m.WebsocketClients.Dec()
}

// ViolationLabel maps a rollback error to its rollbacks_total label.
// Invariant violations carry a stable code; a missing clip reports as
// clip_not_found; anything else is unknown.
func ViolationLabel(err error) string {
	var violation timeline.InvariantViolation
	if errors.As(err, &violation) {
		return violation.Code()
	}
	var notFound timeline.ClipNotFoundError
	if errors.As(err, &notFound) {
		return "clip_not_found"
	}
	return "unknown"
}
