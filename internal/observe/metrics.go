// Package observe holds the OpenTelemetry metric instruments for voicetone.
//
// Instruments are created against a metric.MeterProvider. InitProvider
// installs an SDK provider with a Prometheus exporter so the health server
// can expose /metrics; tests use NewMetrics with a ManualReader-backed
// provider instead of the global one.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/nadzzz/voicetone"

// Pipeline stages, used as the "stage" attribute.
const (
	StageTranscription = "transcription"
	StageGeneration    = "generation"
	StageSynthesis     = "synthesis"
)

// Metrics holds all metric instruments. Safe for concurrent use.
type Metrics struct {
	// StageDuration tracks collaborator latency per pipeline stage.
	StageDuration metric.Float64Histogram

	// CollaboratorCalls counts paid API calls by stage, backend and status.
	CollaboratorCalls metric.Int64Counter

	// ReplayedTurns counts turns answered from the session cache.
	ReplayedTurns metric.Int64Counter

	// Turns counts finished turns by outcome.
	Turns metric.Int64Counter

	// ActiveSessions tracks open sessions.
	ActiveSessions metric.Int64UpDownCounter
}

var latencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16}

// NewMetrics creates all instruments using mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.StageDuration, err = m.Float64Histogram("voicetone.stage.duration",
		metric.WithDescription("Latency of transcription, generation and synthesis calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CollaboratorCalls, err = m.Int64Counter("voicetone.collaborator.calls",
		metric.WithDescription("Paid collaborator calls by stage, backend and status."),
	); err != nil {
		return nil, err
	}
	if met.ReplayedTurns, err = m.Int64Counter("voicetone.turns.replayed",
		metric.WithDescription("Turns served from the previous turn because the audio was unchanged."),
	); err != nil {
		return nil, err
	}
	if met.Turns, err = m.Int64Counter("voicetone.turns",
		metric.WithDescription("Finished turns by outcome."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("voicetone.active_sessions",
		metric.WithDescription("Number of open conversation sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns a package-level Metrics bound to the global meter
// provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordCall records one collaborator call and its latency.
func (m *Metrics) RecordCall(ctx context.Context, stage, backend string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.CollaboratorCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("backend", backend),
		attribute.String("status", status),
	))
	m.StageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("stage", stage),
	))
}

// RecordTurn records a finished turn.
func (m *Metrics) RecordTurn(ctx context.Context, outcome string) {
	m.Turns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordReplay records a turn answered from cache.
func (m *Metrics) RecordReplay(ctx context.Context) {
	m.ReplayedTurns.Add(ctx, 1)
}
