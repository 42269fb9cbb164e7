// Package observe provides application-wide observability primitives for
// SpeakUp: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all SpeakUp metrics.
const meterName = "github.com/VanshJP/SpeakUp-App-sub001"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Histograms ---

	// SessionDuration tracks completed session length in seconds.
	SessionDuration metric.Float64Histogram

	// SessionScore tracks the overall score distribution of completed
	// sessions.
	SessionScore metric.Int64Histogram

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram

	// --- Counters ---

	// IngestEvents counts merged session events. Use with attribute:
	//   attribute.String("kind", ...)
	IngestEvents metric.Int64Counter

	// SessionsCompleted counts terminal session outcomes. Use with attribute:
	//   attribute.String("status", ...) with "scored", "cancelled", or "failed"
	SessionsCompleted metric.Int64Counter

	// DrillResults counts finished drills. Use with attributes:
	//   attribute.String("mode", ...), attribute.String("result", ...)
	DrillResults metric.Int64Counter

	// AchievementsUnlocked counts first-time achievement unlocks.
	AchievementsUnlocked metric.Int64Counter

	// ProviderErrors counts audio/transcript feed errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live practice sessions. The
	// single-session discipline keeps this at 0 or 1; values above 1
	// indicate a session-manager bug.
	ActiveSessions metric.Int64UpDownCounter
}

// sessionDurationBuckets defines histogram bucket boundaries (in seconds)
// sized for short practice sessions up to long speeches.
var sessionDurationBuckets = []float64{
	5, 15, 30, 60, 120, 300, 600, 1200,
}

// scoreBuckets covers the 0-100 score range in decile steps.
var scoreBuckets = []float64{
	10, 20, 30, 40, 50, 60, 70, 80, 90, 100,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.SessionDuration, err = m.Float64Histogram("speakup.session.duration",
		metric.WithDescription("Length of completed practice sessions."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(sessionDurationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SessionScore, err = m.Int64Histogram("speakup.session.score",
		metric.WithDescription("Overall score distribution of completed sessions."),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("speakup.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.IngestEvents, err = m.Int64Counter("speakup.ingest.events",
		metric.WithDescription("Total merged session events by kind."),
	); err != nil {
		return nil, err
	}
	if met.SessionsCompleted, err = m.Int64Counter("speakup.sessions.completed",
		metric.WithDescription("Total terminal session outcomes by status."),
	); err != nil {
		return nil, err
	}
	if met.DrillResults, err = m.Int64Counter("speakup.drill.results",
		metric.WithDescription("Total finished drills by mode and result."),
	); err != nil {
		return nil, err
	}
	if met.AchievementsUnlocked, err = m.Int64Counter("speakup.achievements.unlocked",
		metric.WithDescription("Total first-time achievement unlocks."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("speakup.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("speakup.active_sessions",
		metric.WithDescription("Number of live practice sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordIngestEvent records one merged event of the given kind.
func (m *Metrics) RecordIngestEvent(ctx context.Context, kind string) {
	m.IngestEvents.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

// RecordSessionCompleted records a terminal session outcome.
func (m *Metrics) RecordSessionCompleted(ctx context.Context, status string) {
	m.SessionsCompleted.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordDrillResult records a finished drill.
func (m *Metrics) RecordDrillResult(ctx context.Context, mode string, passed bool) {
	result := "fail"
	if passed {
		result = "pass"
	}
	m.DrillResults.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("mode", mode),
			attribute.String("result", result),
		),
	)
}

// RecordProviderError records a provider error counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
