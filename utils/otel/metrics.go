package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the auth-sync metric instruments. Nil until InitMetrics runs;
// the Record helpers are safe to call either way.
var Metrics *AuthSyncMetrics

// AuthSyncMetrics contains all metric instruments.
type AuthSyncMetrics struct {
	IdentityCalls        metric.Int64Counter
	IdentityCallDuration metric.Float64Histogram
	TransitionsApplied   metric.Int64Counter
	TransitionsDiscarded metric.Int64Counter
}

// InitMetrics creates the instruments against the global meter provider.
func InitMetrics() error {
	meter := otel.Meter("auth-sync")

	identityCalls, err := meter.Int64Counter("auth_sync_identity_calls_total",
		metric.WithDescription("Identity service calls by operation and outcome"),
	)
	if err != nil {
		return err
	}

	identityCallDuration, err := meter.Float64Histogram("auth_sync_identity_call_duration_seconds",
		metric.WithDescription("Identity service call duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	applied, err := meter.Int64Counter("auth_sync_transitions_applied_total",
		metric.WithDescription("Session store transitions applied"),
	)
	if err != nil {
		return err
	}

	discarded, err := meter.Int64Counter("auth_sync_transitions_discarded_total",
		metric.WithDescription("Session store transitions discarded as stale"),
	)
	if err != nil {
		return err
	}

	Metrics = &AuthSyncMetrics{
		IdentityCalls:        identityCalls,
		IdentityCallDuration: identityCallDuration,
		TransitionsApplied:   applied,
		TransitionsDiscarded: discarded,
	}
	return nil
}

// RecordIdentityCall counts one identity service round trip.
func RecordIdentityCall(ctx context.Context, op, outcome string, elapsed time.Duration) {
	m := Metrics
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	)
	m.IdentityCalls.Add(ctx, 1, attrs)
	m.IdentityCallDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordTransition counts a session store transition by kind.
func RecordTransition(ctx context.Context, kind string, applied bool) {
	m := Metrics
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("transition", kind))
	if applied {
		m.TransitionsApplied.Add(ctx, 1, attrs)
		return
	}
	m.TransitionsDiscarded.Add(ctx, 1, attrs)
}
