package services

import "context"

type contextKey string

const (
	jobIDKey       contextKey = "job_id"
	stepKey        contextKey = "step"
	measurementKey contextKey = "measurement"
)

// WithJobID annotates context with the archive job identifier.
func WithJobID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext extracts the archive job identifier if present.
func JobIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(jobIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStep annotates context with the archive step name.
func WithStep(ctx context.Context, step string) context.Context {
	if step == "" {
		return ctx
	}
	return context.WithValue(ctx, stepKey, step)
}

// StepFromContext returns the step name if present.
func StepFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stepKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithMeasurement annotates context with the measurement number being archived.
func WithMeasurement(ctx context.Context, number int) context.Context {
	return context.WithValue(ctx, measurementKey, number)
}

// MeasurementFromContext extracts the measurement number if present.
func MeasurementFromContext(ctx context.Context) (int, bool) {
	v := ctx.Value(measurementKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	default:
		return 0, false
	}
}
