package covmatrix

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

const meterName = "github.com/diegommm/covmatrix"

// Option configures a [CovarianceMatrix] created with [New].
type Option func(*options)

type options struct {
	logger        *zap.Logger
	meterProvider metric.MeterProvider
	name          string
}

// WithLogger sets the logger used to report the established dimension,
// consumed samples (at Debug level) and rejected samples.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMeterProvider enables the `covmatrix.samples.consumed` and
// `covmatrix.samples.rejected` counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// WithName sets the value of the `accumulator` attribute recorded with every
// measurement, and the `accumulator` field of every log entry.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

var nopLogger = zap.NewNop()

type telemetry struct {
	consumed metric.Int64Counter
	rejected metric.Int64Counter
	attrs    metric.MeasurementOption
}

func newTelemetry(mp metric.MeterProvider, name string,
	logger *zap.Logger) *telemetry {
	meter := mp.Meter(meterName)

	consumed, err := meter.Int64Counter("covmatrix.samples.consumed",
		metric.WithDescription("The number of samples added to the covariance estimate"),
		metric.WithUnit("{sample}"),
	)
	if err != nil {
		logger.Error("Error creating consumed samples counter", zap.Error(err))
		consumed = noop.Int64Counter{}
	}

	rejected, err := meter.Int64Counter("covmatrix.samples.rejected",
		metric.WithDescription("The number of samples rejected because of their dimension"),
		metric.WithUnit("{sample}"),
	)
	if err != nil {
		logger.Error("Error creating rejected samples counter", zap.Error(err))
		rejected = noop.Int64Counter{}
	}

	return &telemetry{
		consumed: consumed,
		rejected: rejected,
		attrs: metric.WithAttributeSet(attribute.NewSet(
			attribute.String("accumulator", name),
		)),
	}
}

func (t *telemetry) sampleConsumed() {
	if t != nil {
		t.consumed.Add(context.Background(), 1, t.attrs)
	}
}

func (t *telemetry) sampleRejected() {
	if t != nil {
		t.rejected.Add(context.Background(), 1, t.attrs)
	}
}
