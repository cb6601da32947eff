package observe

import "errors"

var (
	// ErrMissingServiceName is returned by Config.Validate when no service
	// name is set; every span and metric is tagged with it.
	ErrMissingServiceName = errors.New("observe: service name is required")

	// ErrInvalidSamplePct means Tracing.SamplePct is outside [0, 1].
	ErrInvalidSamplePct = errors.New("observe: trace sample ratio out of range")

	ErrInvalidTracingExporter = errors.New("observe: unsupported tracing exporter")
	ErrInvalidMetricsExporter = errors.New("observe: unsupported metrics exporter")
	ErrInvalidLogLevel        = errors.New("observe: unsupported log level")

	// ErrNilObserver is returned when instruments are requested from a nil
	// Observer.
	ErrNilObserver = errors.New("observe: observer is nil")

	// ErrNilMeter is returned by NewMetrics when no meter is given.
	ErrNilMeter = errors.New("observe: meter is nil")

	// ErrInstrument wraps a failure to create one of the cache counters or
	// the handler duration histogram.
	ErrInstrument = errors.New("observe: cannot create cache instrument")
)
