package observe

// Instruments bundles the telemetry a cache middleware reports to.
//
// Contract:
//   - Concurrency: safe for concurrent use when its parts are.
//   - Ownership: the zero value is not usable; build with NewInstruments,
//     InstrumentsFromObserver or NopInstruments.
type Instruments struct {
	Tracer  Tracer
	Metrics Metrics
	Logger  Logger
}

// NewInstruments bundles the given parts. Nil parts become no-ops.
func NewInstruments(tracer Tracer, metrics Metrics, logger Logger) Instruments {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return Instruments{Tracer: tracer, Metrics: metrics, Logger: logger}
}

// NopInstruments returns instruments that record nothing.
func NopInstruments() Instruments {
	return NewInstruments(nil, nil, nil)
}

// InstrumentsFromObserver builds instruments from an Observer's tracer,
// meter and logger.
func InstrumentsFromObserver(obs Observer) (Instruments, error) {
	if obs == nil {
		return Instruments{}, ErrNilObserver
	}

	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return Instruments{}, err
	}

	return NewInstruments(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
