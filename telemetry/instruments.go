package telemetry

import "go.opentelemetry.io/otel/trace"

// Instruments bundles the tracer and metric instruments handed to the
// controller and the persistence bridge.
type Instruments struct {
	Tracer  trace.Tracer
	Metrics *Metrics
}

// NewInstruments creates the instrument set for p.
func NewInstruments(p *Provider) (*Instruments, error) {
	m, err := NewMetrics(p.Meter)
	if err != nil {
		return nil, err
	}
	return &Instruments{Tracer: p.Tracer, Metrics: m}, nil
}

// NoopInstruments returns instruments that discard everything.
func NoopInstruments() *Instruments {
	// The noop meter never fails to create instruments.
	in, _ := NewInstruments(Noop())
	return in
}
