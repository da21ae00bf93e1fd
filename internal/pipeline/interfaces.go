package pipeline

import (
	"context"

	"github.com/dvloznov/commercepulse/internal/events"
	"github.com/dvloznov/commercepulse/internal/transform"
	"github.com/dvloznov/commercepulse/internal/warehouse"
)

// EventSource provides the raw events a transform run reconciles.
// This interface enables mocking of the event store in pipeline tests.
type EventSource interface {
	ScanAll(ctx context.Context) ([]events.RawEvent, error)
}

// FactLoader writes reconciled facts to the warehouse.
type FactLoader interface {
	LoadFacts(ctx context.Context, facts transform.Facts) (warehouse.LoadReport, error)
}

// MetricsPusher publishes the run's metrics once the facts are loaded.
type MetricsPusher interface {
	Push(ctx context.Context, instance string) error
}

// PusherFunc adapts a function to MetricsPusher.
type PusherFunc func(ctx context.Context, instance string) error

// Push implements MetricsPusher.
func (f PusherFunc) Push(ctx context.Context, instance string) error {
	return f(ctx, instance)
}
