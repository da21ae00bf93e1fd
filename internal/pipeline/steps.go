package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/commercepulse/internal/events"
	"github.com/dvloznov/commercepulse/internal/logger"
	"github.com/dvloznov/commercepulse/internal/metrics"
	"github.com/dvloznov/commercepulse/internal/transform"
	"github.com/dvloznov/commercepulse/internal/warehouse"
)

// PipelineStep represents a single step in the transform pipeline.
type PipelineStep interface {
	Name() string
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	RunID  string
	Events []events.RawEvent
	Facts  transform.Facts
	Report warehouse.LoadReport
}

// FetchEventsStep reads every raw event from the event store.
type FetchEventsStep struct {
	Source EventSource
}

func (s *FetchEventsStep) Name() string { return StageFetch }

func (s *FetchEventsStep) Execute(ctx context.Context, state *PipelineState) error {
	evts, err := s.Source.ScanAll(ctx)
	if err != nil {
		return err
	}
	state.Events = evts
	metrics.EventsFetched.Set(float64(len(evts)))
	log := logger.Component(ctx, "pipeline")
	log.Info().Int("events", len(evts)).Msg("Fetched raw events")
	return nil
}

// ReconcileStep classifies the fetched events and extracts the fact rows.
type ReconcileStep struct {
	Reconciler *transform.Reconciler
}

func (s *ReconcileStep) Name() string { return StageReconcile }

func (s *ReconcileStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Reconciler == nil {
		return fmt.Errorf("no reconciler configured")
	}
	state.Facts = s.Reconciler.Reconcile(state.Events)

	log := logger.Component(ctx, "pipeline")
	log.Info().
		Int("orders", len(state.Facts.Orders)).
		Int("payments", len(state.Facts.Payments)).
		Int("refunds", len(state.Facts.Refunds)).
		Int("excluded", state.Facts.Excluded).
		Msg("Reconciled events")
	return nil
}

// LoadFactsStep replaces the warehouse fact tables.
type LoadFactsStep struct {
	Loader FactLoader
}

func (s *LoadFactsStep) Name() string { return StageLoad }

func (s *LoadFactsStep) Execute(ctx context.Context, state *PipelineState) error {
	report, err := s.Loader.LoadFacts(ctx, state.Facts)
	if err != nil {
		return err
	}
	state.Report = report
	return nil
}

// RecordMetricsStep updates the run gauges and pushes them when a pusher is set.
type RecordMetricsStep struct {
	Pusher MetricsPusher
	Now    func() time.Time
}

func (s *RecordMetricsStep) Name() string { return StageMetrics }

func (s *RecordMetricsStep) Execute(ctx context.Context, state *PipelineState) error {
	metrics.FactRows.WithLabelValues(warehouse.OrdersTable).Set(float64(len(state.Facts.Orders)))
	metrics.FactRows.WithLabelValues(warehouse.PaymentsTable).Set(float64(len(state.Facts.Payments)))
	metrics.FactRows.WithLabelValues(warehouse.RefundsTable).Set(float64(len(state.Facts.Refunds)))
	metrics.EventsExcluded.Set(float64(state.Facts.Excluded))

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	metrics.LastSuccess.Set(float64(now().Unix()))

	if s.Pusher == nil {
		return nil
	}
	return s.Pusher.Push(ctx, state.RunID)
}
