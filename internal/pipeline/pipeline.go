package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/commercepulse/internal/logger"
	"github.com/dvloznov/commercepulse/internal/metrics"
	"github.com/dvloznov/commercepulse/internal/transform"
)

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially and stops at the first failure,
// which is returned as a *StageError.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		start := time.Now()
		err := step.Execute(ctx, state)
		metrics.StageDuration.WithLabelValues(step.Name()).Observe(time.Since(start).Seconds())
		if err != nil {
			return &StageError{Stage: step.Name(), Step: i + 1, Err: err}
		}
	}
	return nil
}

// Summary describes a completed transform run.
type Summary struct {
	RunID    string
	Fetched  int
	Orders   int
	Payments int
	Refunds  int
	Excluded int
}

// TransformDeps are the collaborators of a transform run. Pusher may be nil.
type TransformDeps struct {
	Source     EventSource
	Reconciler *transform.Reconciler
	Loader     FactLoader
	Pusher     MetricsPusher
}

// NewTransformPipeline creates the standard fetch, reconcile, load and
// metrics pipeline.
func NewTransformPipeline(deps TransformDeps) *Pipeline {
	return NewPipeline(
		&FetchEventsStep{Source: deps.Source},
		&ReconcileStep{Reconciler: deps.Reconciler},
		&LoadFactsStep{Loader: deps.Loader},
		&RecordMetricsStep{Pusher: deps.Pusher},
	)
}

// RunTransform rebuilds the fact tables from the full event store.
func RunTransform(ctx context.Context, deps TransformDeps) (Summary, error) {
	if deps.Reconciler == nil {
		deps.Reconciler = transform.NewReconciler(transform.DefaultPolicy())
	}

	state := &PipelineState{RunID: uuid.NewString()}
	log := logger.Component(ctx, "pipeline").With().Str("run_id", state.RunID).Logger()
	ctx = logger.WithContext(ctx, log)

	log.Info().Msg("Starting transform run")
	if err := NewTransformPipeline(deps).Execute(ctx, state); err != nil {
		log.Error().Err(err).Msg("Transform run failed")
		return Summary{RunID: state.RunID}, err
	}

	summary := Summary{
		RunID:    state.RunID,
		Fetched:  len(state.Events),
		Orders:   len(state.Facts.Orders),
		Payments: len(state.Facts.Payments),
		Refunds:  len(state.Facts.Refunds),
		Excluded: state.Facts.Excluded,
	}
	log.Info().
		Int("fetched", summary.Fetched).
		Int("excluded", summary.Excluded).
		Msg("Transform run complete")
	return summary, nil
}
