package pipeline

import "fmt"

// Stage names reported by StageError.
const (
	StageFetch     = "fetch"
	StageReconcile = "reconcile"
	StageLoad      = "load"
	StageMetrics   = "metrics"
)

// StageError reports which pipeline step failed.
type StageError struct {
	Stage string
	Step  int
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline step %d (%s) failed: %v", e.Step, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
