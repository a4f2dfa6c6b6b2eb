package reqctx

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type key int

const runKey key = 0

// RunContext identifies one crawl pass
type RunContext struct {
	RunID     string
	StartTime time.Time
}

// WithRun attaches a run to ctx. An empty id gets a fresh UUID.
func WithRun(ctx context.Context, runID string) context.Context {
	if runID == "" {
		runID = uuid.NewString()
	}
	return context.WithValue(ctx, runKey, &RunContext{
		RunID:     runID,
		StartTime: time.Now(),
	})
}

// GetRun returns the run attached to ctx, or one with RunID "unknown"
func GetRun(ctx context.Context) *RunContext {
	if rc, ok := ctx.Value(runKey).(*RunContext); ok {
		return rc
	}
	return &RunContext{
		RunID:     "unknown",
		StartTime: time.Now(),
	}
}

// HasRun reports whether ctx already carries a run
func HasRun(ctx context.Context) bool {
	_, ok := ctx.Value(runKey).(*RunContext)
	return ok
}

// RunError wraps an error with the run it happened in
type RunError struct {
	RunID string
	Err   error
}

// Error implements the error interface
func (e *RunError) Error() string {
	return fmt.Sprintf("[run %s] %v", e.RunID, e.Err)
}

// Unwrap returns the underlying error
func (e *RunError) Unwrap() error {
	return e.Err
}

// NewRunError wraps err with the run from ctx
func NewRunError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	return &RunError{
		RunID: GetRun(ctx).RunID,
		Err:   err,
	}
}
