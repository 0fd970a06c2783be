// File: internal/pipeline/runner.go
package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/forgelabs-io/accountforge/internal/signup"
)

// Saver persists terminal run results. Optional; a nil Saver disables
// persistence.
type Saver interface {
	SaveResult(ctx context.Context, result *RunResult) error
}

// Runner schedules a batch of account-creation runs with bounded
// concurrency. Each run gets a fresh identity.
type Runner struct {
	pipeline    *Pipeline
	concurrency int
	store       Saver
	logger      *zap.Logger
}

// NewRunner builds a batch runner.
func NewRunner(p *Pipeline, concurrency int, store Saver, logger *zap.Logger) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{
		pipeline:    p,
		concurrency: concurrency,
		store:       store,
		logger:      logger.Named("runner"),
	}
}

// Run executes count account-creation runs and returns every terminal
// result. A cancelled context stops scheduling new runs; runs already in
// flight finish with their own terminal outcome. Persistence failures are
// logged per result and do not abort the batch.
func (r *Runner) Run(ctx context.Context, count int) ([]*RunResult, error) {
	if count <= 0 {
		return nil, ErrNoRuns
	}

	var (
		mu      sync.Mutex
		results = make([]*RunResult, 0, count)
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.concurrency)

	for i := 0; i < count; i++ {
		if ctx.Err() != nil {
			break
		}
		group.Go(func() error {
			result := r.pipeline.Run(groupCtx, signup.NewIdentity())
			r.persist(ctx, result)
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

func (r *Runner) persist(ctx context.Context, result *RunResult) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveResult(context.WithoutCancel(ctx), result); err != nil {
		r.logger.Error("Failed to persist run result.",
			zap.String("run_id", result.RunID.String()),
			zap.Error(err),
		)
	}
}
