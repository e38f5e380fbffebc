package app

import (
	"context"
	"time"

	"invlearn/internal"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// BatchItem is the outcome of one job in a batch
type BatchItem struct {
	Job    Job
	Result *Result
	Err    error
}

// BatchService learns several programs concurrently with a bounded number of
// sessions in flight
type BatchService struct {
	learning *LearningService
	sem      *semaphore.Weighted
	logger   *internal.Logger
}

// NewBatchService creates a batch runner allowing parallelism concurrent
// sessions
func NewBatchService(learning *LearningService, parallelism int) *BatchService {
	if parallelism < 1 {
		parallelism = 1
	}
	return &BatchService{
		learning: learning,
		sem:      semaphore.NewWeighted(int64(parallelism)),
		logger:   internal.DefaultLogger,
	}
}

// WithLogger sets the logger
func (b *BatchService) WithLogger(logger *internal.Logger) *BatchService {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// RunAll learns every job. A failing session does not stop the others; its
// error is reported on its item. The returned error is non-nil only when ctx
// ends before every job was started.
func (b *BatchService) RunAll(ctx context.Context, jobs []Job) ([]BatchItem, error) {
	start := time.Now()
	items := make([]BatchItem, len(jobs))
	g, gctx := errgroup.WithContext(ctx)

	for i, job := range jobs {
		items[i].Job = job
		if err := b.sem.Acquire(gctx, 1); err != nil {
			for j := i; j < len(jobs); j++ {
				items[j] = BatchItem{Job: jobs[j], Err: err}
			}
			_ = g.Wait()
			return items, err
		}
		g.Go(func() error {
			defer b.sem.Release(1)
			result, err := b.learning.Learn(gctx, job)
			items[i].Result = result
			items[i].Err = err
			return nil
		})
	}
	_ = g.Wait()

	converged := 0
	for _, item := range items {
		if item.Err == nil && item.Result != nil && item.Result.Converged() {
			converged++
		}
	}
	b.logger.Info("[Batch] %d/%d sessions converged in %v", converged, len(jobs), time.Since(start))
	return items, nil
}
