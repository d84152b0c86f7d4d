package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jdziat/persisted-jobs/pkg/core"
)

// ProcessFunc handles one job. It is called concurrently up to the pool's
// bound.
type ProcessFunc func(ctx context.Context, job *core.NumberedJob)

// Pool runs jobs from a channel with bounded parallelism.
type Pool struct {
	process ProcessFunc
	config  WorkerConfig
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewPool creates a pool that hands every job to process.
func NewPool(process ProcessFunc, opts ...WorkerOption) *Pool {
	var config WorkerConfig
	for _, opt := range opts {
		opt.ApplyWorker(&config)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		process: process,
		config:  config,
		logger:  logger,
	}
}

// Concurrency returns the configured bound, zero meaning unbounded.
func (p *Pool) Concurrency() int {
	return p.config.Concurrency
}

// Run processes jobs until in is closed or ctx is done, then waits for jobs
// already started. With a bound of N, N goroutines pull from in, so queued
// jobs start in arrival order as slots free up. Without a bound every job
// starts its own goroutine as soon as it arrives.
func (p *Pool) Run(ctx context.Context, in <-chan *core.NumberedJob) error {
	if n := p.config.Concurrency; n > 0 {
		for i := 0; i < n; i++ {
			p.wg.Add(1)
			go p.processLoop(ctx, in)
		}
		p.wg.Wait()
		return ctx.Err()
	}

	defer p.wg.Wait()
	for {
		select {
		case job, ok := <-in:
			if !ok {
				return nil
			}
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				p.processJob(ctx, job)
			}()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *Pool) processLoop(ctx context.Context, jobs <-chan *core.NumberedJob) {
	defer p.wg.Done()

	for {
		select {
		case job, ok := <-jobs:
			if !ok {
				return
			}
			p.processJob(ctx, job)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pool) processJob(ctx context.Context, job *core.NumberedJob) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("job processing panicked",
				"job_id", job.ID,
				"serial", job.SerialNumber,
				"error", fmt.Errorf("panic: %v", r),
			)
		}
	}()
	p.process(ctx, job)
}
