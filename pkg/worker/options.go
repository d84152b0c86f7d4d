// Package worker provides the bounded-parallelism pool that runs jobs.
package worker

import (
	"log/slog"

	"github.com/jdziat/persisted-jobs/pkg/security"
)

// WorkerOption configures a Pool.
type WorkerOption interface {
	ApplyWorker(*WorkerConfig)
}

type workerOptionFunc func(*WorkerConfig)

func (f workerOptionFunc) ApplyWorker(c *WorkerConfig) { f(c) }

// WorkerConfig holds pool configuration.
type WorkerConfig struct {
	// Concurrency bounds in-flight jobs. Zero means unbounded.
	Concurrency int
	Logger      *slog.Logger
}

// Concurrency sets the number of jobs that may run at once.
// Values are clamped to MaxConcurrency; zero or less means unbounded.
func Concurrency(n int) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) {
		c.Concurrency = security.ClampConcurrency(n)
	})
}

// WithLogger sets the pool logger.
func WithLogger(l *slog.Logger) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) {
		c.Logger = l
	})
}
