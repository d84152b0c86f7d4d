// Package jobctx provides public access to job context for handlers.
package jobctx

import (
	"context"

	"github.com/jdziat/persisted-jobs/pkg/core"
)

type contextKey struct{}

// jobContext holds the running job and the store that dispatched it.
type jobContext struct {
	store string
	job   *core.NumberedJob
}

// WithJob returns a context carrying job as dispatched by store.
func WithJob(ctx context.Context, store string, job *core.NumberedJob) context.Context {
	return context.WithValue(ctx, contextKey{}, &jobContext{store: store, job: job})
}

func get(ctx context.Context) *jobContext {
	if jc, ok := ctx.Value(contextKey{}).(*jobContext); ok {
		return jc
	}
	return nil
}

// JobFromContext returns the current job, or nil if not in a job handler.
// The returned job is a snapshot taken at dispatch; checkpoints written
// during the attempt are not reflected in it.
func JobFromContext(ctx context.Context) *core.NumberedJob {
	jc := get(ctx)
	if jc == nil {
		return nil
	}
	return jc.job
}

// JobIDFromContext returns the current attempt's id, or empty string if not
// in a job handler.
func JobIDFromContext(ctx context.Context) string {
	job := JobFromContext(ctx)
	if job == nil {
		return ""
	}
	return job.ID
}

// TopicFromContext returns the current job's topic, or empty string.
func TopicFromContext(ctx context.Context) string {
	job := JobFromContext(ctx)
	if job == nil {
		return ""
	}
	return job.Topic
}

// RetryNumberFromContext returns how many times the current job has passed
// through a backoff policy.
func RetryNumberFromContext(ctx context.Context) int {
	job := JobFromContext(ctx)
	if job == nil {
		return 0
	}
	return job.RetryNumber
}

// StoreFromContext returns the name of the store that dispatched the
// current job, or empty string.
func StoreFromContext(ctx context.Context) string {
	jc := get(ctx)
	if jc == nil {
		return ""
	}
	return jc.store
}
