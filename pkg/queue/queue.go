package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jdziat/persisted-jobs/pkg/core"
	"github.com/jdziat/persisted-jobs/pkg/handler"
	"github.com/jdziat/persisted-jobs/pkg/internal/chanq"
	"github.com/jdziat/persisted-jobs/pkg/jobctx"
	"github.com/jdziat/persisted-jobs/pkg/persistence"
	"github.com/jdziat/persisted-jobs/pkg/policy"
	"github.com/jdziat/persisted-jobs/pkg/schedule"
	"github.com/jdziat/persisted-jobs/pkg/security"
	"github.com/jdziat/persisted-jobs/pkg/subscription"
	"github.com/jdziat/persisted-jobs/pkg/worker"
)

// JobFunc persists a job with args and hands it to dispatch.
type JobFunc func(ctx context.Context, args ...any) error

// Queue persists, dispatches and retries the jobs of one store.
type Queue struct {
	name     string
	store    *persistence.Store
	handlers *handler.Registry
	subs     *subscription.Registry
	pool     *worker.Pool
	logger   *slog.Logger

	// arrivals feeds dispatch: the recovered backlog first, then new jobs
	// and retries in the order they are pushed.
	arrivals *chanq.Queue[*core.NumberedJob]
	retries  *chanq.Queue[*core.NumberedJob]

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	mu     sync.Mutex
	closed bool
	done   chan struct{}
	err    error
}

// New opens the store name on kv, compacts it, queues the recovered backlog
// and starts dispatch. The backlog is queued before New returns, so it is
// dispatched ahead of every job created afterwards.
func New(ctx context.Context, name string, kv core.KV, opts ...Option) (*Queue, error) {
	if err := security.ValidateStoreName(name); err != nil {
		return nil, core.Configuration("", err)
	}

	o := NewOptions()
	for _, opt := range opts {
		opt.Apply(o)
	}
	logger := o.Logger.With("store", name)

	handlers, err := handler.NewRegistry(o.Handlers...)
	if err != nil {
		return nil, err
	}

	store, err := persistence.Open(ctx, name, kv, logger)
	if err != nil {
		return nil, err
	}
	if _, err := store.Compact(ctx); err != nil {
		return nil, err
	}
	backlog, err := store.FetchAllPersistedJobs(ctx)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	group, groupCtx := errgroup.WithContext(runCtx)

	q := &Queue{
		name:     name,
		store:    store,
		handlers: handlers,
		subs:     subscription.NewRegistry(store.CachedJob),
		logger:   logger,
		arrivals: chanq.New[*core.NumberedJob](groupCtx.Done()),
		retries:  chanq.New[*core.NumberedJob](groupCtx.Done()),
		ctx:      groupCtx,
		cancel:   cancel,
		group:    group,
		done:     make(chan struct{}),
	}
	q.pool = worker.NewPool(q.process,
		worker.Concurrency(o.Concurrency),
		worker.WithLogger(logger),
	)

	recovered := 0
	for i := range backlog {
		if backlog[i].IsDone {
			continue
		}
		job := backlog[i].NumberedJob
		q.arrivals.Push(&job)
		recovered++
	}
	if recovered > 0 {
		logger.Info("recovered persisted jobs", "count", recovered)
	}

	dispatched := policy.Compose(o.Dispatch)(groupCtx, q.arrivals.Out())
	group.Go(func() error {
		return q.pool.Run(groupCtx, dispatched)
	})

	retried := policy.Compose(o.Retry)(groupCtx, q.retries.Out())
	group.Go(func() error {
		for job := range retried {
			q.logger.Debug("re-dispatching job", "job_type", job.Type, "serial", job.SerialNumber)
			if !q.arrivals.Push(job) {
				return nil
			}
		}
		return nil
	})

	return q, nil
}

// Name returns the store name.
func (q *Queue) Name() string {
	return q.name
}

// CreateJob returns a function that creates a job of jobType each time it
// is called. An unregistered jobType is rejected when the function is
// called, before anything is persisted.
func (q *Queue) CreateJob(jobType string, opts ...JobOption) JobFunc {
	return func(ctx context.Context, args ...any) error {
		_, err := q.Enqueue(ctx, jobType, args, opts...)
		return err
	}
}

// Enqueue persists a job and hands it to dispatch, returning the persisted
// job.
func (q *Queue) Enqueue(ctx context.Context, jobType string, args []any, opts ...JobOption) (*core.NumberedJob, error) {
	if q.isClosed() {
		return nil, core.ErrQueueClosed
	}
	if _, ok := q.handlers.Lookup(jobType); !ok {
		return nil, core.Configuration(jobType, core.ErrNoHandler)
	}

	var o JobOptions
	for _, opt := range opts {
		opt.ApplyJob(&o)
	}
	if err := security.ValidateTopic(o.Topic); err != nil {
		return nil, err
	}

	encoded, err := core.NewArgs(args...)
	if err != nil {
		return nil, err
	}
	if err := security.ValidateArgs(encoded); err != nil {
		return nil, err
	}

	job, err := q.store.PersistNewJob(ctx, core.NewJob(jobType, encoded, o.Topic))
	if err != nil {
		return nil, err
	}

	if !q.arrivals.Push(job.Clone()) {
		q.logger.Debug("queue closed; job left for recovery", "job_type", jobType, "serial", job.SerialNumber)
	}
	return job, nil
}

// Subscribe registers cb for lifecycle notifications of the job tracked
// under topic. cb first receives one catch-up notification describing the
// current state. The returned function unsubscribes.
func (q *Queue) Subscribe(topic string, cb subscription.Callback) func() {
	return q.subs.Add(topic, cb)
}

// Status returns the last known state of the live job tracked under topic,
// without storage I/O.
func (q *Queue) Status(topic string) (*core.NumberedJob, bool) {
	return q.store.CachedJob(topic)
}

// Schedule creates a job of jobType with args each time s fires, until the
// queue is closed.
func (q *Queue) Schedule(jobType string, s schedule.Schedule, args ...any) error {
	if _, ok := q.handlers.Lookup(jobType); !ok {
		return core.Configuration(jobType, core.ErrNoHandler)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return core.ErrQueueClosed
	}

	q.group.Go(func() error {
		schedule.Run(q.ctx, s, func(time.Time) {
			if _, err := q.Enqueue(q.ctx, jobType, args); err != nil && !errors.Is(err, core.ErrQueueClosed) {
				q.logger.Error("failed to create scheduled job", "job_type", jobType, "error", err)
			}
		})
		return nil
	})
	return nil
}

// Close stops dispatch and waits for running handlers to return. Jobs not
// yet completed stay persisted and are recovered by the next New.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return q.err
	}
	q.closed = true
	q.mu.Unlock()

	q.arrivals.Close()
	q.retries.Close()
	q.cancel()

	err := q.group.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	q.err = err
	close(q.done)
	return err
}

func (q *Queue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *Queue) notify(job *core.NumberedJob, n core.Notification) {
	if job.Topic != "" {
		q.subs.Notify(job.Topic, n)
	}
}

// process runs one dispatched job to success or failure.
func (q *Queue) process(ctx context.Context, job *core.NumberedJob) {
	h, ok := q.handlers.Lookup(job.Type)
	if !ok {
		// Retrying cannot register the handler, so the job is not retried.
		// Its record stays live for a process that does register it.
		q.logger.Error("cannot dispatch job",
			"job_type", job.Type,
			"serial", job.SerialNumber,
			"error", core.Configuration(job.Type, core.ErrNoHandler),
		)
		q.notify(job, core.Failed)
		return
	}

	q.logger.Debug("dispatching job", "job_type", job.Type, "serial", job.SerialNumber, "job_id", job.ID)

	if err := q.execute(ctx, h, job); err != nil {
		q.logger.Warn("job failed",
			"job_type", job.Type,
			"serial", job.SerialNumber,
			"topic", job.Topic,
			"error", err,
		)
		q.notify(job, core.Failed)
		if !q.retries.Push(job.NextAttempt()) {
			q.logger.Debug("queue closed; retry left for recovery", "serial", job.SerialNumber)
		}
		return
	}

	// Completion is recorded even if the queue is closing meanwhile.
	if err := q.store.ClearPersistedJob(context.WithoutCancel(ctx), job); err != nil {
		q.logger.Error("failed to record job completion",
			"job_type", job.Type,
			"serial", job.SerialNumber,
			"error", err,
		)
	}
	if job.Topic != "" {
		q.subs.Complete(job.Topic, core.Done)
	}
}

func (q *Queue) execute(ctx context.Context, h *handler.Handler, job *core.NumberedJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &core.HandlerError{JobType: job.Type, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	// finished is set once the handler returns; checkpoints written after
	// that would race the completion tombstone or the next attempt.
	var mu sync.Mutex
	var finished bool
	defer func() {
		mu.Lock()
		finished = true
		mu.Unlock()
	}()

	update := func(ctx context.Context, state any) error {
		raw, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("jobs: failed to marshal state: %w", err)
		}

		mu.Lock()
		defer mu.Unlock()
		if finished {
			return core.ErrAttemptFinished
		}
		prev := job.State
		job.State = raw
		if err := q.store.UpdateJob(ctx, job); err != nil {
			job.State = prev
			return err
		}
		q.notify(job, core.Intermediate(raw))
		return nil
	}

	hctx := jobctx.WithJob(ctx, q.name, job.Clone())
	if err := h.Bind(job.State, update)(hctx, job.Args); err != nil {
		return &core.HandlerError{JobType: job.Type, Err: err}
	}
	return nil
}
