// Package jobs provides a durable job engine: jobs are persisted to a
// key-value store before they run, survive process restarts, and are
// retried through composable channel policies.
//
// This is the main package users should import. It re-exports the public
// types from the pkg/ packages and keeps a process-wide table of named
// stores.
//
// Basic usage:
//
//	db, _ := gorm.Open(sqlite.Open("jobs.db"), &gorm.Config{})
//	kv, _ := jobs.OpenGormKV(ctx, db)
//
//	send := jobs.Stateless("send-email", func(ctx context.Context, args jobs.Args) error {
//	    var to string
//	    if err := args.Decode(0, &to); err != nil {
//	        return err
//	    }
//	    return sendEmail(to)
//	})
//
//	q, _ := jobs.InitializeStore(ctx, "", kv,
//	    jobs.WithHandlers(send),
//	    jobs.RetryPolicy(jobs.Exponential(time.Second, time.Minute)),
//	)
//	q.CreateJob("send-email", jobs.Topic("welcome"))(ctx, "user@example.com")
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/jdziat/persisted-jobs/pkg/core"
	"github.com/jdziat/persisted-jobs/pkg/handler"
	"github.com/jdziat/persisted-jobs/pkg/jobctx"
	"github.com/jdziat/persisted-jobs/pkg/policy"
	"github.com/jdziat/persisted-jobs/pkg/queue"
	"github.com/jdziat/persisted-jobs/pkg/schedule"
	"github.com/jdziat/persisted-jobs/pkg/security"
	"github.com/jdziat/persisted-jobs/pkg/storage"
	"github.com/jdziat/persisted-jobs/pkg/subscription"
)

// Type aliases
type (
	// Job is a unit of work as created by CreateJob.
	Job = core.Job

	// NumberedJob is a Job with its serial number in the store.
	NumberedJob = core.NumberedJob

	// PersistedRecord is a NumberedJob as stored, with its completion flag.
	PersistedRecord = core.PersistedRecord

	// Args holds the JSON-encoded arguments of a job.
	Args = core.Args

	// Notification is delivered to topic subscribers.
	Notification = core.Notification

	// JobState is the kind of a Notification.
	JobState = core.JobState

	// KV is the storage collaborator.
	KV = core.KV

	// Entry is one key/value pair of a batch write.
	Entry = core.Entry

	// Connectivity reports whether the process is online.
	Connectivity = core.Connectivity

	// Queue persists, dispatches and retries the jobs of one store.
	Queue = queue.Queue

	// JobFunc creates a job of a fixed type.
	JobFunc = queue.JobFunc

	// Option configures a Queue.
	Option = queue.Option

	// Options holds Queue configuration.
	Options = queue.Options

	// JobOption configures a single job.
	JobOption = queue.JobOption

	// Handler runs jobs of one type.
	Handler = handler.Handler

	// HandlerFunc is the function a Handler runs for one job.
	HandlerFunc = handler.Func

	// UpdateFunc checkpoints the running job's state.
	UpdateFunc = handler.UpdateFunc

	// StatefulFunc builds a HandlerFunc from the last checkpoint.
	StatefulFunc = handler.StatefulFunc

	// Policy transforms a channel of jobs.
	Policy = policy.Policy

	// WaitFunc maps a retry index to a delay.
	WaitFunc = policy.WaitFunc

	// Callback receives notifications for one topic.
	Callback = subscription.Callback

	// Schedule defines when a recurring job is created next.
	Schedule = schedule.Schedule

	// MemoryKV is an in-process KV.
	MemoryKV = storage.MemoryKV

	// GormKV implements KV on a GORM table.
	GormKV = storage.GormKV

	// RedisKV implements KV on Redis.
	RedisKV = storage.RedisKV

	// ConfigurationError reports a setup or lookup mistake.
	ConfigurationError = core.ConfigurationError

	// PersistenceError reports a failed storage operation.
	PersistenceError = core.PersistenceError

	// HandlerError reports a failed or panicking handler.
	HandlerError = core.HandlerError
)

// Notification states
const (
	StateNotFound     = core.StateNotFound
	StateStarted      = core.StateStarted
	StateIntermediate = core.StateIntermediate
	StateDone         = core.StateDone
	StateFailed       = core.StateFailed
)

// Security limits
const (
	MaxJobTypeNameLength = security.MaxJobTypeNameLength
	MaxStoreNameLength   = security.MaxStoreNameLength
	MaxTopicLength       = security.MaxTopicLength
	MaxJobArgsSize       = security.MaxJobArgsSize
	MaxConcurrency       = security.MaxConcurrency
)

// Error variables
var (
	ErrInvalidJobTypeName      = core.ErrInvalidJobTypeName
	ErrJobTypeNameTooLong      = core.ErrJobTypeNameTooLong
	ErrInvalidStoreName        = core.ErrInvalidStoreName
	ErrStoreNameTooLong        = core.ErrStoreNameTooLong
	ErrTopicTooLong            = core.ErrTopicTooLong
	ErrJobArgsTooLarge         = core.ErrJobArgsTooLarge
	ErrNoHandler               = core.ErrNoHandler
	ErrDuplicateHandler        = core.ErrDuplicateHandler
	ErrStoreNotInitialized     = core.ErrStoreNotInitialized
	ErrStoreAlreadyInitialized = core.ErrStoreAlreadyInitialized
	ErrQueueClosed             = core.ErrQueueClosed
	ErrCorruptRecord           = core.ErrCorruptRecord
	ErrAttemptFinished         = core.ErrAttemptFinished
)

// New opens the store name on kv and starts dispatch. Most programs use
// InitializeStore instead, which also registers the queue by name.
func New(ctx context.Context, name string, kv KV, opts ...Option) (*Queue, error) {
	return queue.New(ctx, name, kv, opts...)
}

// IsConfigurationError reports whether err is a ConfigurationError.
func IsConfigurationError(err error) bool {
	return core.IsConfigurationError(err)
}

// Storage constructors

// NewMemoryKV creates an in-process KV.
func NewMemoryKV() *MemoryKV {
	return storage.NewMemoryKV()
}

// NewGormKV creates a GORM-backed KV.
func NewGormKV(db *gorm.DB) *GormKV {
	return storage.NewGormKV(db)
}

// OpenGormKV configures db's connection pool for its dialect, creates the
// entries table and returns a GormKV.
func OpenGormKV(ctx context.Context, db *gorm.DB, opts ...storage.PoolOption) (*GormKV, error) {
	return storage.OpenGormKV(ctx, db, opts...)
}

// NewRedisKV creates a Redis-backed KV.
func NewRedisKV(client redis.UniversalClient) *RedisKV {
	return storage.NewRedisKV(client)
}

// Handler constructors

// Stateless creates a handler that ignores checkpoints.
func Stateless(jobType string, fn HandlerFunc) *Handler {
	return handler.Stateless(jobType, fn)
}

// Stateful creates a handler that resumes from its last checkpoint.
func Stateful(jobType string, fn StatefulFunc) *Handler {
	return handler.Stateful(jobType, fn)
}

// Typed creates a stateless handler from a function with typed parameters.
func Typed(jobType string, fn any) (*Handler, error) {
	return handler.Typed(jobType, fn)
}

// Queue option functions

// WithHandlers registers handlers with the queue.
func WithHandlers(hs ...*Handler) Option {
	return queue.WithHandlers(hs...)
}

// DispatchPolicy sets the policy applied to the dispatch channel.
func DispatchPolicy(p Policy) Option {
	return queue.DispatchPolicy(p)
}

// RetryPolicy sets the policy applied to the retry channel.
func RetryPolicy(p Policy) Option {
	return queue.RetryPolicy(p)
}

// Concurrency bounds the number of handlers running at once.
func Concurrency(n int) Option {
	return queue.Concurrency(n)
}

// WithLogger sets the queue logger.
func WithLogger(l *slog.Logger) Option {
	return queue.WithLogger(l)
}

// Topic tracks a job under topic for subscribers.
func Topic(topic string) JobOption {
	return queue.Topic(topic)
}

// Policy functions

// Compose chains policies left to right.
func Compose(policies ...Policy) Policy {
	return policy.Compose(policies...)
}

// WhenConnected holds jobs while conn reports offline.
func WhenConnected(conn Connectivity) Policy {
	return policy.WhenConnected(conn)
}

// Exponential delays each retry exponentially.
func Exponential(initial, maxWait time.Duration) Policy {
	return policy.Exponential(initial, maxWait)
}

// Fibonacci delays each retry along the Fibonacci sequence.
func Fibonacci(initial, maxWait time.Duration) Policy {
	return policy.Fibonacci(initial, maxWait)
}

// Backoff delays each retry by wait.
func Backoff(wait WaitFunc) Policy {
	return policy.Backoff(wait)
}

// NoRetries drops every job.
var NoRetries Policy = policy.NoRetries

// RateLimit throttles jobs through lim.
func RateLimit(lim *rate.Limiter) Policy {
	return policy.RateLimit(lim)
}

// LimitRuns wraps a handler so it runs at most maxRuns times.
func LimitRuns(maxRuns int) func(*Handler) *Handler {
	return policy.LimitRuns(maxRuns)
}

// Schedule functions

// Every creates a schedule that fires at fixed intervals.
func Every(d time.Duration) Schedule {
	return schedule.Every(d)
}

// Daily creates a schedule that fires at a time of day.
func Daily(hour, minute int) Schedule {
	return schedule.Daily(hour, minute)
}

// Weekly creates a schedule that fires on a weekday at a time of day.
func Weekly(day time.Weekday, hour, minute int) Schedule {
	return schedule.Weekly(day, hour, minute)
}

// Cron creates a schedule from a cron expression.
func Cron(expr string) Schedule {
	return schedule.Cron(expr)
}

// JobFromContext returns the running job, or nil outside a handler.
func JobFromContext(ctx context.Context) *NumberedJob {
	return jobctx.JobFromContext(ctx)
}

// JobIDFromContext returns the running attempt's id, or "" outside a handler.
func JobIDFromContext(ctx context.Context) string {
	return jobctx.JobIDFromContext(ctx)
}

// TopicFromContext returns the running job's topic.
func TopicFromContext(ctx context.Context) string {
	return jobctx.TopicFromContext(ctx)
}
