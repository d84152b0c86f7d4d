package queue

import (
	"log/slog"

	"github.com/jdziat/persisted-jobs/pkg/handler"
	"github.com/jdziat/persisted-jobs/pkg/policy"
)

// Options holds configuration for a Queue.
type Options struct {
	Handlers []*handler.Handler

	// Dispatch transforms the channel feeding the worker pool.
	Dispatch policy.Policy

	// Retry transforms the channel of failed jobs before they re-enter
	// dispatch. Nil retries immediately.
	Retry policy.Policy

	// Concurrency bounds in-flight handlers. Zero means unbounded.
	Concurrency int

	Logger *slog.Logger
}

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	return &Options{
		Logger: slog.Default(),
	}
}

// Option modifies Options.
type Option interface {
	Apply(*Options)
}

type optionFunc func(*Options)

func (f optionFunc) Apply(o *Options) { f(o) }

// WithHandlers registers handlers with the queue.
func WithHandlers(hs ...*handler.Handler) Option {
	return optionFunc(func(o *Options) {
		o.Handlers = append(o.Handlers, hs...)
	})
}

// DispatchPolicy sets the policy applied to the dispatch channel.
func DispatchPolicy(p policy.Policy) Option {
	return optionFunc(func(o *Options) {
		o.Dispatch = p
	})
}

// RetryPolicy sets the policy applied to the retry channel. Use
// policy.NoRetries to disable retries.
func RetryPolicy(p policy.Policy) Option {
	return optionFunc(func(o *Options) {
		o.Retry = p
	})
}

// Concurrency bounds the number of handlers running at once.
// Zero or less means unbounded; values are clamped to security.MaxConcurrency.
func Concurrency(n int) Option {
	return optionFunc(func(o *Options) {
		o.Concurrency = n
	})
}

// WithLogger sets the queue logger.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	})
}

// JobOptions holds configuration for a single job.
type JobOptions struct {
	Topic string
}

// JobOption modifies JobOptions.
type JobOption interface {
	ApplyJob(*JobOptions)
}

type jobOptionFunc func(*JobOptions)

func (f jobOptionFunc) ApplyJob(o *JobOptions) { f(o) }

// Topic tracks the job under topic for subscribers. The topic stays with
// the job across retries.
func Topic(topic string) JobOption {
	return jobOptionFunc(func(o *JobOptions) {
		o.Topic = topic
	})
}
