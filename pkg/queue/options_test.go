package queue

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jdziat/persisted-jobs/pkg/core"
	"github.com/jdziat/persisted-jobs/pkg/handler"
	"github.com/jdziat/persisted-jobs/pkg/policy"
)

func TestNewOptions_Defaults(t *testing.T) {
	opts := NewOptions()

	assert.Empty(t, opts.Handlers)
	assert.Nil(t, opts.Dispatch)
	assert.Nil(t, opts.Retry)
	assert.Zero(t, opts.Concurrency)
	assert.NotNil(t, opts.Logger)
}

func TestWithHandlers_Accumulates(t *testing.T) {
	noop := func(context.Context, core.Args) error { return nil }
	opts := NewOptions()

	WithHandlers(handler.Stateless("a", noop)).Apply(opts)
	WithHandlers(handler.Stateless("b", noop), handler.Stateless("c", noop)).Apply(opts)

	assert.Len(t, opts.Handlers, 3)
}

func TestPolicyOptions(t *testing.T) {
	opts := NewOptions()

	DispatchPolicy(policy.Compose()).Apply(opts)
	RetryPolicy(policy.NoRetries).Apply(opts)

	assert.NotNil(t, opts.Dispatch)
	assert.NotNil(t, opts.Retry)
}

func TestConcurrencyAndLogger(t *testing.T) {
	opts := NewOptions()
	logger := slog.New(slog.DiscardHandler)

	Concurrency(4).Apply(opts)
	WithLogger(logger).Apply(opts)
	WithLogger(nil).Apply(opts)

	assert.Equal(t, 4, opts.Concurrency)
	assert.Same(t, logger, opts.Logger)
}

func TestTopic(t *testing.T) {
	var o JobOptions
	Topic("upload-1").ApplyJob(&o)

	assert.Equal(t, "upload-1", o.Topic)
}
