package handler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/persisted-jobs/pkg/core"
)

func TestStateless_Bind(t *testing.T) {
	var got core.Args
	h := Stateless("send", func(_ context.Context, args core.Args) error {
		got = args
		return nil
	})

	assert.Equal(t, "send", h.JobType())
	assert.False(t, h.IsStateful())

	args, _ := core.NewArgs("x")
	require.NoError(t, h.Bind(nil, nil)(context.Background(), args))
	assert.Equal(t, args, got)
}

func TestStateful_BindPassesStateAndUpdate(t *testing.T) {
	h := Stateful("count", func(state json.RawMessage, update UpdateFunc) Func {
		var n int
		_, _ = core.DecodeState(state, &n)
		return func(ctx context.Context, _ core.Args) error {
			return update(ctx, n+1)
		}
	})
	assert.True(t, h.IsStateful())

	var written any
	update := func(_ context.Context, state any) error {
		written = state
		return nil
	}

	require.NoError(t, h.Bind(json.RawMessage(`4`), update)(context.Background(), nil))
	assert.Equal(t, 5, written)
}

func TestLift_StatelessIgnoresState(t *testing.T) {
	calls := 0
	h := Stateless("send", func(context.Context, core.Args) error {
		calls++
		return nil
	})

	fn := h.Lift()(json.RawMessage(`"ignored"`), func(context.Context, any) error {
		t.Fatal("stateless handler must not write checkpoints")
		return nil
	})
	require.NoError(t, fn(context.Background(), nil))
	assert.Equal(t, 1, calls)
}

func TestTyped(t *testing.T) {
	var got string
	h, err := Typed("greet", func(_ context.Context, name string) error {
		got = name
		return nil
	})
	require.NoError(t, err)

	args, _ := core.NewArgs("bob")
	require.NoError(t, h.Bind(nil, nil)(context.Background(), args))
	assert.Equal(t, "bob", got)

	_, err = Typed("bad", "not a function")
	assert.Error(t, err)
	assert.Panics(t, func() { MustTyped("bad", 1) })
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	noop := func(context.Context, core.Args) error { return nil }

	_, err := NewRegistry(Stateless("a", noop), Stateless("a", noop))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDuplicateHandler)
	assert.True(t, core.IsConfigurationError(err))
}

func TestRegistry_RejectsInvalidNames(t *testing.T) {
	noop := func(context.Context, core.Args) error { return nil }

	_, err := NewRegistry(Stateless("1bad", noop))
	assert.ErrorIs(t, err, core.ErrInvalidJobTypeName)

	_, err = NewRegistry(Stateless("ok", nil))
	assert.ErrorIs(t, err, core.ErrNoHandler)

	_, err = NewRegistry(nil)
	assert.True(t, core.IsConfigurationError(err))
}

func TestRegistry_Lookup(t *testing.T) {
	noop := func(context.Context, core.Args) error { return nil }
	r, err := NewRegistry(Stateless("b", noop), Stateless("a", noop))
	require.NoError(t, err)

	h, ok := r.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "a", h.JobType())

	_, ok = r.Lookup("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"a", "b"}, r.Types())
}

func TestHandlerErrorsPassThrough(t *testing.T) {
	boom := errors.New("boom")
	h := Stateless("fail", func(context.Context, core.Args) error { return boom })

	assert.ErrorIs(t, h.Bind(nil, nil)(context.Background(), nil), boom)
}
