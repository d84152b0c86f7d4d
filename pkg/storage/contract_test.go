package storage

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/persisted-jobs/pkg/core"
)

// runKVContract exercises the behavior every core.KV backend must share.
func runKVContract(t *testing.T, newKV func(t *testing.T) core.KV) {
	t.Run("get missing key", func(t *testing.T) {
		kv := newKV(t)

		v, ok, err := kv.Get(context.Background(), "missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, v)
	})

	t.Run("set then get round trips bytes", func(t *testing.T) {
		ctx := context.Background()
		kv := newKV(t)
		value := []byte(`{"id":"a","args":[1,"two"]}`)

		require.NoError(t, kv.Set(ctx, "k", value))

		got, ok, err := kv.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, value, got)
	})

	t.Run("set overwrites", func(t *testing.T) {
		ctx := context.Background()
		kv := newKV(t)

		require.NoError(t, kv.Set(ctx, "k", []byte("1")))
		require.NoError(t, kv.Set(ctx, "k", []byte("2")))

		got, _, err := kv.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("2"), got)
	})

	t.Run("remove", func(t *testing.T) {
		ctx := context.Background()
		kv := newKV(t)

		require.NoError(t, kv.Set(ctx, "k", []byte("1")))
		require.NoError(t, kv.Remove(ctx, "k"))
		require.NoError(t, kv.Remove(ctx, "never-set"))

		_, ok, err := kv.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("batch set and batch remove", func(t *testing.T) {
		ctx := context.Background()
		kv := newKV(t)

		require.NoError(t, kv.Set(ctx, "b", []byte("old")))
		require.NoError(t, kv.BatchSet(ctx, []core.Entry{
			{Key: "a", Value: []byte("1")},
			{Key: "b", Value: []byte("2")},
			{Key: "c", Value: []byte("3")},
		}))

		for key, want := range map[string]string{"a": "1", "b": "2", "c": "3"} {
			got, ok, err := kv.Get(ctx, key)
			require.NoError(t, err)
			require.True(t, ok, key)
			assert.Equal(t, want, string(got))
		}

		require.NoError(t, kv.BatchRemove(ctx, []string{"a", "c", "zzz"}))

		var present []string
		for _, key := range []string{"a", "b", "c"} {
			_, ok, err := kv.Get(ctx, key)
			require.NoError(t, err)
			if ok {
				present = append(present, key)
			}
		}
		sort.Strings(present)
		assert.Equal(t, []string{"b"}, present)
	})

	t.Run("empty batches are no-ops", func(t *testing.T) {
		ctx := context.Background()
		kv := newKV(t)

		assert.NoError(t, kv.BatchSet(ctx, nil))
		assert.NoError(t, kv.BatchRemove(ctx, nil))
	})
}
