package jobs_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	jobs "github.com/jdziat/persisted-jobs"
)

var quiet = jobs.WithLogger(slog.New(slog.DiscardHandler))

func openSQLiteKV(t *testing.T) (*jobs.GormKV, *gorm.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobs.db")
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	kv, err := jobs.OpenGormKV(context.Background(), db)
	require.NoError(t, err)
	return kv, db
}

type recorder struct {
	mu  sync.Mutex
	got []jobs.Notification
}

func (r *recorder) cb(n jobs.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recorder) states() []jobs.JobState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]jobs.JobState, len(r.got))
	for i, n := range r.got {
		out[i] = n.State
	}
	return out
}

func (r *recorder) done() bool {
	s := r.states()
	return len(s) > 0 && s[len(s)-1] == jobs.StateDone
}

func TestInitializeStore_DefaultName(t *testing.T) {
	ctx := context.Background()
	q, err := jobs.InitializeStore(ctx, "", jobs.NewMemoryKV(), quiet)
	require.NoError(t, err)
	t.Cleanup(func() { _ = jobs.CloseStore("") })

	assert.Equal(t, jobs.DefaultStoreName, q.Name())

	got, err := jobs.Store(jobs.DefaultStoreName)
	require.NoError(t, err)
	assert.Same(t, q, got)
}

func TestInitializeStore_RejectsDuplicateName(t *testing.T) {
	ctx := context.Background()
	_, err := jobs.InitializeStore(ctx, "dup", jobs.NewMemoryKV(), quiet)
	require.NoError(t, err)
	t.Cleanup(func() { _ = jobs.CloseStore("dup") })

	_, err = jobs.InitializeStore(ctx, "dup", jobs.NewMemoryKV(), quiet)
	assert.ErrorIs(t, err, jobs.ErrStoreAlreadyInitialized)
}

func TestStore_NotInitialized(t *testing.T) {
	_, err := jobs.Store("never-initialized")

	require.Error(t, err)
	assert.ErrorIs(t, err, jobs.ErrStoreNotInitialized)
	assert.True(t, jobs.IsConfigurationError(err))
}

func TestCloseStore_AllowsReinitialize(t *testing.T) {
	ctx := context.Background()
	kv := jobs.NewMemoryKV()

	_, err := jobs.InitializeStore(ctx, "cycle", kv, quiet)
	require.NoError(t, err)
	require.NoError(t, jobs.CloseStore("cycle"))

	_, err = jobs.Store("cycle")
	assert.ErrorIs(t, err, jobs.ErrStoreNotInitialized)
	assert.ErrorIs(t, jobs.CloseStore("cycle"), jobs.ErrStoreNotInitialized)

	_, err = jobs.InitializeStore(ctx, "cycle", kv, quiet)
	require.NoError(t, err)
	require.NoError(t, jobs.CloseStore("cycle"))
}

func TestInitializeStore_InvalidName(t *testing.T) {
	_, err := jobs.InitializeStore(context.Background(), "has space", jobs.NewMemoryKV(), quiet)
	assert.ErrorIs(t, err, jobs.ErrInvalidStoreName)

	_, err = jobs.Store("has space")
	assert.ErrorIs(t, err, jobs.ErrStoreNotInitialized)
}

func TestIntegration_CheckpointedRetriesOnSQLite(t *testing.T) {
	ctx := context.Background()
	kv, _ := openSQLiteKV(t)

	steps := jobs.Stateful("steps", func(state json.RawMessage, update jobs.UpdateFunc) jobs.HandlerFunc {
		var n int
		if len(state) > 0 {
			_ = json.Unmarshal(state, &n)
		}
		return func(ctx context.Context, _ jobs.Args) error {
			if n >= 2 {
				return nil
			}
			if err := update(ctx, n+1); err != nil {
				return err
			}
			return errors.New("not finished")
		}
	})

	q, err := jobs.InitializeStore(ctx, "steps-store", kv, quiet, jobs.WithHandlers(steps))
	require.NoError(t, err)
	t.Cleanup(func() { _ = jobs.CloseStore("steps-store") })

	var r recorder
	q.Subscribe("build-42", r.cb)
	require.NoError(t, q.CreateJob("steps", jobs.Topic("build-42"))(ctx))

	assert.Eventually(t, r.done, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []jobs.JobState{
		jobs.StateNotFound,
		jobs.StateIntermediate, jobs.StateFailed,
		jobs.StateIntermediate, jobs.StateFailed,
		jobs.StateDone,
	}, r.states())

	r.mu.Lock()
	var second int
	require.NoError(t, r.got[3].Decode(&second))
	r.mu.Unlock()
	assert.Equal(t, 2, second)
}

func TestIntegration_RecoveryAndCompactionOnSQLite(t *testing.T) {
	ctx := context.Background()
	kv, db := openSQLiteKV(t)

	started := make(chan struct{}, 1)
	stuck := jobs.Stateless("report", func(ctx context.Context, _ jobs.Args) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return ctx.Err()
	})

	q1, err := jobs.New(ctx, "reports", kv, quiet, jobs.WithHandlers(stuck), jobs.Concurrency(1))
	require.NoError(t, err)
	create := q1.CreateJob("report")
	require.NoError(t, create(ctx, "q1"))
	require.NoError(t, create(ctx, "q2"))
	<-started
	require.NoError(t, q1.Close())

	var mu sync.Mutex
	var ran []string
	var calls atomic.Int32
	finish := jobs.Stateless("report", func(_ context.Context, args jobs.Args) error {
		var name string
		if err := args.Decode(0, &name); err != nil {
			return err
		}
		mu.Lock()
		ran = append(ran, name)
		mu.Unlock()
		calls.Add(1)
		return nil
	})

	q2, err := jobs.New(ctx, "reports", kv, quiet, jobs.WithHandlers(finish), jobs.Concurrency(1))
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, q2.Close())

	mu.Lock()
	assert.Equal(t, []string{"q1", "q2"}, ran)
	mu.Unlock()

	// Reopening compacts the tombstones away, leaving only the counter.
	q3, err := jobs.New(ctx, "reports", kv, quiet, jobs.WithHandlers(finish))
	require.NoError(t, err)
	require.NoError(t, q3.Close())

	var keys []string
	require.NoError(t, db.Table("persisted_job_entries").Pluck("entry_key", &keys).Error)
	assert.Equal(t, []string{"persisted-jobs:reports:currentSerialNumber"}, keys)
	assert.Equal(t, int32(2), calls.Load())
}

func TestLimitRuns_StopsAfterMaxRuns(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	failing := jobs.Stateless("limited", func(context.Context, jobs.Args) error {
		calls.Add(1)
		return errors.New("always")
	})

	q, err := jobs.New(ctx, "limited", jobs.NewMemoryKV(), quiet,
		jobs.WithHandlers(jobs.LimitRuns(3)(failing)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })

	var r recorder
	q.Subscribe("limited-topic", r.cb)
	require.NoError(t, q.CreateJob("limited", jobs.Topic("limited-topic"))(ctx))

	assert.Eventually(t, r.done, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(3), calls.Load())
}
