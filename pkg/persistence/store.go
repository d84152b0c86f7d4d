package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/jdziat/persisted-jobs/pkg/core"
)

const keyPrefix = "persisted-jobs"

// Store is the record store for one named job store.
type Store struct {
	name   string
	kv     core.KV
	logger *slog.Logger

	// mu guards counter and topics. It is never held across storage I/O.
	mu      sync.Mutex
	counter int64
	topics  map[string]*core.NumberedJob

	// counterMu serializes writes of the counter key. flushed is the
	// highest value written so far and never regresses.
	counterMu sync.Mutex
	flushed   int64
}

// Open loads the serial counter for name from kv.
func Open(ctx context.Context, name string, kv core.KV, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		name:   name,
		kv:     kv,
		logger: logger,
		topics: make(map[string]*core.NumberedJob),
	}

	n, err := s.readCounter(ctx)
	if err != nil {
		return nil, err
	}
	s.counter = n
	s.flushed = n
	return s, nil
}

// Name returns the store name.
func (s *Store) Name() string {
	return s.name
}

// SerialNumber returns the last serial number assigned.
func (s *Store) SerialNumber() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter
}

func (s *Store) recordKey(serial int64) string {
	return fmt.Sprintf("%s:%s:%d", keyPrefix, s.name, serial)
}

func (s *Store) counterKey() string {
	return fmt.Sprintf("%s:%s:currentSerialNumber", keyPrefix, s.name)
}

func (s *Store) readCounter(ctx context.Context) (int64, error) {
	key := s.counterKey()
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return 0, &core.PersistenceError{Op: "get", Key: key, Err: err}
	}
	if !ok {
		return 0, nil
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, &core.PersistenceError{Op: "decode", Key: key, Err: fmt.Errorf("%w: %v", core.ErrCorruptRecord, err)}
	}
	return n, nil
}

// PersistNewJob assigns the next serial number to job and writes it as a
// live record. The counter is advanced in memory before any write is issued,
// so concurrent callers always receive distinct, increasing serial numbers.
func (s *Store) PersistNewJob(ctx context.Context, job core.Job) (*core.NumberedJob, error) {
	s.mu.Lock()
	s.counter++
	numbered := &core.NumberedJob{Job: job, SerialNumber: s.counter}
	s.mu.Unlock()

	if err := s.flushCounter(ctx, numbered.SerialNumber); err != nil {
		return nil, err
	}
	if err := s.write(ctx, numbered, false); err != nil {
		return nil, err
	}

	if numbered.Topic != "" {
		s.mu.Lock()
		s.topics[numbered.Topic] = numbered.Clone()
		s.mu.Unlock()
	}
	return numbered, nil
}

// flushCounter writes n to the counter key unless a higher value has
// already been written. The counter always reaches storage before the
// record it covers.
func (s *Store) flushCounter(ctx context.Context, n int64) error {
	s.counterMu.Lock()
	defer s.counterMu.Unlock()

	if n <= s.flushed {
		return nil
	}
	key := s.counterKey()
	if err := s.kv.Set(ctx, key, []byte(strconv.FormatInt(n, 10))); err != nil {
		return &core.PersistenceError{Op: "set", Key: key, Err: err}
	}
	s.flushed = n
	return nil
}

func (s *Store) write(ctx context.Context, job *core.NumberedJob, done bool) error {
	key := s.recordKey(job.SerialNumber)
	data, err := json.Marshal(core.PersistedRecord{NumberedJob: *job, IsDone: done})
	if err != nil {
		return &core.PersistenceError{Op: "encode", Key: key, Err: err}
	}
	if err := s.kv.Set(ctx, key, data); err != nil {
		return &core.PersistenceError{Op: "set", Key: key, Err: err}
	}
	return nil
}

// UpdateJob overwrites the record at the job's serial number with its
// current state and refreshes the topic cache.
func (s *Store) UpdateJob(ctx context.Context, job *core.NumberedJob) error {
	if err := s.write(ctx, job, false); err != nil {
		return err
	}
	if job.Topic != "" {
		s.mu.Lock()
		s.topics[job.Topic] = job.Clone()
		s.mu.Unlock()
	}
	return nil
}

// ClearPersistedJob tombstones the record at the job's serial number and
// evicts its topic from the cache.
func (s *Store) ClearPersistedJob(ctx context.Context, job *core.NumberedJob) error {
	if job.Topic != "" {
		s.mu.Lock()
		delete(s.topics, job.Topic)
		s.mu.Unlock()
	}
	return s.write(ctx, job, true)
}

// CachedJob returns the last known state of the live job tracked under
// topic, without storage I/O.
func (s *Store) CachedJob(topic string) (*core.NumberedJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.topics[topic]
	if !ok {
		return nil, false
	}
	return job.Clone(), true
}

// FetchAllPersistedJobs reads slots 1..counter in order. Slots with no
// record are skipped; they are left behind when a process stops between
// writing the counter and writing the record. Live records with a topic are
// added to the topic cache.
func (s *Store) FetchAllPersistedJobs(ctx context.Context) ([]core.PersistedRecord, error) {
	upper := s.SerialNumber()
	records := make([]core.PersistedRecord, 0, upper)

	for serial := int64(1); serial <= upper; serial++ {
		key := s.recordKey(serial)
		raw, ok, err := s.kv.Get(ctx, key)
		if err != nil {
			return nil, &core.PersistenceError{Op: "get", Key: key, Err: err}
		}
		if !ok {
			s.logger.Debug("skipping empty slot", "store", s.name, "serial", serial)
			continue
		}

		var rec core.PersistedRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, &core.PersistenceError{Op: "decode", Key: key, Err: fmt.Errorf("%w: %v", core.ErrCorruptRecord, err)}
		}
		rec.SerialNumber = serial
		records = append(records, rec)

		if !rec.IsDone && rec.Topic != "" {
			s.mu.Lock()
			s.topics[rec.Topic] = rec.NumberedJob.Clone()
			s.mu.Unlock()
		}
	}
	return records, nil
}
