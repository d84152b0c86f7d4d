package persistence

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/jdziat/persisted-jobs/pkg/core"
)

// CompactResult summarizes one compaction run.
type CompactResult struct {
	Survivors int
	Removed   int
	Written   bool
}

// Compact removes tombstones and renumbers the surviving live records from 1
// in their existing order. Survivors and the new counter are written in one
// atomic batch; the now-unused high slots are removed afterwards. When the
// store is already contiguous and holds no tombstones, nothing is written.
//
// Compact must run before any job is created or dispatched for the store.
func (s *Store) Compact(ctx context.Context) (CompactResult, error) {
	records, err := s.FetchAllPersistedJobs(ctx)
	if err != nil {
		return CompactResult{}, err
	}
	oldCounter := s.SerialNumber()

	survivors := make([]core.PersistedRecord, 0, len(records))
	for _, rec := range records {
		if !rec.IsDone {
			survivors = append(survivors, rec)
		}
	}

	if int64(len(survivors)) == oldCounter {
		return CompactResult{Survivors: len(survivors)}, nil
	}

	entries := make([]core.Entry, 0, len(survivors)+1)
	for i := range survivors {
		survivors[i].SerialNumber = int64(i + 1)
		data, err := json.Marshal(survivors[i])
		if err != nil {
			return CompactResult{}, &core.PersistenceError{Op: "encode", Key: s.recordKey(survivors[i].SerialNumber), Err: err}
		}
		entries = append(entries, core.Entry{Key: s.recordKey(survivors[i].SerialNumber), Value: data})
	}
	newCounter := int64(len(survivors))
	entries = append(entries, core.Entry{Key: s.counterKey(), Value: []byte(strconv.FormatInt(newCounter, 10))})

	if err := s.kv.BatchSet(ctx, entries); err != nil {
		return CompactResult{}, &core.PersistenceError{Op: "batch set", Err: err}
	}

	stale := make([]string, 0, oldCounter-newCounter)
	for serial := newCounter + 1; serial <= oldCounter; serial++ {
		stale = append(stale, s.recordKey(serial))
	}
	if len(stale) > 0 {
		if err := s.kv.BatchRemove(ctx, stale); err != nil {
			return CompactResult{}, &core.PersistenceError{Op: "batch remove", Err: err}
		}
	}

	s.mu.Lock()
	s.counter = newCounter
	s.topics = make(map[string]*core.NumberedJob, len(survivors))
	for i := range survivors {
		if survivors[i].Topic != "" {
			s.topics[survivors[i].Topic] = survivors[i].NumberedJob.Clone()
		}
	}
	s.mu.Unlock()

	s.counterMu.Lock()
	s.flushed = newCounter
	s.counterMu.Unlock()

	s.logger.Debug("compacted store",
		"store", s.name,
		"survivors", len(survivors),
		"removed", len(stale),
	)
	return CompactResult{Survivors: len(survivors), Removed: len(stale), Written: true}, nil
}
