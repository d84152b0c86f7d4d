// Package worker provides the Pool that runs dispatched jobs.
//
// This package includes:
//   - Pool: runs jobs from a channel with bounded or unbounded parallelism
//   - WorkerOption: configuration options for pools
//
// Most users configure the pool through queue.Concurrency rather than
// constructing one directly.
package worker
