// Package queue provides the Queue type that persists, dispatches and
// retries jobs for one named store.
//
// This package includes:
//   - Queue: recovers the persisted backlog, runs handlers under a
//     concurrency bound and re-injects failed jobs through a retry policy
//   - Option: configuration for a queue (handlers, policies, concurrency)
//   - JobOption: per-job configuration such as the subscription topic
//
// Most users should import the root package github.com/jdziat/persisted-jobs
// which re-exports Queue and all option functions.
package queue
