// Package persistence implements the record store that keeps jobs durable
// across restarts.
//
// Every job is written under a store-scoped key derived from its serial
// number:
//
//	persisted-jobs:<store>:<serial>
//	persisted-jobs:<store>:currentSerialNumber
//
// Completed jobs are tombstoned (isDone=true) rather than deleted.
// Tombstones are physically removed, and the survivors renumbered from 1,
// only by Compact, which runs once when a queue is opened.
package persistence
