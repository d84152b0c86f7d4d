// Package storage provides key/value backends for the record store.
//
// This package includes:
//   - MemoryKV: an in-process map, for tests and ephemeral stores
//   - GormKV: a GORM-backed table supporting SQLite and PostgreSQL
//   - RedisKV: a Redis-backed implementation using go-redis
//
// Every backend implements core.KV. BatchSet is atomic in all of them.
//
// Most users should import the root package github.com/jdziat/persisted-jobs
// which re-exports the constructors.
package storage
