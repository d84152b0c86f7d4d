// Package core provides the fundamental types and interfaces for the jobs package.
//
// This package contains:
//   - Job, NumberedJob and PersistedRecord data models
//   - Notification values delivered to topic subscribers
//   - KV and Connectivity interfaces for the external collaborators
//   - Error types for configuration, persistence and handler failures
//
// Most users should import the root package github.com/jdziat/persisted-jobs
// instead of this package directly.
package core
