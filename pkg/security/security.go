// Package security provides validation and limits for the jobs package.
package security

import (
	"regexp"

	"github.com/jdziat/persisted-jobs/pkg/core"
)

// Security limits and configuration
const (
	// MaxJobTypeNameLength is the maximum length for job type names
	MaxJobTypeNameLength = 255

	// MaxStoreNameLength is the maximum length for store names
	MaxStoreNameLength = 128

	// MaxTopicLength is the maximum length for subscription topics
	MaxTopicLength = 512

	// MaxJobArgsSize is the maximum size in bytes for job arguments (1MB)
	MaxJobArgsSize = 1 << 20

	// MaxConcurrency is the hard limit for worker concurrency
	MaxConcurrency = 1000
)

// validName matches alphanumeric, hyphens, underscores, and dots
var validName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_\-\.]*$`)

// ValidateJobTypeName validates a job type name
func ValidateJobTypeName(name string) error {
	if name == "" {
		return core.ErrInvalidJobTypeName
	}
	if len(name) > MaxJobTypeNameLength {
		return core.ErrJobTypeNameTooLong
	}
	if !validName.MatchString(name) {
		return core.ErrInvalidJobTypeName
	}
	return nil
}

// ValidateStoreName validates a store name. Store names become part of every
// storage key, so they follow the same character rules as job types.
func ValidateStoreName(name string) error {
	if name == "" {
		return core.ErrInvalidStoreName
	}
	if len(name) > MaxStoreNameLength {
		return core.ErrStoreNameTooLong
	}
	if !validName.MatchString(name) {
		return core.ErrInvalidStoreName
	}
	return nil
}

// ValidateTopic validates a topic. The empty topic is valid and means "none".
func ValidateTopic(topic string) error {
	if len(topic) > MaxTopicLength {
		return core.ErrTopicTooLong
	}
	return nil
}

// ValidateArgs enforces MaxJobArgsSize.
func ValidateArgs(args core.Args) error {
	if args.Size() > MaxJobArgsSize {
		return core.ErrJobArgsTooLarge
	}
	return nil
}

// ClampConcurrency ensures concurrency is within limits. Zero or a negative
// value means unbounded and is returned as 0.
func ClampConcurrency(n int) int {
	if n < 1 {
		return 0
	}
	if n > MaxConcurrency {
		return MaxConcurrency
	}
	return n
}
