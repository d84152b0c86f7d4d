// Package security provides input validation and resource limits.
//
// Job type names and store names must start with a letter and contain only
// letters, digits, hyphens, underscores and dots. Topics are free-form but
// length limited, and the encoded argument list of a job may not exceed
// MaxJobArgsSize bytes.
package security
