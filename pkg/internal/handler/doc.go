// Package handler provides internal reflection-based handler execution.
//
// This package is internal and should not be imported directly.
// It backs handler.Typed, decoding the positional JSON arguments of a job
// into the parameters of an ordinary Go function.
package handler
