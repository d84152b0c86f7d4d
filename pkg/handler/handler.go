package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jdziat/persisted-jobs/pkg/core"
	inthandler "github.com/jdziat/persisted-jobs/pkg/internal/handler"
)

// Func runs one attempt of a job. A nil return means success.
type Func func(ctx context.Context, args core.Args) error

// UpdateFunc persists state as the job's new checkpoint.
type UpdateFunc func(ctx context.Context, state any) error

// StatefulFunc binds a job's last checkpoint and an update callback to the
// function that runs the attempt. state is nil before the first checkpoint.
type StatefulFunc func(state json.RawMessage, update UpdateFunc) Func

// Handler is a registered job handler of either variant.
type Handler struct {
	jobType   string
	stateless Func
	stateful  StatefulFunc
}

// Stateless creates a handler that ignores checkpoints.
func Stateless(jobType string, fn Func) *Handler {
	return &Handler{jobType: jobType, stateless: fn}
}

// Stateful creates a handler that resumes from, and may write, checkpoints.
func Stateful(jobType string, fn StatefulFunc) *Handler {
	return &Handler{jobType: jobType, stateful: fn}
}

// Typed creates a stateless handler from an ordinary function. The function
// must have signature func([ctx context.Context,] a1 T1, ..., an Tn) error;
// the job's arguments are decoded positionally into its parameters.
func Typed(jobType string, fn any) (*Handler, error) {
	h, err := inthandler.NewHandler(fn)
	if err != nil {
		return nil, fmt.Errorf("jobs: handler %q: %w", jobType, err)
	}
	return Stateless(jobType, h.Execute), nil
}

// MustTyped is like Typed but panics on an invalid function.
func MustTyped(jobType string, fn any) *Handler {
	h, err := Typed(jobType, fn)
	if err != nil {
		panic(err)
	}
	return h
}

// JobType returns the job type the handler serves.
func (h *Handler) JobType() string {
	return h.jobType
}

// IsStateful reports whether the handler was created with Stateful.
func (h *Handler) IsStateful() bool {
	return h.stateful != nil
}

// Lift returns the handler as a StatefulFunc. Stateless handlers ignore the
// checkpoint and never call update.
func (h *Handler) Lift() StatefulFunc {
	if h.stateful != nil {
		return h.stateful
	}
	fn := h.stateless
	return func(json.RawMessage, UpdateFunc) Func {
		return fn
	}
}

// Bind returns the function that runs one attempt of a job with the given
// checkpoint.
func (h *Handler) Bind(state json.RawMessage, update UpdateFunc) Func {
	if h.stateful != nil {
		return h.stateful(state, update)
	}
	return h.stateless
}

func (h *Handler) valid() bool {
	return h != nil && (h.stateless != nil || h.stateful != nil)
}
