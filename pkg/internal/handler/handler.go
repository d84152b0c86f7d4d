// Package handler provides reflection-based handler execution for the jobs package.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/jdziat/persisted-jobs/pkg/core"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// Handler holds metadata about a reflected job function.
type Handler struct {
	Fn         reflect.Value
	ArgTypes   []reflect.Type
	HasContext bool
}

// NewHandler creates a Handler from a function.
// The function must have signature func([ctx context.Context,] a1 T1, ..., an Tn) error.
// Each positional job argument is decoded into the matching parameter.
func NewHandler(fn any) (*Handler, error) {
	if fn == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}

	fnVal := reflect.ValueOf(fn)
	if fnVal.Kind() != reflect.Func {
		return nil, fmt.Errorf("handler must be a function")
	}
	if fnVal.IsNil() {
		return nil, fmt.Errorf("handler function cannot be nil")
	}

	fnType := fnVal.Type()
	if fnType.IsVariadic() {
		return nil, fmt.Errorf("handler cannot be variadic")
	}

	h := &Handler{Fn: fnVal}

	start := 0
	if fnType.NumIn() > 0 && fnType.In(0) == contextType {
		h.HasContext = true
		start = 1
	}
	for i := start; i < fnType.NumIn(); i++ {
		h.ArgTypes = append(h.ArgTypes, fnType.In(i))
	}

	if fnType.NumOut() != 1 || !fnType.Out(0).Implements(errorType) {
		return nil, fmt.Errorf("handler must return error")
	}

	return h, nil
}

// Execute decodes args into the function's parameters and calls it.
func (h *Handler) Execute(ctx context.Context, args core.Args) error {
	if len(args) != len(h.ArgTypes) {
		return fmt.Errorf("handler expects %d args, got %d", len(h.ArgTypes), len(args))
	}

	in := make([]reflect.Value, 0, len(args)+1)
	if h.HasContext {
		in = append(in, reflect.ValueOf(ctx))
	}
	for i, t := range h.ArgTypes {
		v := reflect.New(t)
		if err := json.Unmarshal(args[i], v.Interface()); err != nil {
			return fmt.Errorf("failed to unmarshal arg %d: %w", i, err)
		}
		in = append(in, v.Elem())
	}

	out := h.Fn.Call(in)
	if err, _ := out[0].Interface().(error); err != nil {
		return err
	}
	return nil
}
