package policy

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jdziat/persisted-jobs/pkg/core"
	"github.com/jdziat/persisted-jobs/pkg/handler"
)

// runEnvelope wraps the checkpoint of a handler decorated by LimitRuns.
type runEnvelope struct {
	RetryCount int             `json:"retryCount"`
	State      json.RawMessage `json:"state,omitempty"`
}

// LimitRuns returns a decorator that bounds the attempts of a job to
// maxRuns. Failed attempts are counted in the job's checkpoint, so the
// count survives restarts. Once maxRuns attempts have failed, further
// attempts succeed without running the handler. Stateless handlers become
// stateful; the wrapped handler still sees only its own checkpoint.
func LimitRuns(maxRuns int) func(*handler.Handler) *handler.Handler {
	return func(h *handler.Handler) *handler.Handler {
		inner := h.Lift()
		return handler.Stateful(h.JobType(), func(state json.RawMessage, update handler.UpdateFunc) handler.Func {
			env := decodeEnvelope(state)

			return func(ctx context.Context, args core.Args) error {
				if env.RetryCount >= maxRuns {
					return nil
				}

				wrapped := func(ctx context.Context, s any) error {
					raw, err := json.Marshal(s)
					if err != nil {
						return err
					}
					env.State = raw
					return update(ctx, env)
				}

				err := inner(env.State, wrapped)(ctx, args)
				if err == nil {
					return nil
				}
				env.RetryCount++
				if uerr := update(ctx, env); uerr != nil {
					return errors.Join(err, uerr)
				}
				return err
			}
		})
	}
}

// decodeEnvelope reads a LimitRuns checkpoint. Any checkpoint without a
// retryCount key was written before the decorator was added and is taken
// as the inner state with no failed runs.
func decodeEnvelope(state json.RawMessage) runEnvelope {
	var fields map[string]json.RawMessage
	if ok, err := core.DecodeState(state, &fields); err != nil || !ok {
		return runEnvelope{State: state}
	}
	if _, ok := fields["retryCount"]; !ok {
		return runEnvelope{State: state}
	}

	var env runEnvelope
	if err := json.Unmarshal(state, &env); err != nil {
		return runEnvelope{State: state}
	}
	return env
}
