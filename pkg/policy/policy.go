package policy

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/jdziat/persisted-jobs/pkg/core"
)

// Policy transforms a channel of jobs.
type Policy func(ctx context.Context, in <-chan *core.NumberedJob) <-chan *core.NumberedJob

// Compose applies policies left to right. Compose() is the identity.
func Compose(policies ...Policy) Policy {
	return func(ctx context.Context, in <-chan *core.NumberedJob) <-chan *core.NumberedJob {
		out := in
		for _, p := range policies {
			if p != nil {
				out = p(ctx, out)
			}
		}
		return out
	}
}

// NoRetries discards every job. Used as a retry policy it disables retries.
func NoRetries(ctx context.Context, in <-chan *core.NumberedJob) <-chan *core.NumberedJob {
	out := make(chan *core.NumberedJob)
	go func() {
		defer close(out)
		for {
			select {
			case _, ok := <-in:
				if !ok {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// RateLimit forwards jobs in order, no faster than lim allows.
func RateLimit(lim *rate.Limiter) Policy {
	return func(ctx context.Context, in <-chan *core.NumberedJob) <-chan *core.NumberedJob {
		out := make(chan *core.NumberedJob)
		go func() {
			defer close(out)
			for {
				select {
				case job, ok := <-in:
					if !ok {
						return
					}
					if err := lim.Wait(ctx); err != nil {
						return
					}
					select {
					case out <- job:
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	}
}
