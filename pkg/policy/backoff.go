package policy

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/jdziat/persisted-jobs/pkg/core"
)

// WaitFunc returns the delay for step n, starting at 0.
type WaitFunc func(n int) time.Duration

// ExponentialWait returns min(maxWait, initial * 2^n). A zero maxWait means no cap.
func ExponentialWait(initial, maxWait time.Duration) WaitFunc {
	return func(n int) time.Duration {
		return capped(float64(initial)*math.Pow(2, float64(n)), maxWait)
	}
}

// FibonacciWait returns min(maxWait, initial * fib(n+1)) with fib(0) = fib(1) = 1.
// A zero maxWait means no cap.
func FibonacciWait(initial, maxWait time.Duration) WaitFunc {
	return func(n int) time.Duration {
		return capped(float64(initial)*fib(n+1), maxWait)
	}
}

func fib(n int) float64 {
	a, b := 1.0, 1.0
	for i := 1; i < n; i++ {
		a, b = b, a+b
	}
	return b
}

func capped(d float64, maxWait time.Duration) time.Duration {
	if maxWait > 0 && d > float64(maxWait) {
		return maxWait
	}
	// float64(math.MaxInt64) rounds up to 2^63, which overflows Duration.
	if d >= float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// Backoff delays each job by wait(retry-1), where retry is the job's
// RetryNumber after this pass increments it. The first pass waits wait(0).
// Jobs are delayed independently, so a short delay may overtake a long one.
func Backoff(wait WaitFunc) Policy {
	return func(ctx context.Context, in <-chan *core.NumberedJob) <-chan *core.NumberedJob {
		out := make(chan *core.NumberedJob)
		go func() {
			var wg sync.WaitGroup
			defer close(out)
			defer wg.Wait()

			for {
				select {
				case job, ok := <-in:
					if !ok {
						return
					}
					job.RetryNumber++
					delay := wait(job.RetryNumber - 1)

					wg.Add(1)
					go func() {
						defer wg.Done()
						t := time.NewTimer(delay)
						defer t.Stop()
						select {
						case <-t.C:
						case <-ctx.Done():
							return
						}
						select {
						case out <- job:
						case <-ctx.Done():
						}
					}()
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	}
}

// Exponential is Backoff(ExponentialWait(initial, maxWait)).
func Exponential(initial, maxWait time.Duration) Policy {
	return Backoff(ExponentialWait(initial, maxWait))
}

// Fibonacci is Backoff(FibonacciWait(initial, maxWait)).
func Fibonacci(initial, maxWait time.Duration) Policy {
	return Backoff(FibonacciWait(initial, maxWait))
}
