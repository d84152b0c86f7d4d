package policy

import (
	"fmt"
	"testing"
	"time"

	"github.com/jdziat/persisted-jobs/pkg/core"
)

func numbered(serial int64) *core.NumberedJob {
	return &core.NumberedJob{
		Job:          core.NewJob("test", nil, fmt.Sprintf("topic-%d", serial)),
		SerialNumber: serial,
	}
}

func feed(jobs ...*core.NumberedJob) chan *core.NumberedJob {
	in := make(chan *core.NumberedJob, len(jobs))
	for _, j := range jobs {
		in <- j
	}
	return in
}

func collect(t *testing.T, out <-chan *core.NumberedJob, timeout time.Duration) []*core.NumberedJob {
	t.Helper()
	var got []*core.NumberedJob
	deadline := time.After(timeout)
	for {
		select {
		case j, ok := <-out:
			if !ok {
				return got
			}
			got = append(got, j)
		case <-deadline:
			t.Fatalf("output not closed within %s", timeout)
			return got
		}
	}
}

func receive(t *testing.T, out <-chan *core.NumberedJob, timeout time.Duration) *core.NumberedJob {
	t.Helper()
	select {
	case j, ok := <-out:
		if !ok {
			t.Fatal("output closed")
		}
		return j
	case <-time.After(timeout):
		t.Fatalf("nothing received within %s", timeout)
		return nil
	}
}

func assertNothing(t *testing.T, out <-chan *core.NumberedJob, wait time.Duration) {
	t.Helper()
	select {
	case j, ok := <-out:
		if ok {
			t.Fatalf("unexpected job %d", j.SerialNumber)
		}
	case <-time.After(wait):
	}
}

func serials(jobs []*core.NumberedJob) []int64 {
	s := make([]int64, len(jobs))
	for i, j := range jobs {
		s[i] = j.SerialNumber
	}
	return s
}
