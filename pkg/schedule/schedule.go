package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule computes the next run time of a recurring job.
type Schedule interface {
	// Next returns the first run time strictly after from.
	Next(from time.Time) time.Time
}

type every time.Duration

// Every creates a schedule that runs at fixed intervals.
func Every(d time.Duration) Schedule {
	return every(d)
}

func (s every) Next(from time.Time) time.Time {
	return from.Add(time.Duration(s))
}

// Option configures calendar schedules.
type Option func(*clock)

// In evaluates the schedule in loc instead of UTC.
func In(loc *time.Location) Option {
	return func(c *clock) {
		c.loc = loc
	}
}

type clock struct {
	hour, minute int
	loc          *time.Location
}

func newClock(hour, minute int, opts []Option) clock {
	c := clock{hour: hour, minute: minute, loc: time.UTC}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c clock) on(t time.Time, addDays int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+addDays, c.hour, c.minute, 0, 0, c.loc)
}

type daily struct{ clock }

// Daily creates a schedule that runs at hour:minute each day.
func Daily(hour, minute int, opts ...Option) Schedule {
	return daily{newClock(hour, minute, opts)}
}

func (s daily) Next(from time.Time) time.Time {
	from = from.In(s.loc)
	next := s.on(from, 0)
	if !next.After(from) {
		next = s.on(from, 1)
	}
	return next
}

type weekly struct {
	clock
	day time.Weekday
}

// Weekly creates a schedule that runs at hour:minute on day each week.
func Weekly(day time.Weekday, hour, minute int, opts ...Option) Schedule {
	return weekly{clock: newClock(hour, minute, opts), day: day}
}

func (s weekly) Next(from time.Time) time.Time {
	from = from.In(s.loc)
	days := (int(s.day) - int(from.Weekday()) + 7) % 7
	next := s.on(from, days)
	if !next.After(from) {
		next = s.on(from, days+7)
	}
	return next
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseCron parses a five-field cron expression.
func ParseCron(expr string) (Schedule, error) {
	s, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("jobs: invalid cron expression %q: %w", expr, err)
	}
	return s, nil
}

// Cron is like ParseCron but panics on an invalid expression.
func Cron(expr string) Schedule {
	s, err := ParseCron(expr)
	if err != nil {
		panic(err)
	}
	return s
}

// Run calls fire at every instant produced by s, starting after the current
// time, until ctx is done.
func Run(ctx context.Context, s Schedule, fire func(at time.Time)) {
	next := s.Next(time.Now())
	for {
		t := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case at := <-t.C:
			fire(at)
			next = s.Next(next)
			if now := time.Now(); next.Before(now) {
				// Missed instants are skipped rather than fired in a burst.
				next = s.Next(now)
			}
		}
	}
}
