// Package policy provides composable transforms for the dispatch and retry
// channels of a queue.
//
// A Policy receives a channel of jobs and returns a channel of jobs. It may
// delay, hold, drop or throttle what passes through, and must close its
// output once its input is closed (after releasing anything it still owes)
// or its context ends.
//
//	retry := policy.Compose(
//	    policy.Exponential(time.Second, time.Minute),
//	    policy.WhenConnected(sensor),
//	)
//
// LimitRuns is a handler decorator rather than a channel transform: it
// bounds total attempts of a job by counting them in the job's checkpoint.
package policy
