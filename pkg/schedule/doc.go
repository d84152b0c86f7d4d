// Package schedule provides recurring schedules for jobs.
//
// This package includes:
//   - Every() for fixed-interval schedules
//   - Daily() and Weekly() for wall-clock schedules, UTC unless In() is given
//   - Cron() and ParseCron() for five-field cron expressions
//   - Run() for driving a schedule until a context ends
//
// Queue.Schedule creates a job each time a schedule fires.
package schedule
