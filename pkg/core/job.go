// Package core provides the domain models and interfaces for the jobs package.
package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Args is the ordered argument list of a job. Each value is kept in its
// JSON encoding so it survives a round trip through any storage backend.
type Args []json.RawMessage

// NewArgs encodes values into Args, preserving their order.
func NewArgs(values ...any) (Args, error) {
	args := make(Args, 0, len(values))
	for i, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("jobs: failed to marshal arg %d: %w", i, err)
		}
		args = append(args, raw)
	}
	return args, nil
}

// Decode unmarshals the argument at position i into v.
func (a Args) Decode(i int, v any) error {
	if i < 0 || i >= len(a) {
		return fmt.Errorf("jobs: arg %d out of range (have %d)", i, len(a))
	}
	return json.Unmarshal(a[i], v)
}

// Size returns the encoded size of all arguments in bytes.
func (a Args) Size() int {
	n := 0
	for _, raw := range a {
		n += len(raw)
	}
	return n
}

// Job represents a unit of work to be processed.
type Job struct {
	ID        string          `json:"id"`
	Type      string          `json:"jobType"`
	Args      Args            `json:"args"`
	Timestamp time.Time       `json:"timestamp"`
	State     json.RawMessage `json:"state,omitempty"`
	Topic     string          `json:"topic,omitempty"`

	// RetryNumber counts passes through a backoff policy. It is not persisted.
	RetryNumber int `json:"-"`
}

// NewJob creates a job with a fresh ID and the current timestamp.
func NewJob(jobType string, args Args, topic string) Job {
	return Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Args:      args,
		Timestamp: time.Now(),
		Topic:     topic,
	}
}

// HasState reports whether a checkpoint has been written for the job.
func (j *Job) HasState() bool {
	return len(j.State) > 0 && string(j.State) != "null"
}

// NumberedJob is a Job with the serial number assigned by its store.
type NumberedJob struct {
	Job
	SerialNumber int64 `json:"serialNumber"`
}

// Clone returns a deep copy of the job.
func (j *NumberedJob) Clone() *NumberedJob {
	c := *j
	if j.Args != nil {
		c.Args = make(Args, len(j.Args))
		for i, raw := range j.Args {
			c.Args[i] = append(json.RawMessage(nil), raw...)
		}
	}
	if j.State != nil {
		c.State = append(json.RawMessage(nil), j.State...)
	}
	return &c
}

// NextAttempt returns a copy of the job for a new dispatch attempt. The copy
// keeps the serial number, topic and checkpoint but gets a fresh ID.
func (j *NumberedJob) NextAttempt() *NumberedJob {
	c := j.Clone()
	c.ID = uuid.New().String()
	return c
}

// PersistedRecord is the stored form of a NumberedJob.
type PersistedRecord struct {
	NumberedJob
	IsDone bool `json:"isDone"`
}

// DecodeState unmarshals a checkpoint into v. It returns false when no
// checkpoint has been written.
func DecodeState(state json.RawMessage, v any) (bool, error) {
	if len(state) == 0 || string(state) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(state, v); err != nil {
		return false, err
	}
	return true, nil
}
