package core

import (
	"encoding/json"
	"errors"
)

// JobState identifies the kind of lifecycle notification.
type JobState string

const (
	StateNotFound     JobState = "JOB_NOT_FOUND"
	StateStarted      JobState = "JOB_STARTED"
	StateIntermediate JobState = "JOB_INTERMEDIATE" // carries the latest checkpoint
	StateDone         JobState = "JOB_DONE"         // terminal
	StateFailed       JobState = "JOB_FAILED"       // an attempt failed; the job may be retried
)

// Notification is delivered to topic subscribers.
type Notification struct {
	State JobState        `json:"jobState"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Notification constructors.
var (
	NotFound = Notification{State: StateNotFound}
	Started  = Notification{State: StateStarted}
	Done     = Notification{State: StateDone}
	Failed   = Notification{State: StateFailed}
)

// Intermediate returns a JOB_INTERMEDIATE notification carrying state.
func Intermediate(state json.RawMessage) Notification {
	return Notification{State: StateIntermediate, Value: state}
}

// Decode unmarshals the notification value into v.
func (n Notification) Decode(v any) error {
	if len(n.Value) == 0 {
		return errors.New("jobs: notification has no value")
	}
	return json.Unmarshal(n.Value, v)
}

// IsTerminal reports whether no further notifications follow for the topic.
func (n Notification) IsTerminal() bool {
	return n.State == StateDone
}
