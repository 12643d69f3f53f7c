package constants

import (
	"database/sql/driver"
	"fmt"
)

// TaskState is the lifecycle state of a task. The zero value is not a valid
// state; values only enter the program through ParseTaskState.
type TaskState uint8

const (
	StateOpen TaskState = iota + 1
	StatePending
	StateInProgress
	StateCompleted
	StateCancelled
)

var AllTaskStates = []TaskState{
	StateOpen,
	StatePending,
	StateInProgress,
	StateCompleted,
	StateCancelled,
}

func (s TaskState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StatePending:
		return "pending"
	case StateInProgress:
		return "in_progress"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("TaskState(%d)", uint8(s))
	}
}

func (s TaskState) Valid() bool {
	switch s {
	case StateOpen, StatePending, StateInProgress, StateCompleted, StateCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition can leave s.
func (s TaskState) IsTerminal() bool {
	switch s {
	case StateCompleted, StateCancelled:
		return true
	default:
		return false
	}
}

func ParseTaskState(v string) (TaskState, error) {
	for _, s := range AllTaskStates {
		if s.String() == v {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown task state %q", v)
}

func (s TaskState) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid task state %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *TaskState) UnmarshalText(text []byte) error {
	parsed, err := ParseTaskState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value stores the state as its lower-case name.
func (s TaskState) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid task state %d", uint8(s))
	}
	return s.String(), nil
}

// Scan rejects anything that is not one of the known state names, so a
// hand-edited row cannot smuggle a new state into the engine.
func (s *TaskState) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return s.UnmarshalText([]byte(v))
	case []byte:
		return s.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into TaskState", src)
	}
}
