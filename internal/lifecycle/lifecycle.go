// Package lifecycle holds the task state machine: which operation may run in
// which state, who may run it, and where it leads. It has no storage or
// transport dependencies.
package lifecycle

import (
	"fmt"

	"time-exchange.com/time-exchange/internal/constants"
	apperrors "time-exchange.com/time-exchange/internal/errors"
)

type Operation uint8

const (
	OpUpdate Operation = iota + 1
	OpAccept
	OpStart
	OpComplete
	OpCancel
)

func (o Operation) String() string {
	switch o {
	case OpUpdate:
		return "update"
	case OpAccept:
		return "accept"
	case OpStart:
		return "start"
	case OpComplete:
		return "complete"
	case OpCancel:
		return "cancel"
	default:
		return fmt.Sprintf("Operation(%d)", uint8(o))
	}
}

// Snapshot is the part of a task the guards look at.
type Snapshot struct {
	State             constants.TaskState
	RequestedByUserID string
	AcceptedByUserID  string
}

// Policy carries the switchable guards.
type Policy struct {
	// RequireCreatorForUpdate restricts update to the requester. Off by
	// default: any caller may edit an open task.
	RequireCreatorForUpdate bool
}

// Allowed reports whether op may run while the task is in state.
func Allowed(op Operation, state constants.TaskState) bool {
	switch op {
	case OpUpdate, OpAccept:
		return state == constants.StateOpen
	case OpStart:
		return state == constants.StatePending
	case OpComplete:
		return state == constants.StateInProgress
	case OpCancel:
		return state == constants.StateOpen || state == constants.StatePending
	default:
		return false
	}
}

// Target is the state a successful op leaves the task in. Update does not
// move the task.
func Target(op Operation) (constants.TaskState, error) {
	switch op {
	case OpUpdate:
		return constants.StateOpen, nil
	case OpAccept:
		return constants.StatePending, nil
	case OpStart:
		return constants.StateInProgress, nil
	case OpComplete:
		return constants.StateCompleted, nil
	case OpCancel:
		return constants.StateCancelled, nil
	default:
		return 0, fmt.Errorf("unknown operation %d", uint8(op))
	}
}

// Check runs the state precondition and then the actor guard for op. The
// state check always wins when both would fail.
func Check(op Operation, task Snapshot, actor string, policy Policy) error {
	if !Allowed(op, task.State) {
		return fmt.Errorf("%w: cannot %s a task in state %s", apperrors.ErrInvalidStateTransition, op, task.State)
	}

	switch op {
	case OpUpdate:
		if policy.RequireCreatorForUpdate && actor != task.RequestedByUserID {
			return fmt.Errorf("%w: only the requester may update this task", apperrors.ErrForbidden)
		}
	case OpAccept:
		if actor == "" {
			return fmt.Errorf("%w: acceptor id is required", apperrors.ErrUserNotFound)
		}
		if actor == task.RequestedByUserID {
			return fmt.Errorf("%w: requester cannot accept their own task", apperrors.ErrForbidden)
		}
	case OpStart, OpComplete:
		if task.AcceptedByUserID == "" || actor != task.AcceptedByUserID {
			return fmt.Errorf("%w: only the acceptor may %s this task", apperrors.ErrForbidden, op)
		}
	case OpCancel:
		if actor != task.RequestedByUserID {
			return fmt.Errorf("%w: only the requester may cancel this task", apperrors.ErrForbidden)
		}
	default:
		return fmt.Errorf("unknown operation %d", uint8(op))
	}

	return nil
}
