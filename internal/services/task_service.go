package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"time-exchange.com/time-exchange/internal/constants"
	apperrors "time-exchange.com/time-exchange/internal/errors"
	"time-exchange.com/time-exchange/internal/events"
	"time-exchange.com/time-exchange/internal/lifecycle"
	model "time-exchange.com/time-exchange/internal/models"
	repository "time-exchange.com/time-exchange/internal/repositories"
)

type TaskServiceConfig struct {
	Policy lifecycle.Policy
	// CallTimeout bounds every oracle and transfer call.
	CallTimeout time.Duration
	// MaxConflictRetries is how many times a transition re-reads the task
	// after losing a concurrent write before giving up.
	MaxConflictRetries int
}

type CreateTaskInput struct {
	Title             string
	Description       string
	RequestedByUserID string
	TimeCreditOffer   int64
}

type TaskPatch struct {
	Title           *string
	Description     *string
	TimeCreditOffer *int64
}

func (p TaskPatch) empty() bool {
	return p.Title == nil && p.Description == nil && p.TimeCreditOffer == nil
}

type ReconcileOutcome string

const (
	ReconcileSettled  ReconcileOutcome = "settled"
	ReconcileRejected ReconcileOutcome = "rejected"
)

// TaskService is the task lifecycle engine. Every mutation reads the task,
// runs the lifecycle guards and writes back with a version check; a lost race
// re-reads and re-checks instead of overwriting.
type TaskService struct {
	tasks       repository.TaskStore
	settlements repository.SettlementStore
	users       UserOracle
	transfers   Transferrer
	events      EventSink
	policy      lifecycle.Policy
	callTimeout time.Duration
	maxRetries  int
	now         func() time.Time
}

func NewTaskService(
	tasks repository.TaskStore,
	settlements repository.SettlementStore,
	users UserOracle,
	transfers Transferrer,
	sink EventSink,
	cfg TaskServiceConfig,
) *TaskService {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 3 * time.Second
	}
	if cfg.MaxConflictRetries <= 0 {
		cfg.MaxConflictRetries = 3
	}

	return &TaskService{
		tasks:       tasks,
		settlements: settlements,
		users:       users,
		transfers:   transfers,
		events:      sink,
		policy:      cfg.Policy,
		callTimeout: cfg.CallTimeout,
		maxRetries:  cfg.MaxConflictRetries,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *TaskService) CreateTask(ctx context.Context, in CreateTaskInput) (*model.Task, error) {
	if !s.userExists(ctx, in.RequestedByUserID) {
		return nil, fmt.Errorf("%w: requester %s", apperrors.ErrUserNotFound, in.RequestedByUserID)
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", apperrors.ErrBadRequest)
	}
	if in.TimeCreditOffer <= 0 {
		return nil, fmt.Errorf("%w: time credit offer must be positive", apperrors.ErrBadRequest)
	}

	now := s.now()
	task := &model.Task{
		ID:                uuid.NewString(),
		Title:             in.Title,
		Description:       in.Description,
		RequestedByUserID: in.RequestedByUserID,
		TimeCreditOffer:   in.TimeCreditOffer,
		State:             constants.StateOpen,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return nil, err
	}

	s.emit("create", task, 0, in.RequestedByUserID)
	return task, nil
}

func (s *TaskService) GetTask(ctx context.Context, id string) (*model.Task, error) {
	return s.tasks.FindByID(ctx, id)
}

func (s *TaskService) ListTasks(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	return s.tasks.List(ctx, filter)
}

func (s *TaskService) UpdateTask(ctx context.Context, id, callerID string, patch TaskPatch) (*model.Task, error) {
	return s.transition(ctx, id, lifecycle.OpUpdate, callerID, func(task *model.Task) error {
		if patch.empty() {
			return fmt.Errorf("%w: nothing to update", apperrors.ErrBadRequest)
		}
		if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
			return fmt.Errorf("%w: title cannot be empty", apperrors.ErrBadRequest)
		}
		if patch.TimeCreditOffer != nil && *patch.TimeCreditOffer <= 0 {
			return fmt.Errorf("%w: time credit offer must be positive", apperrors.ErrBadRequest)
		}

		if patch.Title != nil {
			task.Title = *patch.Title
		}
		if patch.Description != nil {
			task.Description = *patch.Description
		}
		if patch.TimeCreditOffer != nil {
			task.TimeCreditOffer = *patch.TimeCreditOffer
		}
		return nil
	})
}

func (s *TaskService) AcceptTask(ctx context.Context, id, acceptorID string) (*model.Task, error) {
	return s.transition(ctx, id, lifecycle.OpAccept, acceptorID, func(task *model.Task) error {
		if !s.userExists(ctx, acceptorID) {
			return fmt.Errorf("%w: acceptor %s", apperrors.ErrUserNotFound, acceptorID)
		}
		acceptor := acceptorID
		task.AcceptedByUserID = &acceptor
		return nil
	})
}

func (s *TaskService) StartTask(ctx context.Context, id, callerID string) (*model.Task, error) {
	return s.transition(ctx, id, lifecycle.OpStart, callerID, nil)
}

func (s *TaskService) CancelTask(ctx context.Context, id, callerID, reason string) (*model.Task, error) {
	return s.transition(ctx, id, lifecycle.OpCancel, callerID, func(task *model.Task) error {
		if reason = strings.TrimSpace(reason); reason != "" {
			task.CancelReason = &reason
		}
		return nil
	})
}

// CompleteTask pays the acceptor and then marks the task completed. The task
// only moves once the transfer is confirmed; any failure leaves it in
// progress. Completing an already completed task as its acceptor returns the
// task without paying again.
func (s *TaskService) CompleteTask(ctx context.Context, id, callerID string) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if task.State == constants.StateCompleted && callerID != "" && callerID == task.AcceptedBy() {
		return task, nil
	}

	if err := lifecycle.Check(lifecycle.OpComplete, snapshotOf(task), callerID, s.policy); err != nil {
		return nil, err
	}

	if err := s.settle(ctx, task); err != nil {
		return nil, err
	}

	completed, err := s.markCompleted(ctx, task, callerID)
	if err != nil {
		log.Printf("settlement: task %s was paid but could not be marked completed: %v", id, err)
		return nil, fmt.Errorf("task %s paid but not yet completed: %w", id, err)
	}

	if err := s.settlements.MarkSettled(ctx, id); err != nil {
		log.Printf("settlement: failed to mark task %s settled: %v", id, err)
	}

	return completed, nil
}

// settle records the attempt marker and requests the transfer, using the
// task id as the transfer reference so a repeated request cannot pay twice.
func (s *TaskService) settle(ctx context.Context, task *model.Task) error {
	marker := &model.Settlement{
		TaskID:     task.ID,
		FromUserID: task.RequestedByUserID,
		ToUserID:   task.AcceptedBy(),
		Amount:     task.TimeCreditOffer,
	}
	if _, err := s.settlements.BeginAttempt(ctx, marker); err != nil {
		log.Printf("settlement: could not record attempt for task %s: %v", task.ID, err)
		return fmt.Errorf("%w: settlement attempt could not be recorded", apperrors.ErrTransferFailed)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	transfer, err := s.transfers.Transfer(callCtx, TransferRequest{
		Reference:  task.ID,
		FromUserID: marker.FromUserID,
		ToUserID:   marker.ToUserID,
		Amount:     marker.Amount,
	})
	cancel()

	if err != nil {
		if isTransferRejection(err) {
			if markErr := s.settlements.MarkRejected(ctx, task.ID, err.Error()); markErr != nil {
				log.Printf("settlement: failed to mark task %s rejected: %v", task.ID, markErr)
			}
			return fmt.Errorf("%w: %w", apperrors.ErrTransferFailed, err)
		}

		log.Printf("settlement: outcome unknown for task %s: %v", task.ID, err)
		if markErr := s.settlements.RecordError(ctx, task.ID, err.Error()); markErr != nil {
			log.Printf("settlement: failed to record error for task %s: %v", task.ID, markErr)
		}
		return fmt.Errorf("%w: transfer outcome unknown, task left in progress", apperrors.ErrTransferFailed)
	}

	if transfer.Replayed {
		log.Printf("settlement: task %s transfer was already applied, reusing it", task.ID)
	}
	return nil
}

func (s *TaskService) markCompleted(ctx context.Context, task *model.Task, actor string) (*model.Task, error) {
	for attempt := 0; ; attempt++ {
		previous := task.State
		task.State = constants.StateCompleted
		task.UpdatedAt = s.now()

		err := s.tasks.Update(ctx, task)
		if err == nil {
			s.emit(lifecycle.OpComplete.String(), task, previous, actor)
			return task, nil
		}
		if !errors.Is(err, apperrors.ErrOptimisticLock) || attempt >= s.maxRetries {
			return nil, err
		}

		task, err = s.tasks.FindByID(ctx, task.ID)
		if err != nil {
			return nil, err
		}
		switch task.State {
		case constants.StateCompleted:
			return task, nil
		case constants.StateInProgress:
		default:
			return nil, fmt.Errorf("%w: task moved to %s during settlement", apperrors.ErrInvalidStateTransition, task.State)
		}
	}
}

// ReconcileSettlement resolves a pending settlement marker by asking the
// transfer service whether the payment was applied. It never requests a
// transfer itself.
func (s *TaskService) ReconcileSettlement(ctx context.Context, marker model.Settlement) (ReconcileOutcome, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	_, err := s.transfers.LookupTransfer(callCtx, marker.TaskID)
	cancel()

	if errors.Is(err, apperrors.ErrTransferNotFound) {
		if err := s.settlements.MarkRejected(ctx, marker.TaskID, "no transfer recorded for task"); err != nil {
			return "", err
		}
		return ReconcileRejected, nil
	}
	if err != nil {
		return "", err
	}

	task, err := s.tasks.FindByID(ctx, marker.TaskID)
	if err != nil {
		return "", err
	}
	if task.State == constants.StateInProgress {
		if _, err := s.markCompleted(ctx, task, marker.ToUserID); err != nil {
			return "", err
		}
	}

	if err := s.settlements.MarkSettled(ctx, marker.TaskID); err != nil {
		return "", err
	}
	return ReconcileSettled, nil
}

func (s *TaskService) transition(
	ctx context.Context,
	id string,
	op lifecycle.Operation,
	actor string,
	apply func(task *model.Task) error,
) (*model.Task, error) {
	target, err := lifecycle.Target(op)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		task, err := s.tasks.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if err := lifecycle.Check(op, snapshotOf(task), actor, s.policy); err != nil {
			return nil, err
		}

		previous := task.State
		if apply != nil {
			if err := apply(task); err != nil {
				return nil, err
			}
		}
		task.State = target
		task.UpdatedAt = s.now()

		err = s.tasks.Update(ctx, task)
		if err == nil {
			s.emit(op.String(), task, previous, actor)
			return task, nil
		}
		if !errors.Is(err, apperrors.ErrOptimisticLock) || attempt >= s.maxRetries {
			return nil, err
		}

		log.Printf("task %s: %s lost a concurrent update, re-checking", id, op)
	}
}

func (s *TaskService) userExists(ctx context.Context, userID string) bool {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return s.users.UserExists(callCtx, userID)
}

func (s *TaskService) emit(operation string, task *model.Task, previous constants.TaskState, actor string) {
	if s.events == nil {
		return
	}

	event := events.TaskEvent{
		TaskID:          task.ID,
		UserID:          actor,
		Operation:       operation,
		State:           task.State.String(),
		TimeCreditOffer: task.TimeCreditOffer,
		Timestamp:       task.UpdatedAt,
	}
	if previous.Valid() {
		event.PreviousState = previous.String()
	}
	if task.CancelReason != nil {
		event.Reason = *task.CancelReason
	}

	s.events.Dispatch(event)
}

func snapshotOf(task *model.Task) lifecycle.Snapshot {
	return lifecycle.Snapshot{
		State:             task.State,
		RequestedByUserID: task.RequestedByUserID,
		AcceptedByUserID:  task.AcceptedBy(),
	}
}

// isTransferRejection reports whether the transfer service definitely
// refused the transfer, as opposed to failing with an unknown outcome.
func isTransferRejection(err error) bool {
	return errors.Is(err, apperrors.ErrInsufficientFunds) ||
		errors.Is(err, apperrors.ErrUserNotFound) ||
		errors.Is(err, apperrors.ErrBadRequest)
}
