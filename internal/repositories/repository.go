package repository

import (
	"context"
	"time"

	model "time-exchange.com/time-exchange/internal/models"
)

// TaskStore persists tasks. Update is a check-and-set on Version: it fails
// with ErrOptimisticLock when the stored version moved since the task was read.
type TaskStore interface {
	CreateTask(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, id string) (*model.Task, error)
	List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error)
	Update(ctx context.Context, task *model.Task) error
	Ping(ctx context.Context) error
}

// BalanceStore owns user records and is the only writer of balances.
type BalanceStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	FindUser(ctx context.Context, id string) (*model.User, error)
	UserExists(ctx context.Context, id string) (bool, error)
	// Transfer moves amount between two users and writes the ledger entry as
	// one unit. A repeated reference with the same parties is replayed.
	Transfer(ctx context.Context, reference, fromID, toID string, amount int64) (*model.Transfer, error)
	FindTransfer(ctx context.Context, reference string) (*model.Transfer, error)
}

type SettlementStore interface {
	BeginAttempt(ctx context.Context, settlement *model.Settlement) (*model.Settlement, error)
	FindSettlement(ctx context.Context, taskID string) (*model.Settlement, error)
	MarkSettled(ctx context.Context, taskID string) error
	MarkRejected(ctx context.Context, taskID, reason string) error
	RecordError(ctx context.Context, taskID, reason string) error
	ListPending(ctx context.Context, olderThan time.Time, limit int) ([]model.Settlement, error)
}

// Stores bundles one backend's implementations.
type Stores struct {
	Tasks       TaskStore
	Balances    BalanceStore
	Settlements SettlementStore
	Close       func() error
}
