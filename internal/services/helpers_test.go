package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"time-exchange.com/time-exchange/internal/events"
	"time-exchange.com/time-exchange/internal/lifecycle"
	model "time-exchange.com/time-exchange/internal/models"
	repository "time-exchange.com/time-exchange/internal/repositories"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	if err := repository.Migrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

// recordingSink keeps every dispatched event in memory.
type recordingSink struct {
	mu     sync.Mutex
	events []events.TaskEvent
}

func (s *recordingSink) Dispatch(event events.TaskEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return true
}

func (s *recordingSink) operations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ops := make([]string, 0, len(s.events))
	for _, e := range s.events {
		ops = append(ops, e.Operation)
	}
	return ops
}

// flakyTransferrer wraps a real Transferrer. When apply is set the transfer
// goes through before fail is returned, simulating a reply lost in transit.
type flakyTransferrer struct {
	inner Transferrer
	fail  error
	apply bool
	calls int
	mu    sync.Mutex
}

func (f *flakyTransferrer) Transfer(ctx context.Context, req TransferRequest) (*model.Transfer, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.fail == nil {
		return f.inner.Transfer(ctx, req)
	}
	if f.apply {
		if _, err := f.inner.Transfer(ctx, req); err != nil {
			return nil, err
		}
	}
	return nil, f.fail
}

func (f *flakyTransferrer) LookupTransfer(ctx context.Context, reference string) (*model.Transfer, error) {
	return f.inner.LookupTransfer(ctx, reference)
}

// failingBalanceStore fails every existence lookup.
type failingBalanceStore struct {
	repository.BalanceStore
}

func (failingBalanceStore) UserExists(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}

type testEnv struct {
	stores    repository.Stores
	users     *UserService
	transfers *TransferService
	sink      *recordingSink
	service   *TaskService
}

func newTestEnv(t *testing.T, policy lifecycle.Policy) *testEnv {
	t.Helper()

	stores := repository.NewGormStores(setupTestDB(t))
	env := &testEnv{
		stores:    stores,
		users:     NewUserService(stores.Balances),
		transfers: NewTransferService(stores.Balances),
		sink:      &recordingSink{},
	}
	env.service = env.build(env.transfers, NewStoreUserOracle(stores.Balances), policy)
	return env
}

func (e *testEnv) build(transfers Transferrer, oracle UserOracle, policy lifecycle.Policy) *TaskService {
	return NewTaskService(
		e.stores.Tasks,
		e.stores.Settlements,
		oracle,
		transfers,
		e.sink,
		TaskServiceConfig{Policy: policy, CallTimeout: time.Second},
	)
}

func (e *testEnv) user(t *testing.T, credits int64) *model.User {
	t.Helper()

	u, err := e.users.CreateUser(context.Background(), "user", "user@example.com", "", credits)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return u
}

func (e *testEnv) balance(t *testing.T, id string) int64 {
	t.Helper()

	u, err := e.users.GetUser(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to load user %s: %v", id, err)
	}
	return u.TimeCredits
}

// inProgressTask creates a task for requester, accepted and started by acceptor.
func (e *testEnv) inProgressTask(t *testing.T, requester, acceptor string, offer int64) *model.Task {
	t.Helper()
	ctx := context.Background()

	task, err := e.service.CreateTask(ctx, CreateTaskInput{
		Title:             "Walk the dog",
		Description:       "Twice around the park",
		RequestedByUserID: requester,
		TimeCreditOffer:   offer,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.service.AcceptTask(ctx, task.ID, acceptor); err != nil {
		t.Fatalf("accept: %v", err)
	}
	task, err = e.service.StartTask(ctx, task.ID, acceptor)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return task
}
