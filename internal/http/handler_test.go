package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	dto "time-exchange.com/time-exchange/internal/data_models"
	model "time-exchange.com/time-exchange/internal/models"
	repository "time-exchange.com/time-exchange/internal/repositories"
	"time-exchange.com/time-exchange/internal/services"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error {
	return p.err
}

func setupTestServer(t *testing.T, checks map[string]Pinger) *echo.Echo {
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

	stores := repository.NewGormStores(db)
	transfers := services.NewTransferService(stores.Balances)
	taskService := services.NewTaskService(
		stores.Tasks,
		stores.Settlements,
		services.NewStoreUserOracle(stores.Balances),
		transfers,
		nil,
		services.TaskServiceConfig{CallTimeout: time.Second},
	)

	dependencies := map[string]Pinger{"store": stores.Tasks}
	for name, check := range checks {
		dependencies[name] = check
	}

	e := echo.New()
	Register(e, NewHandler(taskService, services.NewUserService(stores.Balances), transfers, dependencies), 1000)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var payload string
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		payload = string(b)
	}

	req := httptest.NewRequest(method, path, strings.NewReader(payload))
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func createUser(t *testing.T, e *echo.Echo, credits int64) model.User {
	t.Helper()

	rec := doJSON(t, e, http.MethodPost, "/users", dto.CreateUserRequest{
		Name:        "user",
		Email:       "user@example.com",
		TimeCredits: credits,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create user: status %d body %s", rec.Code, rec.Body.String())
	}
	return decode[model.User](t, rec)
}

func TestHandler_TaskLifecycle(t *testing.T) {
	e := setupTestServer(t, nil)

	requester := createUser(t, e, 10)
	acceptor := createUser(t, e, 0)

	rec := doJSON(t, e, http.MethodPost, "/tasks", dto.CreateTaskRequest{
		Title:             "Walk the dog",
		Description:       "Saturday morning",
		RequestedByUserID: requester.ID,
		TimeCreditOffer:   3,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create task: status %d body %s", rec.Code, rec.Body.String())
	}
	task := decode[map[string]any](t, rec)
	if task["state"] != "open" {
		t.Fatalf("expected state open, got %v", task["state"])
	}
	id := task["id"].(string)

	steps := []struct {
		path  string
		body  any
		state string
	}{
		{"/tasks/" + id + "/accept", dto.AcceptTaskRequest{AcceptorUserID: acceptor.ID}, "pending"},
		{"/tasks/" + id + "/start", dto.StartTaskRequest{StartedByUserID: acceptor.ID}, "in_progress"},
		{"/tasks/" + id + "/complete", dto.CompleteTaskRequest{CompletedByUserID: acceptor.ID}, "completed"},
	}
	for _, step := range steps {
		rec := doJSON(t, e, http.MethodPost, step.path, step.body)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d body %s", step.path, rec.Code, rec.Body.String())
		}
		if got := decode[map[string]any](t, rec)["state"]; got != step.state {
			t.Fatalf("%s: expected state %s, got %v", step.path, step.state, got)
		}
	}

	rec = doJSON(t, e, http.MethodGet, "/users/"+acceptor.ID, nil)
	if got := decode[model.User](t, rec).TimeCredits; got != 3 {
		t.Errorf("acceptor credits = %d, want 3", got)
	}

	rec = doJSON(t, e, http.MethodGet, "/transfers/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get transfer: status %d body %s", rec.Code, rec.Body.String())
	}
	if got := decode[model.Transfer](t, rec); got.Amount != 3 || got.ToUserID != acceptor.ID {
		t.Errorf("unexpected ledger entry %+v", got)
	}

	rec = doJSON(t, e, http.MethodPost, "/tasks/"+id+"/cancel", dto.CancelTaskRequest{CancelledByUserID: requester.ID})
	if rec.Code != http.StatusConflict {
		t.Fatalf("cancel completed: status %d, want 409", rec.Code)
	}
	if got := decode[dto.ErrorResponse](t, rec); got.Code != "INVALID_STATE_TRANSITION" {
		t.Errorf("error code = %s, want INVALID_STATE_TRANSITION", got.Code)
	}

	rec = doJSON(t, e, http.MethodGet, "/tasks?state=completed", nil)
	list := decode[map[string]any](t, rec)
	if list["count"] != float64(1) {
		t.Errorf("expected 1 completed task, got %v", list["count"])
	}
}

func TestHandler_ErrorMapping(t *testing.T) {
	e := setupTestServer(t, nil)

	requester := createUser(t, e, 1)
	acceptor := createUser(t, e, 0)

	rec := doJSON(t, e, http.MethodPost, "/tasks", dto.CreateTaskRequest{Title: "t", RequestedByUserID: requester.ID, TimeCreditOffer: 5})
	id := decode[map[string]any](t, rec)["id"].(string)
	doJSON(t, e, http.MethodPost, "/tasks/"+id+"/accept", dto.AcceptTaskRequest{AcceptorUserID: acceptor.ID})
	doJSON(t, e, http.MethodPost, "/tasks/"+id+"/start", dto.StartTaskRequest{StartedByUserID: acceptor.ID})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"unknown task", http.MethodGet, "/tasks/nope", nil, http.StatusNotFound, "NOT_FOUND"},
		{"unknown user", http.MethodGet, "/users/nope", nil, http.StatusNotFound, "USER_NOT_FOUND"},
		{"unknown requester", http.MethodPost, "/tasks", dto.CreateTaskRequest{Title: "t", RequestedByUserID: "ghost", TimeCreditOffer: 1}, http.StatusNotFound, "USER_NOT_FOUND"},
		{"zero offer", http.MethodPost, "/tasks", dto.CreateTaskRequest{Title: "t", RequestedByUserID: requester.ID}, http.StatusBadRequest, "BAD_REQUEST"},
		{"bad state filter", http.MethodGet, "/tasks?state=done", nil, http.StatusBadRequest, "BAD_REQUEST"},
		{"wrong starter", http.MethodPost, "/tasks/" + id + "/complete", dto.CompleteTaskRequest{CompletedByUserID: requester.ID}, http.StatusForbidden, "FORBIDDEN"},
		{"insufficient funds", http.MethodPost, "/tasks/" + id + "/complete", dto.CompleteTaskRequest{CompletedByUserID: acceptor.ID}, http.StatusFailedDependency, "TRANSFER_FAILED"},
		{"direct overdraft", http.MethodPost, "/transfers", dto.TransferRequest{FromUserID: requester.ID, ToUserID: acceptor.ID, Amount: 9}, http.StatusPaymentRequired, "INSUFFICIENT_FUNDS"},
		{"unknown route", http.MethodGet, "/nowhere", nil, http.StatusNotFound, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, e, tt.method, tt.path, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
			if got := decode[dto.ErrorResponse](t, rec); got.Code != tt.code {
				t.Errorf("code = %s, want %s", got.Code, tt.code)
			}
		})
	}
}

func TestHandler_InvalidJSON(t *testing.T) {
	e := setupTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/tasks", strings.NewReader("{"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if got := decode[dto.ErrorResponse](t, rec); got.Message != "invalid JSON payload" {
		t.Errorf("message = %q", got.Message)
	}
}

func TestHandler_CallerHeaderFallback(t *testing.T) {
	e := setupTestServer(t, nil)

	requester := createUser(t, e, 5)
	rec := doJSON(t, e, http.MethodPost, "/tasks", dto.CreateTaskRequest{Title: "t", RequestedByUserID: requester.ID, TimeCreditOffer: 1})
	id := decode[map[string]any](t, rec)["id"].(string)

	req := httptest.NewRequest(http.MethodPost, "/tasks/"+id+"/cancel", strings.NewReader(`{"reason":"moved away"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-User-ID", requester.ID)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	task := decode[map[string]any](t, rec)
	if task["state"] != "cancelled" || task["cancel_reason"] != "moved away" {
		t.Errorf("unexpected task %v", task)
	}
}

func TestHandler_Health(t *testing.T) {
	e := setupTestServer(t, nil)
	rec := doJSON(t, e, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode[dto.HealthResponse](t, rec); got.Status != "ok" || got.Dependencies["store"] != "ok" {
		t.Errorf("unexpected health %+v", got)
	}

	e = setupTestServer(t, map[string]Pinger{"store": stubPinger{err: errors.New("connection refused")}})
	rec = doJSON(t, e, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if got := decode[dto.HealthResponse](t, rec); got.Dependencies["store"] != "connection refused" {
		t.Errorf("unexpected dependencies %v", got.Dependencies)
	}
}

func TestHandler_HealthReportsUserService(t *testing.T) {
	e := setupTestServer(t, map[string]Pinger{"user_service": stubPinger{}})
	rec := doJSON(t, e, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode[dto.HealthResponse](t, rec); got.Dependencies["user_service"] != "ok" {
		t.Errorf("unexpected dependencies %v", got.Dependencies)
	}

	e = setupTestServer(t, map[string]Pinger{"user_service": stubPinger{err: errors.New("http 503")}})
	rec = doJSON(t, e, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	got := decode[dto.HealthResponse](t, rec)
	if got.Status != "degraded" || got.Dependencies["store"] != "ok" || got.Dependencies["user_service"] != "http 503" {
		t.Errorf("unexpected health %+v", got)
	}
}
