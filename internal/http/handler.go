package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"time-exchange.com/time-exchange/internal/constants"
	dto "time-exchange.com/time-exchange/internal/data_models"
	apperrors "time-exchange.com/time-exchange/internal/errors"
	middleware "time-exchange.com/time-exchange/internal/http/middlewares"
	"time-exchange.com/time-exchange/internal/http/validators"
	model "time-exchange.com/time-exchange/internal/models"
	"time-exchange.com/time-exchange/internal/services"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	taskService     *services.TaskService
	userService     *services.UserService
	transferService *services.TransferService
	dependencies    map[string]Pinger
}

func NewHandler(
	taskService *services.TaskService,
	userService *services.UserService,
	transferService *services.TransferService,
	dependencies map[string]Pinger,
) *Handler {
	return &Handler{
		taskService:     taskService,
		userService:     userService,
		transferService: transferService,
		dependencies:    dependencies,
	}
}

// Health pings every registered dependency and reports 503 when any of them
// is unreachable.
func (h *Handler) Health(c echo.Context) error {
	resp := dto.HealthResponse{
		Status:       "ok",
		Dependencies: make(map[string]string, len(h.dependencies)),
	}
	status := http.StatusOK

	for name, dep := range h.dependencies {
		if err := dep.Ping(c.Request().Context()); err != nil {
			resp.Status = "degraded"
			resp.Dependencies[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Dependencies[name] = "ok"
	}

	return c.JSON(status, resp)
}

func (h *Handler) CreateTask(c echo.Context) error {
	var req dto.CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ErrInvalidJSON
	}
	if err := validators.ValidateCreateTaskRequest(&req); err != nil {
		return err
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), services.CreateTaskInput{
		Title:             req.Title,
		Description:       req.Description,
		RequestedByUserID: req.RequestedByUserID,
		TimeCreditOffer:   req.TimeCreditOffer,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, task)
}

func (h *Handler) GetTask(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return apperrors.ErrTaskIDRequired
	}

	task, err := h.taskService.GetTask(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, task)
}

func (h *Handler) ListTasks(c echo.Context) error {
	filter := model.TaskFilter{
		RequestedByUserID: c.QueryParam("requested_by_user_id"),
		AcceptedByUserID:  c.QueryParam("accepted_by_user_id"),
	}
	if raw := c.QueryParam("state"); raw != "" {
		state, err := constants.ParseTaskState(raw)
		if err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrBadRequest, err)
		}
		filter.State = &state
	}

	tasks, err := h.taskService.ListTasks(c.Request().Context(), filter)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"count": len(tasks),
		"tasks": tasks,
	})
}

func (h *Handler) UpdateTask(c echo.Context) error {
	var req dto.UpdateTaskRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ErrInvalidJSON
	}
	if err := validators.ValidateUpdateTaskRequest(&req); err != nil {
		return err
	}

	task, err := h.taskService.UpdateTask(c.Request().Context(), c.Param("id"), caller(c, req.UpdatedByUserID), services.TaskPatch{
		Title:           req.Title,
		Description:     req.Description,
		TimeCreditOffer: req.TimeCreditOffer,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, task)
}

func (h *Handler) AcceptTask(c echo.Context) error {
	var req dto.AcceptTaskRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ErrInvalidJSON
	}

	task, err := h.taskService.AcceptTask(c.Request().Context(), c.Param("id"), caller(c, req.AcceptorUserID))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, task)
}

func (h *Handler) StartTask(c echo.Context) error {
	var req dto.StartTaskRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ErrInvalidJSON
	}

	task, err := h.taskService.StartTask(c.Request().Context(), c.Param("id"), caller(c, req.StartedByUserID))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, task)
}

func (h *Handler) CompleteTask(c echo.Context) error {
	var req dto.CompleteTaskRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ErrInvalidJSON
	}

	task, err := h.taskService.CompleteTask(c.Request().Context(), c.Param("id"), caller(c, req.CompletedByUserID))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, task)
}

func (h *Handler) CancelTask(c echo.Context) error {
	var req dto.CancelTaskRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ErrInvalidJSON
	}
	if err := validators.ValidateCancelTaskRequest(&req); err != nil {
		return err
	}

	task, err := h.taskService.CancelTask(c.Request().Context(), c.Param("id"), caller(c, req.CancelledByUserID), req.Reason)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, task)
}

func (h *Handler) CreateUser(c echo.Context) error {
	var req dto.CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ErrInvalidJSON
	}
	if err := validators.ValidateCreateUserRequest(&req); err != nil {
		return err
	}

	user, err := h.userService.CreateUser(c.Request().Context(), req.Name, req.Email, req.Description, req.TimeCredits)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, user)
}

func (h *Handler) GetUser(c echo.Context) error {
	user, err := h.userService.GetUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, user)
}

func (h *Handler) CreateTransfer(c echo.Context) error {
	var req dto.TransferRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ErrInvalidJSON
	}
	if err := validators.ValidateTransferRequest(&req); err != nil {
		return err
	}

	transfer, err := h.transferService.Transfer(c.Request().Context(), services.TransferRequest{
		Reference:  req.Reference,
		FromUserID: req.FromUserID,
		ToUserID:   req.ToUserID,
		Amount:     req.Amount,
	})
	if err != nil {
		return err
	}

	status := http.StatusCreated
	if transfer.Replayed {
		status = http.StatusOK
	}
	return c.JSON(status, transfer)
}

func (h *Handler) GetTransfer(c echo.Context) error {
	transfer, err := h.transferService.LookupTransfer(c.Request().Context(), c.Param("reference"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, transfer)
}

// caller prefers the actor named in the body and falls back to the caller
// header.
func caller(c echo.Context, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return c.Request().Header.Get(middleware.CallerHeader)
}
