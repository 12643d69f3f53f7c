package http

import (
	"time"

	"github.com/labstack/echo/v4"

	middleware "time-exchange.com/time-exchange/internal/http/middlewares"
)

func Register(e *echo.Echo, h *Handler, rateLimitPerMinute int) {
	e.HTTPErrorHandler = ErrorHandler

	e.GET("/health", h.Health)

	api := e.Group("", middleware.RateLimiter(rateLimitPerMinute, time.Minute))

	api.POST("/tasks", h.CreateTask)
	api.GET("/tasks", h.ListTasks)
	api.GET("/tasks/:id", h.GetTask)
	api.PATCH("/tasks/:id", h.UpdateTask)
	api.POST("/tasks/:id/accept", h.AcceptTask)
	api.POST("/tasks/:id/start", h.StartTask)
	api.POST("/tasks/:id/complete", h.CompleteTask)
	api.POST("/tasks/:id/cancel", h.CancelTask)

	api.POST("/users", h.CreateUser)
	api.GET("/users/:id", h.GetUser)

	api.POST("/transfers", h.CreateTransfer)
	api.GET("/transfers/:reference", h.GetTransfer)
}
