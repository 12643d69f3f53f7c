package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	dto "time-exchange.com/time-exchange/internal/data_models"
	apperrors "time-exchange.com/time-exchange/internal/errors"
)

// ErrorHandler renders every error as {"code", "message"}. Application
// errors keep their own code and status; echo errors are mapped by status.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := apperrors.StatusCode(err)
	body := dto.ErrorResponse{Code: apperrors.CodeOf(err), Message: err.Error()}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		status = httpErr.Code
		body.Code = codeForStatus(status)
		body.Message = http.StatusText(status)
		if msg, ok := httpErr.Message.(string); ok {
			body.Message = msg
		}
	} else if status == http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request().Method, c.Path(), err)
		body.Message = "internal server error"
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, body)
	}
	if writeErr != nil {
		log.Printf("failed to write error response: %v", writeErr)
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case http.StatusBadRequest, http.StatusUnsupportedMediaType:
		return "BAD_REQUEST"
	default:
		return "INTERNAL"
	}
}
