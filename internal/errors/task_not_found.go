package errors

import "net/http"

var ErrTaskNotFound = &Exception{
	Code:       "NOT_FOUND",
	Message:    "task not found",
	StatusCode: http.StatusNotFound,
}
