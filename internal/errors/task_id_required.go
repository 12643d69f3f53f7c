package errors

import "net/http"

var ErrTaskIDRequired = &Exception{
	Code:       "BAD_REQUEST",
	Message:    "task id is required",
	StatusCode: http.StatusBadRequest,
}
