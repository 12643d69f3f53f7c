package errors

import "net/http"

var ErrInvalidStateTransition = &Exception{
	Code:       "INVALID_STATE_TRANSITION",
	Message:    "operation not allowed in current task state",
	StatusCode: http.StatusConflict,
}
