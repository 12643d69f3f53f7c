package errors

import "net/http"

// ErrTransferFailed is surfaced by task completion. It is always joined with
// the underlying cause, so errors.Is matches both.
var ErrTransferFailed = &Exception{
	Code:       "TRANSFER_FAILED",
	Message:    "credit transfer failed",
	StatusCode: http.StatusFailedDependency,
}

var ErrTransferNotFound = &Exception{
	Code:       "NOT_FOUND",
	Message:    "transfer not found",
	StatusCode: http.StatusNotFound,
}
