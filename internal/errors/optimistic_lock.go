package errors

import "net/http"

var ErrOptimisticLock = &Exception{
	Code:       "CONFLICT",
	Message:    "optimistic locking conflict",
	StatusCode: http.StatusConflict,
}
