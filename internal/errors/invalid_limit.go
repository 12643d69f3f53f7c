package errors

import "net/http"

var ErrInvalidLimit = &Exception{
	Code:       "BAD_REQUEST",
	Message:    "limit must be positive",
	StatusCode: http.StatusBadRequest,
}
