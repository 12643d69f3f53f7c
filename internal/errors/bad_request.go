package errors

import "net/http"

var ErrBadRequest = &Exception{
	Code:       "BAD_REQUEST",
	Message:    "bad request",
	StatusCode: http.StatusBadRequest,
}

var ErrInvalidJSON = &Exception{
	Code:       "BAD_REQUEST",
	Message:    "invalid JSON payload",
	StatusCode: http.StatusBadRequest,
}
