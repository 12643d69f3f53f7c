package errors

import "net/http"

var ErrUserNotFound = &Exception{
	Code:       "USER_NOT_FOUND",
	Message:    "user not found",
	StatusCode: http.StatusNotFound,
}
