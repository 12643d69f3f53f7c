package errors

import "net/http"

var ErrForbidden = &Exception{
	Code:       "FORBIDDEN",
	Message:    "caller is not allowed to perform this transition",
	StatusCode: http.StatusForbidden,
}
