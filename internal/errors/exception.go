package errors

import (
	"errors"
	"net/http"
)

type Exception struct {
	Code       string
	Message    string
	StatusCode int
}

func (e *Exception) Error() string {
	return e.Message
}

func StatusCode(err error) int {
	var appErr *Exception
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// CodeOf returns the stable outcome code of the outermost Exception in err's
// chain, or INTERNAL when err carries none.
func CodeOf(err error) string {
	var appErr *Exception
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "INTERNAL"
}
