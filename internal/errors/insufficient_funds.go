package errors

import "net/http"

var ErrInsufficientFunds = &Exception{
	Code:       "INSUFFICIENT_FUNDS",
	Message:    "insufficient time credits",
	StatusCode: http.StatusPaymentRequired,
}
