package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusCode_Sentinels(t *testing.T) {
	cases := []struct {
		err  error
		code string
		want int
	}{
		{ErrTaskNotFound, "NOT_FOUND", http.StatusNotFound},
		{ErrInvalidStateTransition, "INVALID_STATE_TRANSITION", http.StatusConflict},
		{ErrForbidden, "FORBIDDEN", http.StatusForbidden},
		{ErrBadRequest, "BAD_REQUEST", http.StatusBadRequest},
		{ErrUserNotFound, "USER_NOT_FOUND", http.StatusNotFound},
		{ErrInsufficientFunds, "INSUFFICIENT_FUNDS", http.StatusPaymentRequired},
		{ErrTransferFailed, "TRANSFER_FAILED", http.StatusFailedDependency},
	}

	for _, tc := range cases {
		if got := StatusCode(tc.err); got != tc.want {
			t.Errorf("%s: expected status %d, got %d", tc.code, tc.want, got)
		}
		if got := CodeOf(tc.err); got != tc.code {
			t.Errorf("expected code %s, got %s", tc.code, got)
		}
	}
}

func TestStatusCode_WrappedTransferFailure(t *testing.T) {
	err := fmt.Errorf("%w: %w", ErrTransferFailed, ErrInsufficientFunds)

	if !errors.Is(err, ErrTransferFailed) || !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected both sentinels in chain: %v", err)
	}
	if got := CodeOf(err); got != "TRANSFER_FAILED" {
		t.Errorf("expected outer code TRANSFER_FAILED, got %s", got)
	}
	if got := StatusCode(err); got != http.StatusFailedDependency {
		t.Errorf("expected 424, got %d", got)
	}
}

func TestStatusCode_UnknownError(t *testing.T) {
	err := errors.New("boom")
	if got := StatusCode(err); got != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", got)
	}
	if got := CodeOf(err); got != "INTERNAL" {
		t.Errorf("expected INTERNAL, got %s", got)
	}
}
