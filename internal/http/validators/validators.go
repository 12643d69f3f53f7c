package validators

import (
	"fmt"
	"unicode/utf8"

	dto "time-exchange.com/time-exchange/internal/data_models"
	apperrors "time-exchange.com/time-exchange/internal/errors"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 2000
	maxReasonLength      = 500
	maxReferenceLength   = 64
)

// Payload shape checks only. Rules that depend on stored state, such as
// whether a user exists or an offer is positive, belong to the services.

func ValidateCreateTaskRequest(r *dto.CreateTaskRequest) error {
	if err := maxLength("title", r.Title, maxTitleLength); err != nil {
		return err
	}
	return maxLength("description", r.Description, maxDescriptionLength)
}

func ValidateUpdateTaskRequest(r *dto.UpdateTaskRequest) error {
	if r.Title != nil {
		if err := maxLength("title", *r.Title, maxTitleLength); err != nil {
			return err
		}
	}
	if r.Description != nil {
		return maxLength("description", *r.Description, maxDescriptionLength)
	}
	return nil
}

func ValidateCancelTaskRequest(r *dto.CancelTaskRequest) error {
	return maxLength("reason", r.Reason, maxReasonLength)
}

func ValidateCreateUserRequest(r *dto.CreateUserRequest) error {
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", apperrors.ErrBadRequest)
	}
	if r.Email == "" {
		return fmt.Errorf("%w: email is required", apperrors.ErrBadRequest)
	}
	return maxLength("description", r.Description, maxDescriptionLength)
}

func ValidateTransferRequest(r *dto.TransferRequest) error {
	if r.FromUserID == "" || r.ToUserID == "" {
		return fmt.Errorf("%w: from_user_id and to_user_id are required", apperrors.ErrBadRequest)
	}
	return maxLength("reference", r.Reference, maxReferenceLength)
}

func maxLength(field, value string, limit int) error {
	if utf8.RuneCountInString(value) > limit {
		return fmt.Errorf("%w: %s must be at most %d characters", apperrors.ErrBadRequest, field, limit)
	}
	return nil
}
