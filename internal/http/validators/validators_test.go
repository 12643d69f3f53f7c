package validators

import (
	"errors"
	"strings"
	"testing"

	dto "time-exchange.com/time-exchange/internal/data_models"
	apperrors "time-exchange.com/time-exchange/internal/errors"
)

func TestValidateCreateTaskRequest(t *testing.T) {
	ok := &dto.CreateTaskRequest{Title: "Fix bike", Description: "flat tyre"}
	if err := ValidateCreateTaskRequest(ok); err != nil {
		t.Errorf("expected valid request, got %v", err)
	}

	long := &dto.CreateTaskRequest{Title: strings.Repeat("a", maxTitleLength+1)}
	if err := ValidateCreateTaskRequest(long); !errors.Is(err, apperrors.ErrBadRequest) {
		t.Errorf("expected ErrBadRequest, got %v", err)
	}
}

func TestValidateUpdateTaskRequest(t *testing.T) {
	offer := int64(3)
	if err := ValidateUpdateTaskRequest(&dto.UpdateTaskRequest{TimeCreditOffer: &offer}); err != nil {
		t.Errorf("expected valid patch, got %v", err)
	}

	desc := strings.Repeat("é", maxDescriptionLength+1)
	if err := ValidateUpdateTaskRequest(&dto.UpdateTaskRequest{Description: &desc}); !errors.Is(err, apperrors.ErrBadRequest) {
		t.Errorf("long description: expected ErrBadRequest, got %v", err)
	}
}

func TestValidateTransferRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     dto.TransferRequest
		wantErr bool
	}{
		{"valid", dto.TransferRequest{FromUserID: "a", ToUserID: "b", Amount: 1}, false},
		{"missing sender", dto.TransferRequest{ToUserID: "b", Amount: 1}, true},
		{"long reference", dto.TransferRequest{FromUserID: "a", ToUserID: "b", Reference: strings.Repeat("r", 65)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransferRequest(&tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}
}
