package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	apperrors "time-exchange.com/time-exchange/internal/errors"
	model "time-exchange.com/time-exchange/internal/models"
	repository "time-exchange.com/time-exchange/internal/repositories"
)

type TransferRequest struct {
	Reference  string
	FromUserID string
	ToUserID   string
	Amount     int64
}

// Transferrer moves credits between two users as one unit. LookupTransfer
// returns ErrTransferNotFound when no transfer with the reference was applied.
type Transferrer interface {
	Transfer(ctx context.Context, req TransferRequest) (*model.Transfer, error)
	LookupTransfer(ctx context.Context, reference string) (*model.Transfer, error)
}

type TransferService struct {
	store repository.BalanceStore
}

func NewTransferService(store repository.BalanceStore) *TransferService {
	return &TransferService{store: store}
}

func (s *TransferService) Transfer(ctx context.Context, req TransferRequest) (*model.Transfer, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", apperrors.ErrBadRequest)
	}
	if req.FromUserID == "" || req.ToUserID == "" {
		return nil, fmt.Errorf("%w: both parties are required", apperrors.ErrUserNotFound)
	}
	if req.FromUserID == req.ToUserID {
		return nil, fmt.Errorf("%w: cannot transfer to the same user", apperrors.ErrBadRequest)
	}

	reference := req.Reference
	if reference == "" {
		reference = uuid.NewString()
	}

	return s.store.Transfer(ctx, reference, req.FromUserID, req.ToUserID, req.Amount)
}

func (s *TransferService) LookupTransfer(ctx context.Context, reference string) (*model.Transfer, error) {
	return s.store.FindTransfer(ctx, reference)
}
