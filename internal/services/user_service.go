package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "time-exchange.com/time-exchange/internal/errors"
	model "time-exchange.com/time-exchange/internal/models"
	repository "time-exchange.com/time-exchange/internal/repositories"
)

type UserService struct {
	store repository.BalanceStore
}

func NewUserService(store repository.BalanceStore) *UserService {
	return &UserService{store: store}
}

func (s *UserService) CreateUser(ctx context.Context, name, email, description string, credits int64) (*model.User, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is required", apperrors.ErrBadRequest)
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", apperrors.ErrBadRequest)
	}
	if credits < 0 {
		return nil, fmt.Errorf("%w: time credits cannot be negative", apperrors.ErrBadRequest)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:          uuid.NewString(),
		Name:        name,
		Email:       email,
		Description: description,
		TimeCredits: credits,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.store.FindUser(ctx, id)
}
