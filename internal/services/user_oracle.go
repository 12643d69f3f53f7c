package services

import (
	"context"
	"log"

	repository "time-exchange.com/time-exchange/internal/repositories"
)

// UserOracle answers whether a user id is known. Implementations never return
// an error: a lookup that cannot be completed answers false.
type UserOracle interface {
	UserExists(ctx context.Context, userID string) bool
}

type StoreUserOracle struct {
	store repository.BalanceStore
}

func NewStoreUserOracle(store repository.BalanceStore) *StoreUserOracle {
	return &StoreUserOracle{store: store}
}

func (o *StoreUserOracle) UserExists(ctx context.Context, userID string) bool {
	if userID == "" {
		return false
	}

	exists, err := o.store.UserExists(ctx, userID)
	if err != nil {
		log.Printf("user oracle: lookup of %s failed, treating as unknown: %v", userID, err)
		return false
	}
	return exists
}
