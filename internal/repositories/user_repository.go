package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "time-exchange.com/time-exchange/internal/errors"
	model "time-exchange.com/time-exchange/internal/models"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) CreateUser(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) FindUser(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) UserExists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) FindTransfer(ctx context.Context, reference string) (*model.Transfer, error) {
	var transfer model.Transfer
	err := r.db.WithContext(ctx).First(&transfer, "reference = ?", reference).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransferNotFound
		}
		return nil, err
	}
	return &transfer, nil
}

// Transfer runs debit, credit and the ledger insert in one database
// transaction. The debit is conditional on the balance covering amount, so a
// concurrent transfer can never drive it negative.
func (r *UserRepository) Transfer(ctx context.Context, reference, fromID, toID string, amount int64) (*model.Transfer, error) {
	var result *model.Transfer

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prior model.Transfer
		err := tx.First(&prior, "reference = ?", reference).Error
		switch {
		case err == nil:
			if !prior.SameParties(fromID, toID, amount) {
				return fmt.Errorf("%w: reference %s already used for a different transfer", apperrors.ErrBadRequest, reference)
			}
			prior.Replayed = true
			result = &prior
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		for _, id := range []string{fromID, toID} {
			var count int64
			if err := tx.Model(&model.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return fmt.Errorf("%w: %s", apperrors.ErrUserNotFound, id)
			}
		}

		now := time.Now().UTC()

		debit := tx.Model(&model.User{}).
			Where("id = ? AND time_credits >= ?", fromID, amount).
			Updates(map[string]interface{}{
				"time_credits": gorm.Expr("time_credits - ?", amount),
				"updated_at":   now,
			})
		if debit.Error != nil {
			return debit.Error
		}
		if debit.RowsAffected == 0 {
			return fmt.Errorf("%w: user %s cannot cover %d credits", apperrors.ErrInsufficientFunds, fromID, amount)
		}

		credit := tx.Model(&model.User{}).
			Where("id = ?", toID).
			Updates(map[string]interface{}{
				"time_credits": gorm.Expr("time_credits + ?", amount),
				"updated_at":   now,
			})
		if credit.Error != nil {
			return credit.Error
		}

		var from, to model.User
		if err := tx.First(&from, "id = ?", fromID).Error; err != nil {
			return err
		}
		if err := tx.First(&to, "id = ?", toID).Error; err != nil {
			return err
		}

		entry := &model.Transfer{
			Reference:   reference,
			FromUserID:  fromID,
			ToUserID:    toID,
			Amount:      amount,
			FromBalance: from.TimeCredits,
			ToBalance:   to.TimeCredits,
			CreatedAt:   now,
		}
		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		result = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
