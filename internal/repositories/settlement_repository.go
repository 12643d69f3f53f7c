package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"time-exchange.com/time-exchange/internal/constants"
	apperrors "time-exchange.com/time-exchange/internal/errors"
	model "time-exchange.com/time-exchange/internal/models"
)

var ErrSettlementNotFound = errors.New("settlement not found")

type SettlementRepository struct {
	db *gorm.DB
}

func NewSettlementRepository(db *gorm.DB) *SettlementRepository {
	return &SettlementRepository{db: db}
}

// BeginAttempt records that a transfer is about to be requested for the task.
// A repeated attempt bumps Attempts and puts the marker back to pending.
func (r *SettlementRepository) BeginAttempt(ctx context.Context, s *model.Settlement) (*model.Settlement, error) {
	var stored model.Settlement

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()

		err := tx.First(&stored, "task_id = ?", s.TaskID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			stored = *s
			stored.Status = constants.SettlementPending
			stored.Attempts = 1
			stored.CreatedAt = now
			stored.UpdatedAt = now
			return tx.Create(&stored).Error
		}
		if err != nil {
			return err
		}

		stored.FromUserID = s.FromUserID
		stored.ToUserID = s.ToUserID
		stored.Amount = s.Amount
		stored.Status = constants.SettlementPending
		stored.Attempts++
		stored.LastError = ""
		stored.UpdatedAt = now
		return tx.Save(&stored).Error
	})
	if err != nil {
		return nil, err
	}

	return &stored, nil
}

func (r *SettlementRepository) FindSettlement(ctx context.Context, taskID string) (*model.Settlement, error) {
	var s model.Settlement
	err := r.db.WithContext(ctx).First(&s, "task_id = ?", taskID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSettlementNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *SettlementRepository) MarkSettled(ctx context.Context, taskID string) error {
	return r.setStatus(ctx, taskID, constants.SettlementSettled, "")
}

func (r *SettlementRepository) MarkRejected(ctx context.Context, taskID, reason string) error {
	return r.setStatus(ctx, taskID, constants.SettlementRejected, reason)
}

// RecordError notes a failure whose outcome is unknown; the marker stays pending.
func (r *SettlementRepository) RecordError(ctx context.Context, taskID, reason string) error {
	return r.setStatus(ctx, taskID, constants.SettlementPending, reason)
}

func (r *SettlementRepository) ListPending(ctx context.Context, olderThan time.Time, limit int) ([]model.Settlement, error) {
	if limit <= 0 {
		return nil, apperrors.ErrInvalidLimit
	}

	var settlements []model.Settlement
	query := r.db.WithContext(ctx).
		Where("status = ? AND updated_at <= ?", constants.SettlementPending, olderThan).
		Order("updated_at asc").Limit(limit)

	if err := query.Find(&settlements).Error; err != nil {
		return nil, err
	}

	return settlements, nil
}

func (r *SettlementRepository) setStatus(ctx context.Context, taskID string, status constants.SettlementStatus, lastError string) error {
	res := r.db.WithContext(ctx).Model(&model.Settlement{}).
		Where("task_id = ?", taskID).
		Updates(map[string]interface{}{
			"status":     status,
			"last_error": lastError,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSettlementNotFound
	}
	return nil
}
