package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "time-exchange.com/time-exchange/internal/errors"
	model "time-exchange.com/time-exchange/internal/models"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) CreateTask(ctx context.Context, task *model.Task) error {
	if task.Version == 0 {
		task.Version = 1
	}
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *TaskRepository) FindByID(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	query := r.db.WithContext(ctx)

	if filter.State != nil {
		query = query.Where("state = ?", *filter.State)
	}
	if filter.RequestedByUserID != "" {
		query = query.Where("requested_by_user_id = ?", filter.RequestedByUserID)
	}
	if filter.AcceptedByUserID != "" {
		query = query.Where("accepted_by_user_id = ?", filter.AcceptedByUserID)
	}

	var tasks []model.Task
	err := query.Order("created_at desc").Find(&tasks).Error
	return tasks, err
}

func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND version = ?", task.ID, task.Version).
		Updates(map[string]interface{}{
			"title":               task.Title,
			"description":         task.Description,
			"accepted_by_user_id": task.AcceptedByUserID,
			"time_credit_offer":   task.TimeCreditOffer,
			"state":               task.State,
			"cancel_reason":       task.CancelReason,
			"updated_at":          task.UpdatedAt,
			"version":             gorm.Expr("version + 1"),
		})

	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return apperrors.ErrOptimisticLock
	}

	task.Version++
	return nil
}

func (r *TaskRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
