package model

import (
	"time"

	"time-exchange.com/time-exchange/internal/constants"
)

type Task struct {
	ID                string              `gorm:"primaryKey;size:36" json:"id"`
	Title             string              `gorm:"not null" json:"title"`
	Description       string              `gorm:"not null" json:"description"`
	RequestedByUserID string              `gorm:"size:36;not null;index" json:"requested_by_user_id"`
	AcceptedByUserID  *string             `gorm:"size:36;index" json:"accepted_by_user_id"`
	TimeCreditOffer   int64               `gorm:"not null" json:"time_credit_offer"`
	State             constants.TaskState `gorm:"type:varchar(20);not null;index" json:"state"`
	CancelReason      *string             `json:"cancel_reason,omitempty"`
	Version           uint                `gorm:"not null;default:1" json:"version"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `gorm:"autoUpdateTime:false" json:"updated_at"`
}

// AcceptedBy returns the acceptor id, or "" while the task is unclaimed.
func (t *Task) AcceptedBy() string {
	if t.AcceptedByUserID == nil {
		return ""
	}
	return *t.AcceptedByUserID
}

type TaskFilter struct {
	State             *constants.TaskState
	RequestedByUserID string
	AcceptedByUserID  string
}

func (f TaskFilter) Matches(t *Task) bool {
	if f.State != nil && t.State != *f.State {
		return false
	}
	if f.RequestedByUserID != "" && t.RequestedByUserID != f.RequestedByUserID {
		return false
	}
	if f.AcceptedByUserID != "" && t.AcceptedBy() != f.AcceptedByUserID {
		return false
	}
	return true
}
