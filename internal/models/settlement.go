package model

import (
	"time"

	"time-exchange.com/time-exchange/internal/constants"
)

// Settlement marks a payment attempt for a task. It is written before the
// transfer is requested and keyed by task id, which doubles as the transfer
// reference.
type Settlement struct {
	TaskID     string                     `gorm:"primaryKey;size:36" json:"task_id"`
	FromUserID string                     `gorm:"size:36;not null" json:"from_user_id"`
	ToUserID   string                     `gorm:"size:36;not null" json:"to_user_id"`
	Amount     int64                      `gorm:"not null" json:"amount"`
	Status     constants.SettlementStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Attempts   int                        `gorm:"not null;default:0" json:"attempts"`
	LastError  string                     `json:"last_error,omitempty"`
	CreatedAt  time.Time                  `json:"created_at"`
	UpdatedAt  time.Time                  `json:"updated_at"`
}
