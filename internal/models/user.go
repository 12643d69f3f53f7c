package model

import "time"

type User struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Email       string    `gorm:"not null" json:"email"`
	Description string    `json:"description"`
	TimeCredits int64     `gorm:"not null;default:0" json:"time_credits"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
