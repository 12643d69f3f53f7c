package model

import "time"

// Transfer is a ledger entry. It is written in the same atomic unit as the
// two balance changes it records, and Reference is unique.
type Transfer struct {
	Reference   string    `gorm:"primaryKey;size:64" json:"reference"`
	FromUserID  string    `gorm:"size:36;not null" json:"from_user_id"`
	ToUserID    string    `gorm:"size:36;not null" json:"to_user_id"`
	Amount      int64     `gorm:"not null" json:"amount"`
	FromBalance int64     `gorm:"not null" json:"from_balance"`
	ToBalance   int64     `gorm:"not null" json:"to_balance"`
	CreatedAt   time.Time `json:"created_at"`
	Replayed    bool      `gorm:"-" json:"replayed"`
}

// SameParties reports whether other describes the same movement of credits.
func (t *Transfer) SameParties(from, to string, amount int64) bool {
	return t.FromUserID == from && t.ToUserID == to && t.Amount == amount
}
