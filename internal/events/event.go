package events

import "time"

// TaskEvent describes one successful lifecycle transition.
type TaskEvent struct {
	TaskID          string    `json:"taskId"`
	UserID          string    `json:"userId"`
	Operation       string    `json:"operation"`
	PreviousState   string    `json:"previousState,omitempty"`
	State           string    `json:"state"`
	Reason          string    `json:"reason,omitempty"`
	TimeCreditOffer int64     `json:"timeCreditOffer"`
	Timestamp       time.Time `json:"timestamp"`
}
