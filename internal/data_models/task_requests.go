package dto

type CreateTaskRequest struct {
	Title             string `json:"title"`
	Description       string `json:"description"`
	RequestedByUserID string `json:"requested_by_user_id"`
	TimeCreditOffer   int64  `json:"time_credit_offer"`
}

// UpdateTaskRequest carries only the fields to change; absent fields are nil.
type UpdateTaskRequest struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	TimeCreditOffer *int64  `json:"time_credit_offer"`
	UpdatedByUserID string  `json:"updated_by_user_id"`
}

type AcceptTaskRequest struct {
	AcceptorUserID string `json:"acceptor_user_id"`
}

type StartTaskRequest struct {
	StartedByUserID string `json:"started_by_user_id"`
}

type CompleteTaskRequest struct {
	CompletedByUserID string `json:"completed_by_user_id"`
}

type CancelTaskRequest struct {
	CancelledByUserID string `json:"cancelled_by_user_id"`
	Reason            string `json:"reason"`
}
