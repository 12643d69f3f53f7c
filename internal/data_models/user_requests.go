package dto

type CreateUserRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Description string `json:"description"`
	TimeCredits int64  `json:"time_credits"`
}

type TransferRequest struct {
	FromUserID string `json:"from_user_id"`
	ToUserID   string `json:"to_user_id"`
	Amount     int64  `json:"amount"`
	Reference  string `json:"reference"`
}
