package constants

type SettlementStatus string

const (
	SettlementPending  SettlementStatus = "pending"
	SettlementSettled  SettlementStatus = "settled"
	SettlementRejected SettlementStatus = "rejected"
)
