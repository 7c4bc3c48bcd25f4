package dto

import "time"

type PlaceBetResponse struct {
	BetID          string `json:"bet_id"`
	Status         string `json:"status"`
	LiabilityCents int64  `json:"liability_cents"`
}

type BetStatusResponse struct {
	BetID     string     `json:"bet_id"`
	Status    string     `json:"status"`
	SettledAt *time.Time `json:"settled_at,omitempty"`
}

type BalanceResponse struct {
	UserID       string `json:"userId"`
	BalanceCents int64  `json:"balance_cents"`
}

type ExposureResponse struct {
	UserID        string `json:"userId"`
	ExposureCents int64  `json:"exposure_cents"`
}

type LedgerEntryResponse struct {
	ID           string    `json:"id"`
	Category     string    `json:"category"`
	CreditCents  int64     `json:"credit_cents"`
	DebitCents   int64     `json:"debit_cents"`
	BalanceCents int64     `json:"balance_cents"`
	RelatedBetID string    `json:"related_bet_id,omitempty"`
	Remark       string    `json:"remark,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type LedgerHistoryResponse struct {
	UserID  string                `json:"userId"`
	Entries []LedgerEntryResponse `json:"entries"`
}
