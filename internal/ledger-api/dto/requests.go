package dto

type PlaceBetRequest struct {
	UserID     string  `json:"userId"`
	MarketID   string  `json:"market_id"`
	Selection  string  `json:"selection"`
	Side       string  `json:"side,omitempty"` // "BACK" (default) | "LAY"
	StakeCents int64   `json:"stake_cents"`
	OddValue   float64 `json:"odd_value"`
}

type AdjustBalanceRequest struct {
	UserID      string `json:"userId"`
	CreditCents int64  `json:"credit_cents,omitempty"`
	DebitCents  int64  `json:"debit_cents,omitempty"`
	Remark      string `json:"remark,omitempty"`
}
