package events

type BetPlaced struct {
	BetID          string  `json:"bet_id"`
	UserID         string  `json:"user_id"`
	MarketID       string  `json:"market_id"`
	Selection      string  `json:"selection"`
	Side           string  `json:"side"` // "BACK" | "LAY"
	StakeCents     int64   `json:"stake_cents"`
	OddValue       float64 `json:"odd_value"`
	LiabilityCents int64   `json:"liability_cents"`
	ReservationID  string  `json:"reservation_id"`
	TsUnixMs       int64   `json:"ts_unix_ms"`
}
