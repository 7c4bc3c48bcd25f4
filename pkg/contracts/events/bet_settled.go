package events

import "time"

// Evento emitido pelo settlement-worker após liquidar uma aposta.
type BetSettled struct {
	BetID            string    `json:"bet_id"`
	UserID           string    `json:"user_id"`
	MarketID         string    `json:"market_id"`
	Status           string    `json:"status"`           // "SETTLED_WON" | "SETTLED_LOST" | "VOIDED"
	NetCents         int64     `json:"net_cents"`        // variação líquida de saldo do apostador
	CommissionCents  int64     `json:"commission_cents"` // total pago à cadeia de agentes
	WinningSelection string    `json:"winning_selection,omitempty"`
	Ts               time.Time `json:"ts"`
}
