package bets

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPlaced      Status = "PLACED"
	StatusSettledWon  Status = "SETTLED_WON"
	StatusSettledLost Status = "SETTLED_LOST"
	StatusVoided      Status = "VOIDED"
)

type Side string

const (
	SideBack Side = "BACK"
	SideLay  Side = "LAY"
)

var (
	ErrNotFound = errors.New("bets: not found")

	// ErrTerminalState: aposta já está num estado terminal; a transição
	// PLACED → {SETTLED_WON, SETTLED_LOST, VOIDED} só acontece uma vez.
	ErrTerminalState = errors.New("bets: bet already in terminal state")
)

// Bet é uma aposta persistida. Criada pelo serviço de colocação, mutada só
// pelo motor de liquidação, nunca apagada.
type Bet struct {
	ID             string
	UserID         string
	MarketID       string
	Selection      string
	Side           Side
	StakeCents     int64
	OddValue       float64
	LiabilityCents int64 // responsabilidade potencial derivada de stake/odd/side
	ReservationID  string
	Status         Status
	CreatedAt      time.Time
	SettledAt      *time.Time
}
