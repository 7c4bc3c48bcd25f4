package exposure

import (
	"errors"
	"time"
)

var (
	// ErrLimitExceeded: a reserva estouraria o limite de crédito do usuário.
	// Recuperável — devolvido ao chamador, a aposta não é criada.
	ErrLimitExceeded = errors.New("exposure: credit limit exceeded")

	ErrReservationNotFound = errors.New("exposure: reservation not found")
)

type ReservationStatus string

const (
	ReservationOpen     ReservationStatus = "OPEN"
	ReservationReleased ReservationStatus = "RELEASED"
)

// Reservation é uma tomada de capacidade de exposição feita na hora da aposta
// e liberada exatamente uma vez quando a aposta resolve ou é anulada.
// Release é idempotente pra tolerar entrega at-least-once dos resultados.
type Reservation struct {
	ID          string
	UserID      string
	MarketID    string
	BetID       string
	AmountCents int64
	Status      ReservationStatus
	CreatedAt   time.Time
	ReleasedAt  *time.Time
}
