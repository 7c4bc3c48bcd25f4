package exposure

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory é o rastreador de exposição em memória (testes e modo local).
// Um mutex único serializa reserva/liberação; preserva exatamente os mesmos
// invariantes da versão Postgres.
type Memory struct {
	mu           sync.Mutex
	limits       map[string]int64
	exposures    map[string]int64
	reservations map[string]*Reservation
	byBet        map[string]string // bet_id -> reservation_id aberta
}

func NewMemory() *Memory {
	return &Memory{
		limits:       make(map[string]int64),
		exposures:    make(map[string]int64),
		reservations: make(map[string]*Reservation),
		byBet:        make(map[string]string),
	}
}

func (m *Memory) SetCreditLimit(ctx context.Context, userID string, limitCents int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limits[userID] = limitCents
	return nil
}

func (m *Memory) Reserve(ctx context.Context, userID, marketID, betID string, amountCents int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byBet[betID]; ok {
		return id, nil
	}

	if m.exposures[userID]+amountCents > m.limits[userID] {
		return "", ErrLimitExceeded
	}

	r := &Reservation{
		ID:          uuid.NewString(),
		UserID:      userID,
		MarketID:    marketID,
		BetID:       betID,
		AmountCents: amountCents,
		Status:      ReservationOpen,
		CreatedAt:   time.Now().UTC(),
	}
	m.reservations[r.ID] = r
	m.byBet[betID] = r.ID
	m.exposures[userID] += amountCents
	return r.ID, nil
}

func (m *Memory) Release(ctx context.Context, reservationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reservations[reservationID]
	if !ok {
		return ErrReservationNotFound
	}
	if r.Status != ReservationOpen {
		return nil // já liberada
	}

	now := time.Now().UTC()
	r.Status = ReservationReleased
	r.ReleasedAt = &now
	delete(m.byBet, r.BetID)
	m.exposures[r.UserID] -= r.AmountCents
	return nil
}

func (m *Memory) ExposureOf(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exposures[userID], nil
}
