package bets

import (
	"context"
	"sync"
	"time"
)

// Memory guarda apostas em memória (testes e modo local).
type Memory struct {
	mu   sync.Mutex
	byID map[string]*Bet
}

func NewMemory() *Memory {
	return &Memory{byID: make(map[string]*Bet)}
}

func (m *Memory) Create(ctx context.Context, b *Bet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.byID[b.ID] = &cp
	return nil
}

func (m *Memory) Get(ctx context.Context, betID string) (*Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.byID[betID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *Memory) ListPlacedByMarket(ctx context.Context, marketID string) ([]Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Bet
	for _, b := range m.byID {
		if b.MarketID == marketID && b.Status == StatusPlaced {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *Memory) Settle(ctx context.Context, betID string, status Status, settledAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.byID[betID]
	if !ok {
		return ErrNotFound
	}
	if b.Status != StatusPlaced {
		return ErrTerminalState
	}
	b.Status = status
	b.SettledAt = &settledAt
	return nil
}
