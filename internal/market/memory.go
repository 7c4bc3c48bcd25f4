package market

import (
	"context"
	"sync"
	"time"
)

// Memory é o store de mercados em memória (testes e modo local).
type Memory struct {
	mu      sync.Mutex
	markets map[string]*Market
}

func NewMemory() *Memory {
	return &Memory{markets: make(map[string]*Market)}
}

func (m *Memory) Upsert(ctx context.Context, marketID string, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.markets[marketID]; ok {
		return nil
	}
	m.markets[marketID] = &Market{ID: marketID, Status: status, UpdatedAt: time.Now().UTC()}
	return nil
}

func (m *Memory) Get(ctx context.Context, marketID string) (*Market, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mk, ok := m.markets[marketID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *mk
	return &cp, nil
}

func (m *Memory) StatusOf(ctx context.Context, marketID string) (Status, error) {
	mk, err := m.Get(ctx, marketID)
	if err != nil {
		return "", err
	}
	return mk.Status, nil
}

func (m *Memory) SetStatus(ctx context.Context, marketID string, to Status, winningSelection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mk, ok := m.markets[marketID]
	if !ok {
		return ErrNotFound
	}
	if !CanTransition(mk.Status, to) {
		return transitionErr(marketID, mk.Status, to)
	}
	mk.Status = to
	if winningSelection != "" {
		mk.WinningSelection = winningSelection
	}
	mk.UpdatedAt = time.Now().UTC()
	return nil
}
