package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory é o ledger em memória usado nos testes e no modo local.
// Mantém as mesmas garantias do Postgres: append serializado por usuário e
// snapshot de saldo calculado a partir do último lançamento.
type Memory struct {
	mu       sync.Mutex
	entries  map[string][]Entry // por usuário, em ordem de criação
	balances map[string]int64
}

func NewMemory() *Memory {
	return &Memory{
		entries:  make(map[string][]Entry),
		balances: make(map[string]int64),
	}
}

func (m *Memory) Append(ctx context.Context, userID string, cat Category, creditCents, debitCents int64, relatedBetID, remark string) (Entry, error) {
	if err := validateAmounts(creditCents, debitCents); err != nil {
		return Entry{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	newBalance := m.balances[userID] + creditCents - debitCents
	e := Entry{
		ID:           uuid.NewString(),
		UserID:       userID,
		Category:     cat,
		CreditCents:  creditCents,
		DebitCents:   debitCents,
		BalanceCents: newBalance,
		RelatedBetID: relatedBetID,
		Remark:       remark,
		CreatedAt:    time.Now().UTC(),
	}

	m.entries[userID] = append(m.entries[userID], e)
	m.balances[userID] = newBalance
	return e, nil
}

func (m *Memory) BalanceOf(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[userID], nil
}

func (m *Memory) History(ctx context.Context, userID string, r Range) (Cursor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Entry
	for _, e := range m.entries[userID] {
		if !r.From.IsZero() && e.CreatedAt.Before(r.From) {
			continue
		}
		if !r.To.IsZero() && !e.CreatedAt.Before(r.To) {
			continue
		}
		out = append(out, e)
		if r.Limit > 0 && len(out) == r.Limit {
			break
		}
	}
	return &sliceCursor{entries: out, pos: -1}, nil
}

// AllEntries devolve uma cópia dos lançamentos de todos os usuários.
// Útil pra conferir a soma-zero de uma cascata inteira.
func (m *Memory) AllEntries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for _, es := range m.entries {
		out = append(out, es...)
	}
	return out
}

// Entries devolve uma cópia de todos os lançamentos do usuário (ordem de criação).
func (m *Memory) Entries(userID string) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries[userID]))
	copy(out, m.entries[userID])
	return out
}

type sliceCursor struct {
	entries []Entry
	pos     int
}

func (c *sliceCursor) Next() bool {
	c.pos++
	return c.pos < len(c.entries)
}

func (c *sliceCursor) Entry() Entry { return c.entries[c.pos] }
func (c *sliceCursor) Err() error   { return nil }
func (c *sliceCursor) Close() error { return nil }
