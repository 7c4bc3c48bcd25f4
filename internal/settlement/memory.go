package settlement

import (
	"context"
	"sync"
	"time"

	"github.com/radieske/bet-settlement-ledger/internal/bets"
	"github.com/radieske/bet-settlement-ledger/internal/commission"
	"github.com/radieske/bet-settlement-ledger/internal/exposure"
	"github.com/radieske/bet-settlement-ledger/internal/ledger"
)

// MemoryWriter compõe os stores em memória (testes e modo local).
// Mesmo contrato do PostgresWriter, sem transação de banco: a transição
// terminal da aposta vem primeiro e faz as vezes de guarda.
type MemoryWriter struct {
	Bets     *bets.Memory
	Ledger   *ledger.Memory
	Exposure *exposure.Memory

	mu      sync.Mutex
	applied map[string]int64 // market_id -> generation
}

func NewMemoryWriter(b *bets.Memory, l *ledger.Memory, e *exposure.Memory) *MemoryWriter {
	return &MemoryWriter{Bets: b, Ledger: l, Exposure: e, applied: make(map[string]int64)}
}

func (w *MemoryWriter) AlreadyApplied(ctx context.Context, marketID string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.applied[marketID]
	return ok, nil
}

func (w *MemoryWriter) ApplyCascade(ctx context.Context, b bets.Bet, status bets.Status, movs []commission.Movement) error {
	if err := w.Bets.Settle(ctx, b.ID, status, time.Now().UTC()); err != nil {
		return err
	}
	for _, m := range movs {
		if _, err := w.Ledger.Append(ctx, m.UserID, m.Category, m.CreditCents, m.DebitCents, b.ID, m.Remark); err != nil {
			return err
		}
	}
	return w.Exposure.Release(ctx, b.ReservationID)
}

func (w *MemoryWriter) MarkApplied(ctx context.Context, marketID string, generation int64, winningSelection string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.applied[marketID]; !ok {
		w.applied[marketID] = generation
	}
	return nil
}
