package placement

import (
	"context"

	"github.com/radieske/bet-settlement-ledger/internal/bets"
	"github.com/radieske/bet-settlement-ledger/internal/ledger"
	"github.com/radieske/bet-settlement-ledger/internal/market"
)

// MemoryWriter compõe os stores em memória (testes e modo local).
// Mesmo contrato do PostgresWriter: recheca o status do mercado no momento
// da escrita, não só no cheque de entrada do serviço.
type MemoryWriter struct {
	Bets    *bets.Memory
	Ledger  *ledger.Memory
	Markets *market.Memory
}

func NewMemoryWriter(b *bets.Memory, l *ledger.Memory, m *market.Memory) *MemoryWriter {
	return &MemoryWriter{Bets: b, Ledger: l, Markets: m}
}

func (w *MemoryWriter) Create(ctx context.Context, b *bets.Bet) error {
	st, err := w.Markets.StatusOf(ctx, b.MarketID)
	if err != nil || st != market.StatusOpen {
		return ErrMarketClosed
	}
	if err := w.Bets.Create(ctx, b); err != nil {
		return err
	}
	if _, err := w.Ledger.Append(ctx, b.UserID, ledger.CategoryBetPlaced, 0, b.StakeCents, b.ID, "stake committed"); err != nil {
		return err
	}
	_, err = w.Ledger.Append(ctx, ledger.SystemEscrow, ledger.CategoryBetPlaced, b.StakeCents, 0, b.ID, "stake escrow")
	return err
}
