package settlement

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/radieske/bet-settlement-ledger/internal/bets"
	"github.com/radieske/bet-settlement-ledger/internal/commission"
	"github.com/radieske/bet-settlement-ledger/internal/exposure"
	"github.com/radieske/bet-settlement-ledger/internal/ledger"
)

// PostgresWriter grava a cascata de uma aposta numa única transação.
// Os lançamentos são aplicados em ordem de user_id: os locks de conta saem
// sempre na mesma ordem, então duas cascatas concorrentes não se enroscam.
type PostgresWriter struct{ db *sql.DB }

func NewPostgresWriter(db *sql.DB) *PostgresWriter { return &PostgresWriter{db: db} }

// AlreadyApplied consulta o marcador durável de liquidação do mercado.
func (w *PostgresWriter) AlreadyApplied(ctx context.Context, marketID string) (bool, error) {
	var one int
	err := w.db.QueryRowContext(ctx,
		`SELECT 1 FROM market_settlements WHERE market_id=$1`, marketID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ApplyCascade grava lançamentos, transição terminal da aposta e liberação
// da reserva; tudo-ou-nada.
func (w *PostgresWriter) ApplyCascade(ctx context.Context, b bets.Bet, status bets.Status, movs []commission.Movement) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	// transição primeiro: se a aposta já é terminal, nada mais é tocado
	if err = bets.SettleTx(ctx, tx, b.ID, status, now); err != nil {
		return err
	}

	ordered := make([]commission.Movement, len(movs))
	copy(ordered, movs)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].UserID < ordered[j].UserID })

	for _, m := range ordered {
		if _, err = ledger.AppendTx(ctx, tx, m.UserID, m.Category, m.CreditCents, m.DebitCents, b.ID, m.Remark); err != nil {
			return err
		}
	}

	if err = exposure.ReleaseTx(ctx, tx, b.ReservationID); err != nil {
		return err
	}

	return tx.Commit()
}

// MarkApplied grava o marcador idempotente do mercado.
func (w *PostgresWriter) MarkApplied(ctx context.Context, marketID string, generation int64, winningSelection string) error {
	_, err := w.db.ExecContext(ctx, `
		INSERT INTO market_settlements(market_id, generation, winning_selection, applied_at)
		VALUES($1,$2,$3,$4)
		ON CONFLICT (market_id) DO NOTHING`,
		marketID, generation, winningSelection, time.Now().UTC())
	return err
}
