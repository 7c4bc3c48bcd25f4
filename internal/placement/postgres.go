package placement

import (
	"context"
	"database/sql"

	"github.com/radieske/bet-settlement-ledger/internal/bets"
	"github.com/radieske/bet-settlement-ledger/internal/ledger"
	"github.com/radieske/bet-settlement-ledger/internal/market"
)

// PostgresWriter grava a aposta e os lançamentos de colocação numa única
// transação: débito do stake no apostador e espelho de crédito no escrow.
// Se qualquer parte falhar, nada é persistido e o serviço compensa a reserva.
type PostgresWriter struct{ db *sql.DB }

func NewPostgresWriter(db *sql.DB) *PostgresWriter { return &PostgresWriter{db: db} }

func (w *PostgresWriter) Create(ctx context.Context, b *bets.Bet) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// recheca o status dentro da transação: a leitura do serviço pode ter
	// ficado velha entre o cheque e o commit. O FOR SHARE segura a transição
	// de liquidação (FOR UPDATE) até esta aposta commitar, então toda aposta
	// aceita entra ou antes da varredura de liquidação, ou em nenhum momento.
	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM markets WHERE id=$1 FOR SHARE`, b.MarketID).Scan(&status)
	if err == sql.ErrNoRows {
		return ErrMarketClosed
	}
	if err != nil {
		return err
	}
	if market.Status(status) != market.StatusOpen {
		return ErrMarketClosed
	}

	if err = bets.CreateTx(ctx, tx, b); err != nil {
		return err
	}

	// stake comprometido: sai do apostador, entra no escrow
	if _, err = ledger.AppendTx(ctx, tx, b.UserID, ledger.CategoryBetPlaced, 0, b.StakeCents, b.ID, "stake committed"); err != nil {
		return err
	}
	if _, err = ledger.AppendTx(ctx, tx, ledger.SystemEscrow, ledger.CategoryBetPlaced, b.StakeCents, 0, b.ID, "stake escrow"); err != nil {
		return err
	}

	return tx.Commit()
}
