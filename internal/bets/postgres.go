package bets

import (
	"context"
	"database/sql"
	"time"
)

// Postgres implementa a persistência de apostas.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// CreateTx insere a aposta com status PLACED dentro da transação do chamador.
func CreateTx(ctx context.Context, tx *sql.Tx, b *Bet) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO bets (id, user_id, market_id, selection, side, stake_cents, odd_value, liability_cents, reservation_id, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,'PLACED',$10)`,
		b.ID, b.UserID, b.MarketID, b.Selection, string(b.Side), b.StakeCents, b.OddValue, b.LiabilityCents, b.ReservationID, b.CreatedAt,
	)
	return err
}

// Get devolve a aposta pelo id.
func (p *Postgres) Get(ctx context.Context, betID string) (*Bet, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, user_id, market_id, selection, side, stake_cents, odd_value, liability_cents, reservation_id, status, created_at, settled_at
		FROM bets WHERE id=$1`, betID)
	return scanBet(row)
}

// ListPlacedByMarket devolve as apostas ainda abertas de um mercado.
// A liquidação itera sobre elas; apostas já terminais ficam de fora, o que
// torna uma repassada do mesmo mercado naturalmente idempotente.
func (p *Postgres) ListPlacedByMarket(ctx context.Context, marketID string) ([]Bet, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, market_id, selection, side, stake_cents, odd_value, liability_cents, reservation_id, status, created_at, settled_at
		FROM bets WHERE market_id=$1 AND status='PLACED' ORDER BY created_at ASC`, marketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// SettleTx grava a transição terminal dentro da transação da cascata.
// O predicado status='PLACED' garante que estado terminal nunca re-transiciona.
func SettleTx(ctx context.Context, tx *sql.Tx, betID string, status Status, settledAt time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE bets SET status=$1, settled_at=$2 WHERE id=$3 AND status='PLACED'`,
		string(status), settledAt, betID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTerminalState
	}
	return nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanBet(row rowScanner) (*Bet, error) {
	var b Bet
	var side, status string
	var settled sql.NullTime
	err := row.Scan(&b.ID, &b.UserID, &b.MarketID, &b.Selection, &side, &b.StakeCents, &b.OddValue, &b.LiabilityCents, &b.ReservationID, &status, &b.CreatedAt, &settled)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	b.Side = Side(side)
	b.Status = Status(status)
	if settled.Valid {
		t := settled.Time
		b.SettledAt = &t
	}
	return &b, nil
}
