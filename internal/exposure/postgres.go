package exposure

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Postgres rastreia exposição aberta por usuário em banco.
// A checagem de limite e o incremento de exposição acontecem sob lock
// pessimista na linha de accounts: duas reservas concorrentes do mesmo
// usuário nunca passam juntas por uma checagem que uma sozinha reprovaria.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// Reserve recomputa a exposição total do usuário incluindo a nova
// responsabilidade e só aceita se ficar dentro do limite de crédito.
// Idempotente por bet_id: repetir a reserva da mesma aposta devolve a existente.
func (p *Postgres) Reserve(ctx context.Context, userID, marketID, betID string, amountCents int64) (string, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var limit, exposure int64
	err = tx.QueryRowContext(ctx,
		`SELECT credit_limit_cents, exposure_cents FROM accounts WHERE user_id=$1 FOR UPDATE`,
		userID).Scan(&limit, &exposure)
	if err == sql.ErrNoRows {
		return "", ErrLimitExceeded // sem conta, sem limite
	}
	if err != nil {
		return "", err
	}

	// Idempotência: já existe reserva aberta pra essa aposta?
	var existing string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM exposure_reservations WHERE bet_id=$1 AND status='OPEN'`, betID).Scan(&existing)
	if err == nil {
		return existing, nil
	} else if err != sql.ErrNoRows {
		return "", err
	}

	if exposure+amountCents > limit {
		return "", ErrLimitExceeded
	}

	resID := uuid.NewString()
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO exposure_reservations(id, user_id, market_id, bet_id, amount_cents, status, created_at)
		VALUES($1,$2,$3,$4,$5,'OPEN',$6)`,
		resID, userID, marketID, betID, amountCents, time.Now().UTC()); err != nil {
		return "", err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE accounts SET exposure_cents = exposure_cents + $1, version = version + 1 WHERE user_id=$2`,
		amountCents, userID); err != nil {
		return "", err
	}

	if err = tx.Commit(); err != nil {
		return "", err
	}
	return resID, nil
}

// Release devolve a capacidade reservada. Segunda chamada é no-op.
func (p *Postgres) Release(ctx context.Context, reservationID string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err = ReleaseTx(ctx, tx, reservationID); err != nil {
		return err
	}
	return tx.Commit()
}

// ReleaseTx libera a reserva dentro da transação do chamador (cascata de
// liquidação). Idempotente: reserva já liberada não mexe em nada.
func ReleaseTx(ctx context.Context, tx *sql.Tx, reservationID string) error {
	var userID string
	var amount int64
	var status string
	err := tx.QueryRowContext(ctx,
		`SELECT user_id, amount_cents, status FROM exposure_reservations WHERE id=$1 FOR UPDATE`,
		reservationID).Scan(&userID, &amount, &status)
	if err == sql.ErrNoRows {
		return ErrReservationNotFound
	}
	if err != nil {
		return err
	}

	if status != string(ReservationOpen) {
		return nil // já liberada
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE exposure_reservations SET status='RELEASED', released_at=$1 WHERE id=$2`,
		time.Now().UTC(), reservationID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE accounts SET exposure_cents = exposure_cents - $1, version = version + 1 WHERE user_id=$2`,
		amount, userID)
	return err
}

// ExposureOf devolve a exposição aberta corrente do usuário.
func (p *Postgres) ExposureOf(ctx context.Context, userID string) (int64, error) {
	var exposure int64
	err := p.db.QueryRowContext(ctx, `SELECT exposure_cents FROM accounts WHERE user_id=$1`, userID).Scan(&exposure)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return exposure, nil
}

// SetCreditLimit ajusta o limite de crédito (operação administrativa).
func (p *Postgres) SetCreditLimit(ctx context.Context, userID string, limitCents int64) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE accounts SET credit_limit_cents=$1, version=version+1 WHERE user_id=$2`,
		limitCents, userID)
	return err
}
