package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Postgres implementa o ledger append-only em banco.
// A serialização por usuário vem do lock pessimista na linha de accounts:
// dois appends concorrentes pro mesmo usuário nunca leem o mesmo saldo.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// Append grava um lançamento e devolve o snapshot de saldo resultante.
// Abre transação própria; pra cascatas use AppendTx com a transação do chamador.
func (p *Postgres) Append(ctx context.Context, userID string, cat Category, creditCents, debitCents int64, relatedBetID, remark string) (Entry, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, err
	}
	defer tx.Rollback()

	e, err := AppendTx(ctx, tx, userID, cat, creditCents, debitCents, relatedBetID, remark)
	if err != nil {
		return Entry{}, err
	}

	if err = tx.Commit(); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// AppendTx grava um lançamento dentro da transação do chamador.
// Usado pelo escritor de cascata da liquidação pra manter tudo-ou-nada.
func AppendTx(ctx context.Context, tx *sql.Tx, userID string, cat Category, creditCents, debitCents int64, relatedBetID, remark string) (Entry, error) {
	if err := validateAmounts(creditCents, debitCents); err != nil {
		return Entry{}, err
	}

	// Lock na linha da conta: é o ponto único de serialização por usuário
	var balance int64
	err := tx.QueryRowContext(ctx, `SELECT balance_cents FROM accounts WHERE user_id=$1 FOR UPDATE`, userID).Scan(&balance)
	if err == sql.ErrNoRows {
		// contas de sistema e usuários novos nascem zeradas
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO accounts(user_id, balance_cents, credit_limit_cents, exposure_cents, version) VALUES($1,0,0,0,1)`,
			userID); err != nil {
			return Entry{}, err
		}
		balance = 0
	} else if err != nil {
		return Entry{}, err
	}

	newBalance := balance + creditCents - debitCents

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

	var betRef any
	if relatedBetID != "" {
		betRef = relatedBetID
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_entries(id, user_id, category, credit_cents, debit_cents, balance_cents, related_bet_id, remark, created_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		e.ID, e.UserID, string(e.Category), e.CreditCents, e.DebitCents, e.BalanceCents, betRef, e.Remark, e.CreatedAt); err != nil {
		return Entry{}, err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE accounts SET balance_cents=$1, version=version+1 WHERE user_id=$2`,
		newBalance, userID); err != nil {
		return Entry{}, err
	}

	return e, nil
}

// BalanceOf devolve o snapshot mais recente, ou zero se a conta não existe.
func (p *Postgres) BalanceOf(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := p.db.QueryRowContext(ctx, `SELECT balance_cents FROM accounts WHERE user_id=$1`, userID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// History devolve um cursor sobre os lançamentos do usuário em ordem de
// criação ascendente, aplicando o filtro de período/limite.
func (p *Postgres) History(ctx context.Context, userID string, r Range) (Cursor, error) {
	q := `SELECT id, user_id, category, credit_cents, debit_cents, balance_cents, COALESCE(related_bet_id,''), remark, created_at
		FROM ledger_entries WHERE user_id=$1`
	args := []any{userID}

	if !r.From.IsZero() {
		args = append(args, r.From)
		q += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if !r.To.IsZero() {
		args = append(args, r.To)
		q += fmt.Sprintf(" AND created_at < $%d", len(args))
	}
	q += " ORDER BY created_at ASC, id ASC"
	if r.Limit > 0 {
		args = append(args, r.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return &rowsCursor{rows: rows}, nil
}

type rowsCursor struct {
	rows *sql.Rows
	cur  Entry
	err  error
}

func (c *rowsCursor) Next() bool {
	if !c.rows.Next() {
		return false
	}
	var e Entry
	var cat string
	if err := c.rows.Scan(&e.ID, &e.UserID, &cat, &e.CreditCents, &e.DebitCents, &e.BalanceCents, &e.RelatedBetID, &e.Remark, &e.CreatedAt); err != nil {
		c.err = err
		return false
	}
	e.Category = Category(cat)
	c.cur = e
	return true
}

func (c *rowsCursor) Entry() Entry { return c.cur }

func (c *rowsCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

func (c *rowsCursor) Close() error { return c.rows.Close() }
