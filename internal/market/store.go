package market

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store mantém o estado dos mercados em Postgres com cache write-through de
// status em Redis. A escrita de suspensão atualiza o cache antes de retornar,
// então uma leitura de status na colocação nunca é mais velha que a última
// suspensão gravada.
type Store struct {
	db  *sql.DB
	rdb *redis.Client // opcional; nil desliga o cache
}

func NewStore(db *sql.DB, rdb *redis.Client) *Store {
	return &Store{db: db, rdb: rdb}
}

func statusKey(marketID string) string { return fmt.Sprintf("market_status:%s", marketID) }

// Get devolve o mercado direto do banco (fonte de verdade).
func (s *Store) Get(ctx context.Context, marketID string) (*Market, error) {
	var m Market
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, winning_selection, updated_at FROM markets WHERE id=$1`,
		marketID).Scan(&m.ID, &status, &m.WinningSelection, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	m.Status = Status(status)
	return &m, nil
}

// StatusOf lê o status pelo cache; em miss cai pro banco e repõe a chave.
func (s *Store) StatusOf(ctx context.Context, marketID string) (Status, error) {
	if s.rdb != nil {
		if v, err := s.rdb.Get(ctx, statusKey(marketID)).Result(); err == nil && v != "" {
			return Status(v), nil
		}
	}

	m, err := s.Get(ctx, marketID)
	if err != nil {
		return "", err
	}
	if s.rdb != nil {
		_ = s.rdb.Set(ctx, statusKey(marketID), string(m.Status), 0).Err()
	}
	return m.Status, nil
}

// Upsert registra um mercado novo (ou reabre o cadastro vindo do provedor).
func (s *Store) Upsert(ctx context.Context, marketID string, status Status) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO markets(id, status, updated_at) VALUES($1,$2,$3)
		ON CONFLICT (id) DO NOTHING`,
		marketID, string(status), time.Now().UTC())
	if err != nil {
		return err
	}
	return s.writeThrough(ctx, marketID, status)
}

// SetStatus aplica uma transição da máquina de estados e faz write-through
// no cache. Transição inválida (estado terminal) é erro.
func (s *Store) SetStatus(ctx context.Context, marketID string, to Status, winningSelection string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var cur string
	err = tx.QueryRowContext(ctx, `SELECT status FROM markets WHERE id=$1 FOR UPDATE`, marketID).Scan(&cur)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if !CanTransition(Status(cur), to) {
		return transitionErr(marketID, Status(cur), to)
	}

	// winning_selection é NOT NULL DEFAULT '': transições sem vencedor
	// (suspensão, reabertura, void) passam a string vazia, nunca NULL, e
	// não apagam um vencedor já gravado
	if _, err = tx.ExecContext(ctx, `
		UPDATE markets
		SET status=$1, winning_selection=COALESCE(NULLIF($2,''), winning_selection), updated_at=$3
		WHERE id=$4`,
		string(to), winningSelection, time.Now().UTC(), marketID); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return err
	}
	return s.writeThrough(ctx, marketID, to)
}

func (s *Store) writeThrough(ctx context.Context, marketID string, status Status) error {
	if s.rdb == nil {
		return nil
	}
	return s.rdb.Set(ctx, statusKey(marketID), string(status), 0).Err()
}
