package hierarchy

import (
	"context"
	"database/sql"
	"fmt"
)

// Postgres lê os nós da hierarquia da tabela accounts.
// A administração da árvore é externa; aqui é somente leitura.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) Node(ctx context.Context, id string) (*Node, error) {
	var n Node
	var parent sql.NullString
	var sportsType, casinoType string
	err := p.db.QueryRowContext(ctx, `
		SELECT user_id, COALESCE(user_code,''), parent_id,
		       share_percent, available_share_percent, casino_share_percent,
		       sports_commission_type, sports_commission_bps,
		       casino_commission_type, casino_commission_bps
		FROM accounts WHERE user_id=$1`, id).Scan(
		&n.ID, &n.Code, &parent,
		&n.Profile.SharePercent, &n.Profile.AvailableSharePercent, &n.Profile.CasinoSharePercent,
		&sportsType, &n.Profile.Sports.RateBps,
		&casinoType, &n.Profile.Casino.RateBps,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNodeNotFound
	}
	if err != nil {
		return nil, err
	}

	if parent.Valid {
		n.ParentID = parent.String
	}

	var ok bool
	if n.Profile.Sports.Type, ok = ParseCommissionType(sportsType); !ok {
		return nil, fmt.Errorf("hierarchy: node %s has unknown sports commission type %q", id, sportsType)
	}
	if n.Profile.Casino.Type, ok = ParseCommissionType(casinoType); !ok {
		return nil, fmt.Errorf("hierarchy: node %s has unknown casino commission type %q", id, casinoType)
	}

	return &n, nil
}
