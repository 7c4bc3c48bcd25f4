package hierarchy

import (
	"context"
	"fmt"
)

// Source resolve nós por id. Implementado pelo repositório Postgres e,
// nos testes, por um mapa em memória.
type Source interface {
	Node(ctx context.Context, id string) (*Node, error)
}

// Resolver monta a cadeia de ancestrais de um usuário.
// Leitura pura; nenhuma mutação.
type Resolver struct {
	src      Source
	maxDepth int
}

func NewResolver(src Source, maxDepth int) *Resolver {
	if maxDepth <= 0 {
		maxDepth = 32
	}
	return &Resolver{src: src, maxDepth: maxDepth}
}

// ChainOf devolve os ancestrais do usuário, do pai imediato até a raiz, cada
// um com seu snapshot de perfil de comissão. Pai que não resolve, ciclo ou
// profundidade além do limite viram ErrBroken; share delegado inconsistente
// vira ErrCommissionOverflow.
func (r *Resolver) ChainOf(ctx context.Context, userID string) ([]Level, error) {
	node, err := r.src.Node(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: user %s: %v", ErrBroken, userID, err)
	}

	seen := map[string]bool{node.ID: true}
	chain := make([]Level, 0, 4)

	cur := node
	for cur.ParentID != "" {
		if len(chain) >= r.maxDepth {
			return nil, fmt.Errorf("%w: depth bound exceeded at %s", ErrBroken, cur.ID)
		}
		parent, err := r.src.Node(ctx, cur.ParentID)
		if err != nil {
			return nil, fmt.Errorf("%w: parent %s of %s: %v", ErrBroken, cur.ParentID, cur.ID, err)
		}
		if seen[parent.ID] {
			return nil, fmt.Errorf("%w: cycle at %s", ErrBroken, parent.ID)
		}
		seen[parent.ID] = true

		chain = append(chain, Level{UserID: parent.ID, Code: parent.Code, Profile: parent.Profile})
		cur = parent
	}

	if err := ValidateChain(chain); err != nil {
		return nil, err
	}
	return chain, nil
}

// ValidateChain confere os invariantes de share da cadeia (pai imediato →
// raiz): o que um nível retém mais o que delega não pode passar do que o
// nível acima delegou, e o consumo total da cadeia não passa de 100%.
// Checado quando o snapshot de configuração carrega e, defensivamente,
// a cada resolução — nunca pode chegar numa liquidação.
func ValidateChain(chain []Level) error {
	var consumed int64
	for i, lvl := range chain {
		p := lvl.Profile
		if p.SharePercent < 0 || p.AvailableSharePercent < 0 || p.SharePercent+p.AvailableSharePercent > 100 {
			return fmt.Errorf("%w: level %s", ErrCommissionOverflow, lvl.UserID)
		}
		// quem está abaixo na cadeia só pode usar o que o de cima delegou
		if i+1 < len(chain) {
			parent := chain[i+1].Profile
			if p.SharePercent+p.AvailableSharePercent > parent.AvailableSharePercent {
				return fmt.Errorf("%w: level %s exceeds delegation of %s", ErrCommissionOverflow, lvl.UserID, chain[i+1].UserID)
			}
		}
		consumed += p.SharePercent
	}
	if consumed > 100 {
		return fmt.Errorf("%w: chain consumes %d%%", ErrCommissionOverflow, consumed)
	}
	return nil
}
