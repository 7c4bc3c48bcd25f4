package commission

import (
	"errors"
	"fmt"

	"github.com/radieske/bet-settlement-ledger/internal/hierarchy"
	"github.com/radieske/bet-settlement-ledger/internal/ledger"
	"github.com/radieske/bet-settlement-ledger/internal/money"
)

// ErrNotBalanced: a distribuição calculada violaria a conservação de
// dinheiro. Nunca deve acontecer por construção; se acontecer, a cascata
// inteira da aposta é abortada antes de qualquer escrita.
var ErrNotBalanced = errors.New("commission: distribution is not zero-sum")

// Input descreve uma aposta resolvida pronta pra distribuição.
// OutcomeCents é o ganho líquido (stake × (odd−1), já arredondado) quando a
// aposta venceu; zero quando perdeu.
type Input struct {
	BetID        string
	OwnerID      string
	Category     hierarchy.BetCategory
	StakeCents   int64
	OutcomeCents int64
	Won          bool
}

// Movement é um lançamento a gravar no ledger: exatamente um lado não-zero.
type Movement struct {
	UserID      string
	Category    ledger.Category
	CreditCents int64
	DebitCents  int64
	Remark      string
}

// Distribute é função pura: dado o desfecho de uma aposta e a cadeia de
// ancestrais (pai imediato → raiz), calcula a cascata completa de lançamentos.
//
// Regras por nível, pelo pool da categoria da aposta:
//   - NoCommission: 0
//   - PercentageOfStake: stake × taxa
//   - PercentageOfWinnings: max(ganho, 0) × taxa
//
// Arredondamento half-up no centavo; se a soma das comissões estourar o pool
// disponível, o excesso é absorvido a partir do nível raiz pra preservar a
// soma-zero exata. O lado da banca (funding do payout na vitória, retenção do
// stake na derrota) cai no nível raiz da cadeia, ou na conta de sistema
// quando o apostador não tem agente nenhum.
func Distribute(in Input, chain []hierarchy.Level) ([]Movement, error) {
	if in.StakeCents <= 0 {
		return nil, fmt.Errorf("commission: bet %s has non-positive stake %d", in.BetID, in.StakeCents)
	}
	outcome := in.OutcomeCents
	if outcome < 0 {
		outcome = 0
	}

	// pool de onde a comissão pode sair
	pool := in.StakeCents
	if in.Won {
		pool = outcome
	}

	cuts := levelCuts(in, chain, pool)

	houseID := ledger.SystemHouse
	if len(chain) > 0 {
		houseID = chain[len(chain)-1].UserID
	}

	var total int64
	for _, c := range cuts {
		total += c
	}

	var movs []Movement
	add := func(m Movement) {
		if m.CreditCents == 0 && m.DebitCents == 0 {
			return
		}
		movs = append(movs, m)
	}

	if in.Won {
		gross := in.StakeCents + outcome
		// principal do apostador: stake de volta + ganho menos comissões
		add(Movement{UserID: in.OwnerID, Category: ledger.CategoryBetWon, CreditCents: gross - total, Remark: "payout"})
		for i, lvl := range chain {
			add(Movement{UserID: lvl.UserID, Category: ledger.CategoryCommission, CreditCents: cuts[i], Remark: "commission bet " + in.BetID})
		}
		add(Movement{UserID: ledger.SystemEscrow, Category: ledger.CategoryBetWon, DebitCents: in.StakeCents, Remark: "stake escrow release"})
		add(Movement{UserID: houseID, Category: ledger.CategoryBetWon, DebitCents: outcome, Remark: "payout funding"})
	} else {
		add(Movement{UserID: ledger.SystemEscrow, Category: ledger.CategoryBetLost, DebitCents: in.StakeCents, Remark: "stake escrow release"})
		for i, lvl := range chain {
			add(Movement{UserID: lvl.UserID, Category: ledger.CategoryCommission, CreditCents: cuts[i], Remark: "commission bet " + in.BetID})
		}
		add(Movement{UserID: houseID, Category: ledger.CategoryBetLost, CreditCents: in.StakeCents - total, Remark: "stake retained"})
	}

	// pós-condição: a cascata fecha exatamente em zero
	var credits, debits int64
	for _, m := range movs {
		credits += m.CreditCents
		debits += m.DebitCents
	}
	if credits != debits {
		return nil, fmt.Errorf("%w: bet %s credits=%d debits=%d", ErrNotBalanced, in.BetID, credits, debits)
	}

	return movs, nil
}

// levelCuts calcula a comissão de cada nível e absorve qualquer excesso no
// nível mais próximo da raiz.
func levelCuts(in Input, chain []hierarchy.Level, pool int64) []int64 {
	cuts := make([]int64, len(chain))
	outcome := in.OutcomeCents
	if outcome < 0 {
		outcome = 0
	}

	var total int64
	for i, lvl := range chain {
		terms := lvl.Profile.Terms(in.Category)
		var c int64
		switch terms.Type {
		case hierarchy.NoCommission:
			c = 0
		case hierarchy.PercentageOfStake:
			c = money.ApplyBps(in.StakeCents, terms.RateBps)
		case hierarchy.PercentageOfWinnings:
			c = money.ApplyBps(outcome, terms.RateBps)
		}
		cuts[i] = c
		total += c
	}

	// o pool limita o que a cadeia pode extrair; reduz da raiz pra baixo
	for i := len(cuts) - 1; i >= 0 && total > pool; i-- {
		over := total - pool
		if cuts[i] >= over {
			cuts[i] -= over
			total = pool
		} else {
			total -= cuts[i]
			cuts[i] = 0
		}
	}

	return cuts
}
