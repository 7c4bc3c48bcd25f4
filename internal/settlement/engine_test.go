package settlement_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-ledger/internal/bets"
	"github.com/radieske/bet-settlement-ledger/internal/exposure"
	"github.com/radieske/bet-settlement-ledger/internal/hierarchy"
	"github.com/radieske/bet-settlement-ledger/internal/ledger"
	"github.com/radieske/bet-settlement-ledger/internal/market"
	"github.com/radieske/bet-settlement-ledger/internal/placement"
	"github.com/radieske/bet-settlement-ledger/internal/settlement"
)

type fixture struct {
	engine  *settlement.Engine
	placer  *placement.Service
	source  *hierarchy.MemorySource
	markets *market.Memory
	tracker *exposure.Memory
	ledger  *ledger.Memory
	bets    *bets.Memory
}

// newFixture monta o caminho completo em memória: agente com 10% sobre
// ganhos, apostador com saldo de 1000.00 e limite folgado, mercado aberto.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	source := hierarchy.NewMemorySource()
	source.Put(hierarchy.Node{
		ID:   "agent-1",
		Code: "AG001",
		Profile: hierarchy.Profile{
			SharePercent: 10,
			Sports:       hierarchy.CommissionTerms{Type: hierarchy.PercentageOfWinnings, RateBps: 1000},
		},
	})
	source.Put(hierarchy.Node{ID: "user-1", Code: "US001", ParentID: "agent-1"})

	markets := market.NewMemory()
	require.NoError(t, markets.Upsert(ctx, "m1", market.StatusOpen))

	tracker := exposure.NewMemory()
	require.NoError(t, tracker.SetCreditLimit(ctx, "user-1", 500000))

	led := ledger.NewMemory()
	_, err := led.Append(ctx, "user-1", ledger.CategoryLimitUpdate, 100000, 0, "", "deposit")
	require.NoError(t, err)

	betStore := bets.NewMemory()

	placer := placement.NewService(zap.NewNop(), markets, tracker, led,
		placement.NewMemoryWriter(betStore, led, markets), nil)

	engine := settlement.NewEngine(zap.NewNop(), betStore,
		hierarchy.NewResolver(source, 32), markets,
		settlement.NewMemoryWriter(betStore, led, tracker), nil)

	return &fixture{
		engine:  engine,
		placer:  placer,
		source:  source,
		markets: markets,
		tracker: tracker,
		ledger:  led,
		bets:    betStore,
	}
}

func (f *fixture) placeBet(t *testing.T, selection string) *bets.Bet {
	t.Helper()
	b, err := f.placer.Place(context.Background(), placement.Command{
		UserID:     "user-1",
		MarketID:   "m1",
		Selection:  selection,
		Side:       bets.SideBack,
		StakeCents: 10000,
		OddValue:   2.0,
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) balance(t *testing.T, userID string) int64 {
	t.Helper()
	bal, err := f.ledger.BalanceOf(context.Background(), userID)
	require.NoError(t, err)
	return bal
}

// requireConservation: fora dos ajustes de limite, cada centavo creditado em
// algum lugar foi debitado de outro.
func requireConservation(t *testing.T, led *ledger.Memory) {
	t.Helper()
	var sum int64
	for _, e := range led.AllEntries() {
		if e.Category == ledger.CategoryLimitUpdate {
			continue
		}
		sum += e.CreditCents - e.DebitCents
	}
	require.EqualValues(t, 0, sum, "movements must conserve money")
}

func TestSettle_WinPaysCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.placeBet(t, "home")
	require.EqualValues(t, 90000, f.balance(t, "user-1"))

	require.NoError(t, f.engine.Settle(ctx, "m1", "home", 1))

	// ganho bruto 200.00, comissão 10.00 pro agente, líquido 190.00:
	// saldo final 1000 − 100 + 190 = 1090.00
	require.EqualValues(t, 109000, f.balance(t, "user-1"))
	// o agente é a raiz da cadeia: financia o ganho de 100.00 e recebe
	// a comissão de 10.00
	require.EqualValues(t, -9000, f.balance(t, "agent-1"))
	require.EqualValues(t, 0, f.balance(t, ledger.SystemEscrow))

	exp, err := f.tracker.ExposureOf(ctx, "user-1")
	require.NoError(t, err)
	require.EqualValues(t, 0, exp)

	got, err := f.bets.Get(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, bets.StatusSettledWon, got.Status)

	st, err := f.markets.StatusOf(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, market.StatusSettled, st)

	requireConservation(t, f.ledger)
}

func TestSettle_LossRetainsStake(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.placeBet(t, "home")
	require.NoError(t, f.engine.Settle(ctx, "m1", "away", 1))

	// stake perdido: saldo 1000 − 100 = 900.00; comissão sobre ganhos não
	// paga nada numa derrota, a raiz (agente) retém o stake inteiro
	require.EqualValues(t, 90000, f.balance(t, "user-1"))
	require.EqualValues(t, 10000, f.balance(t, "agent-1"))
	require.EqualValues(t, 0, f.balance(t, ledger.SystemEscrow))

	got, err := f.bets.Get(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, bets.StatusSettledLost, got.Status)

	requireConservation(t, f.ledger)
}

func TestSettle_DuplicateDeliveryIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.placeBet(t, "home")
	require.NoError(t, f.engine.Settle(ctx, "m1", "home", 1))
	before := f.balance(t, "user-1")
	entries := len(f.ledger.AllEntries())

	// redelivery do mesmo resultado: nenhum lançamento novo
	require.NoError(t, f.engine.Settle(ctx, "m1", "home", 1))
	require.Equal(t, before, f.balance(t, "user-1"))
	require.Len(t, f.ledger.AllEntries(), entries)
}

func TestVoid_RefundsStakeWithoutCommission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.placeBet(t, "home")
	require.NoError(t, f.engine.Void(ctx, "m1", 1))

	// devolução integral, agente não recebe nada
	require.EqualValues(t, 100000, f.balance(t, "user-1"))
	require.EqualValues(t, 0, f.balance(t, "agent-1"))
	require.EqualValues(t, 0, f.balance(t, ledger.SystemEscrow))

	exp, err := f.tracker.ExposureOf(ctx, "user-1")
	require.NoError(t, err)
	require.EqualValues(t, 0, exp)

	got, err := f.bets.Get(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, bets.StatusVoided, got.Status)

	requireConservation(t, f.ledger)
}

func TestSettle_BrokenHierarchyWithholdsMarker(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// apostador órfão: pai não existe no snapshot
	f.source.Put(hierarchy.Node{ID: "user-2", Code: "US002", ParentID: "ghost"})
	require.NoError(t, f.tracker.SetCreditLimit(ctx, "user-2", 500000))
	_, err := f.ledger.Append(ctx, "user-2", ledger.CategoryLimitUpdate, 100000, 0, "", "deposit")
	require.NoError(t, err)

	healthy := f.placeBet(t, "home")
	broken, err := f.placer.Place(ctx, placement.Command{
		UserID:     "user-2",
		MarketID:   "m1",
		Selection:  "home",
		Side:       bets.SideBack,
		StakeCents: 10000,
		OddValue:   2.0,
	})
	require.NoError(t, err)

	err = f.engine.Settle(ctx, "m1", "home", 1)
	require.ErrorIs(t, err, settlement.ErrBetsPending)

	// a aposta saudável liquidou; a quebrada continua aberta
	got, err := f.bets.Get(ctx, healthy.ID)
	require.NoError(t, err)
	require.Equal(t, bets.StatusSettledWon, got.Status)

	got, err = f.bets.Get(ctx, broken.ID)
	require.NoError(t, err)
	require.Equal(t, bets.StatusPlaced, got.Status)

	// conserta a hierarquia e repassa: só a aposta pendente é revista
	f.source.Put(hierarchy.Node{ID: "ghost", Code: "GH001", Profile: hierarchy.Profile{
		SharePercent: 5,
		Sports:       hierarchy.CommissionTerms{Type: hierarchy.PercentageOfWinnings, RateBps: 500},
	}})
	balanceBefore := f.balance(t, "user-1")

	require.NoError(t, f.engine.Settle(ctx, "m1", "home", 2))
	require.Equal(t, balanceBefore, f.balance(t, "user-1"), "settled bet untouched by retry")

	got, err = f.bets.Get(ctx, broken.ID)
	require.NoError(t, err)
	require.Equal(t, bets.StatusSettledWon, got.Status)
	// 5% sobre ganhos de 100.00 → 5.00 pro ancestral, que como raiz
	// também financia o ganho de 100.00
	require.EqualValues(t, 500-10000, f.balance(t, "ghost"))
	require.EqualValues(t, 100000-10000+19500, f.balance(t, "user-2"))

	requireConservation(t, f.ledger)
}

// lateBetLister injeta uma aposta retardatária depois da primeira listagem,
// simulando uma colocação que commitou enquanto a primeira varredura corria.
type lateBetLister struct {
	inner   *bets.Memory
	plant   func()
	planted bool
}

func (l *lateBetLister) ListPlacedByMarket(ctx context.Context, marketID string) ([]bets.Bet, error) {
	out, err := l.inner.ListPlacedByMarket(ctx, marketID)
	if !l.planted {
		l.planted = true
		l.plant()
	}
	return out, err
}

func TestSettle_SweepsLateCommittedBet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	early := f.placeBet(t, "home")

	// a retardatária já tem stake debitado e reserva aberta, como uma
	// colocação real que commitou com leitura de status velha
	resID, err := f.tracker.Reserve(ctx, "user-1", "m1", "late-bet", 10000)
	require.NoError(t, err)
	_, err = f.ledger.Append(ctx, "user-1", ledger.CategoryBetPlaced, 0, 10000, "late-bet", "stake committed")
	require.NoError(t, err)
	_, err = f.ledger.Append(ctx, ledger.SystemEscrow, ledger.CategoryBetPlaced, 10000, 0, "late-bet", "stake escrow")
	require.NoError(t, err)

	lister := &lateBetLister{inner: f.bets, plant: func() {
		require.NoError(t, f.bets.Create(ctx, &bets.Bet{
			ID:             "late-bet",
			UserID:         "user-1",
			MarketID:       "m1",
			Selection:      "home",
			Side:           bets.SideBack,
			StakeCents:     10000,
			OddValue:       2.0,
			LiabilityCents: 10000,
			ReservationID:  resID,
			Status:         bets.StatusPlaced,
		}))
	}}

	engine := settlement.NewEngine(zap.NewNop(), lister,
		hierarchy.NewResolver(f.source, 32), f.markets,
		settlement.NewMemoryWriter(f.bets, f.ledger, f.tracker), nil)

	require.NoError(t, engine.Settle(ctx, "m1", "home", 1))

	// as duas liquidadas antes do marcador; nada fica PLACED pra sempre
	for _, id := range []string{early.ID, "late-bet"} {
		got, err := f.bets.Get(ctx, id)
		require.NoError(t, err)
		require.Equal(t, bets.StatusSettledWon, got.Status, id)
	}

	exp, err := f.tracker.ExposureOf(ctx, "user-1")
	require.NoError(t, err)
	require.EqualValues(t, 0, exp)

	// reentrega continua no-op
	entries := len(f.ledger.AllEntries())
	require.NoError(t, engine.Settle(ctx, "m1", "home", 1))
	require.Len(t, f.ledger.AllEntries(), entries)

	requireConservation(t, f.ledger)
}

func TestSettle_NoAncestorsRoutesToHouse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.source.Put(hierarchy.Node{ID: "loner", Code: "LN001"})
	require.NoError(t, f.tracker.SetCreditLimit(ctx, "loner", 500000))
	_, err := f.ledger.Append(ctx, "loner", ledger.CategoryLimitUpdate, 100000, 0, "", "deposit")
	require.NoError(t, err)

	_, err = f.placer.Place(ctx, placement.Command{
		UserID:     "loner",
		MarketID:   "m1",
		Selection:  "away",
		Side:       bets.SideBack,
		StakeCents: 10000,
		OddValue:   3.0,
	})
	require.NoError(t, err)

	require.NoError(t, f.engine.Settle(ctx, "m1", "away", 1))

	// sem cadeia, a banca financia o ganho de 200.00
	require.EqualValues(t, 100000-10000+30000, f.balance(t, "loner"))
	require.EqualValues(t, -20000, f.balance(t, ledger.SystemHouse))

	requireConservation(t, f.ledger)
}
