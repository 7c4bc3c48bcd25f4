package placement_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-ledger/internal/bets"
	"github.com/radieske/bet-settlement-ledger/internal/exposure"
	"github.com/radieske/bet-settlement-ledger/internal/ledger"
	"github.com/radieske/bet-settlement-ledger/internal/market"
	"github.com/radieske/bet-settlement-ledger/internal/placement"
)

type fixture struct {
	svc     *placement.Service
	markets *market.Memory
	tracker *exposure.Memory
	ledger  *ledger.Memory
	bets    *bets.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	markets := market.NewMemory()
	require.NoError(t, markets.Upsert(ctx, "m1", market.StatusOpen))

	tracker := exposure.NewMemory()
	require.NoError(t, tracker.SetCreditLimit(ctx, "u1", 100000))

	led := ledger.NewMemory()
	_, err := led.Append(ctx, "u1", ledger.CategoryLimitUpdate, 100000, 0, "", "deposit")
	require.NoError(t, err)

	betStore := bets.NewMemory()

	svc := placement.NewService(zap.NewNop(), markets, tracker, led,
		placement.NewMemoryWriter(betStore, led, markets), nil)

	return &fixture{svc: svc, markets: markets, tracker: tracker, ledger: led, bets: betStore}
}

func place(userID, marketID string, stake int64, odd float64) placement.Command {
	return placement.Command{
		UserID:     userID,
		MarketID:   marketID,
		Selection:  "home",
		Side:       bets.SideBack,
		StakeCents: stake,
		OddValue:   odd,
	}
}

func TestPlace_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Place(ctx, place("u1", "m1", 10000, 2.0))
	require.NoError(t, err)
	require.Equal(t, bets.StatusPlaced, b.Status)
	require.EqualValues(t, 10000, b.LiabilityCents) // back: stake × (odd−1)
	require.NotEmpty(t, b.ReservationID)

	// stake debitado do apostador e espelhado no escrow
	bal, err := f.ledger.BalanceOf(ctx, "u1")
	require.NoError(t, err)
	require.EqualValues(t, 90000, bal)

	escrow, err := f.ledger.BalanceOf(ctx, ledger.SystemEscrow)
	require.NoError(t, err)
	require.EqualValues(t, 10000, escrow)

	exp, err := f.tracker.ExposureOf(ctx, "u1")
	require.NoError(t, err)
	require.EqualValues(t, 10000, exp)

	got, err := f.bets.Get(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, bets.StatusPlaced, got.Status)
}

func TestPlace_LaySideRisksStake(t *testing.T) {
	f := newFixture(t)

	cmd := place("u1", "m1", 10000, 5.0)
	cmd.Side = bets.SideLay
	b, err := f.svc.Place(context.Background(), cmd)
	require.NoError(t, err)
	require.EqualValues(t, 10000, b.LiabilityCents)
}

func TestPlace_RejectsInvalidStakeAndOdds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Place(ctx, place("u1", "m1", 0, 2.0))
	require.ErrorIs(t, err, placement.ErrInvalidStake)

	_, err = f.svc.Place(ctx, place("u1", "m1", -100, 2.0))
	require.ErrorIs(t, err, placement.ErrInvalidStake)

	_, err = f.svc.Place(ctx, place("u1", "m1", 100, 1.0))
	require.ErrorIs(t, err, placement.ErrInvalidOdds)
}

func TestPlace_RejectsClosedMarket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.markets.SetStatus(ctx, "m1", market.StatusSuspended, ""))
	_, err := f.svc.Place(ctx, place("u1", "m1", 10000, 2.0))
	require.ErrorIs(t, err, placement.ErrMarketClosed)

	// mercado desconhecido também recusa
	_, err = f.svc.Place(ctx, place("u1", "ghost", 10000, 2.0))
	require.ErrorIs(t, err, placement.ErrMarketClosed)
}

func TestPlace_RejectsOverExposureLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// responsabilidade back = 20000 × 9.0 = 180000 > limite de 100000
	_, err := f.svc.Place(ctx, place("u1", "m1", 20000, 10.0))
	require.ErrorIs(t, err, exposure.ErrLimitExceeded)

	// nada ficou comprometido
	exp, err := f.tracker.ExposureOf(ctx, "u1")
	require.NoError(t, err)
	require.EqualValues(t, 0, exp)
}

func TestPlace_RejectsInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// saldo 100000, stake acima
	_, err := f.svc.Place(ctx, place("u1", "m1", 150000, 1.5))
	require.ErrorIs(t, err, placement.ErrInsufficientBalance)
}

// staleMarketSource devolve sempre OPEN, simulando uma leitura de status que
// envelheceu entre o cheque do serviço e a escrita.
type staleMarketSource struct{}

func (staleMarketSource) StatusOf(ctx context.Context, marketID string) (market.Status, error) {
	return market.StatusOpen, nil
}

func TestPlace_WriterRejectsWhenMarketSettledAfterCheck(t *testing.T) {
	ctx := context.Background()

	// o store real já liquidou o mercado; só a leitura do serviço está velha
	markets := market.NewMemory()
	require.NoError(t, markets.Upsert(ctx, "m1", market.StatusOpen))
	require.NoError(t, markets.SetStatus(ctx, "m1", market.StatusSettled, "home"))

	tracker := exposure.NewMemory()
	require.NoError(t, tracker.SetCreditLimit(ctx, "u1", 100000))

	led := ledger.NewMemory()
	_, err := led.Append(ctx, "u1", ledger.CategoryLimitUpdate, 100000, 0, "", "deposit")
	require.NoError(t, err)

	betStore := bets.NewMemory()
	svc := placement.NewService(zap.NewNop(), staleMarketSource{}, tracker, led,
		placement.NewMemoryWriter(betStore, led, markets), nil)

	_, err = svc.Place(ctx, place("u1", "m1", 10000, 2.0))
	require.ErrorIs(t, err, placement.ErrMarketClosed)

	// nada ficou preso: sem aposta, sem débito, sem exposição
	open, err := betStore.ListPlacedByMarket(ctx, "m1")
	require.NoError(t, err)
	require.Empty(t, open)

	bal, err := led.BalanceOf(ctx, "u1")
	require.NoError(t, err)
	require.EqualValues(t, 100000, bal)

	exp, err := tracker.ExposureOf(ctx, "u1")
	require.NoError(t, err)
	require.EqualValues(t, 0, exp)
}

type failingWriter struct{}

func (failingWriter) Create(ctx context.Context, b *bets.Bet) error {
	return errors.New("write failed")
}

func TestPlace_ReleasesReservationWhenWriteFails(t *testing.T) {
	ctx := context.Background()

	markets := market.NewMemory()
	require.NoError(t, markets.Upsert(ctx, "m1", market.StatusOpen))

	tracker := exposure.NewMemory()
	require.NoError(t, tracker.SetCreditLimit(ctx, "u1", 100000))

	led := ledger.NewMemory()
	_, err := led.Append(ctx, "u1", ledger.CategoryLimitUpdate, 100000, 0, "", "deposit")
	require.NoError(t, err)

	svc := placement.NewService(zap.NewNop(), markets, tracker, led, failingWriter{}, nil)

	_, err = svc.Place(ctx, place("u1", "m1", 10000, 2.0))
	require.Error(t, err)

	// a liberação compensatória zera a exposição
	exp, err := tracker.ExposureOf(ctx, "u1")
	require.NoError(t, err)
	require.EqualValues(t, 0, exp)
}
