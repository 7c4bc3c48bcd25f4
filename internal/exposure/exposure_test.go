package exposure_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/radieske/bet-settlement-ledger/internal/exposure"
)

func TestReserve_WithinLimit(t *testing.T) {
	ctx := context.Background()
	tracker := exposure.NewMemory()
	require.NoError(t, tracker.SetCreditLimit(ctx, "u1", 50000))

	id, err := tracker.Reserve(ctx, "u1", "m1", "bet-1", 30000)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	exp, err := tracker.ExposureOf(ctx, "u1")
	require.NoError(t, err)
	require.EqualValues(t, 30000, exp)
}

func TestReserve_RejectsOverLimit(t *testing.T) {
	ctx := context.Background()
	tracker := exposure.NewMemory()
	require.NoError(t, tracker.SetCreditLimit(ctx, "u1", 50000))

	_, err := tracker.Reserve(ctx, "u1", "m1", "bet-1", 30000)
	require.NoError(t, err)

	// 30000 + 30000 estouraria o limite de 50000
	_, err = tracker.Reserve(ctx, "u1", "m1", "bet-2", 30000)
	require.ErrorIs(t, err, exposure.ErrLimitExceeded)

	// exatamente no limite passa
	_, err = tracker.Reserve(ctx, "u1", "m1", "bet-3", 20000)
	require.NoError(t, err)
}

func TestReserve_IdempotentByBetID(t *testing.T) {
	ctx := context.Background()
	tracker := exposure.NewMemory()
	require.NoError(t, tracker.SetCreditLimit(ctx, "u1", 50000))

	first, err := tracker.Reserve(ctx, "u1", "m1", "bet-1", 30000)
	require.NoError(t, err)

	// retry com o mesmo bet_id devolve a mesma reserva, sem dobrar exposição
	second, err := tracker.Reserve(ctx, "u1", "m1", "bet-1", 30000)
	require.NoError(t, err)
	require.Equal(t, first, second)

	exp, err := tracker.ExposureOf(ctx, "u1")
	require.NoError(t, err)
	require.EqualValues(t, 30000, exp)
}

func TestRelease_Idempotent(t *testing.T) {
	ctx := context.Background()
	tracker := exposure.NewMemory()
	require.NoError(t, tracker.SetCreditLimit(ctx, "u1", 50000))

	id, err := tracker.Reserve(ctx, "u1", "m1", "bet-1", 30000)
	require.NoError(t, err)

	require.NoError(t, tracker.Release(ctx, id))
	require.NoError(t, tracker.Release(ctx, id)) // no-op

	exp, err := tracker.ExposureOf(ctx, "u1")
	require.NoError(t, err)
	require.EqualValues(t, 0, exp)
}

func TestRelease_UnknownReservation(t *testing.T) {
	tracker := exposure.NewMemory()
	err := tracker.Release(context.Background(), "does-not-exist")
	require.ErrorIs(t, err, exposure.ErrReservationNotFound)
}

func TestReserve_ConcurrentNeverOversells(t *testing.T) {
	ctx := context.Background()
	tracker := exposure.NewMemory()

	const (
		limit  = int64(100000)
		amount = int64(30000)
		tries  = 20
	)
	require.NoError(t, tracker.SetCreditLimit(ctx, "u1", limit))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < tries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := tracker.Reserve(ctx, "u1", "m1", fmt.Sprintf("bet-%d", i), amount)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	// exatamente floor(limite / valor) reservas cabem, independente da ordem
	require.Equal(t, int(limit/amount), succeeded)

	exp, err := tracker.ExposureOf(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(succeeded)*amount, exp)
}
