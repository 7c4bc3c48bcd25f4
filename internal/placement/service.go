package placement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-ledger/internal/bets"
	"github.com/radieske/bet-settlement-ledger/internal/market"
	"github.com/radieske/bet-settlement-ledger/internal/money"
	"github.com/radieske/bet-settlement-ledger/pkg/contracts/events"
)

var (
	ErrInvalidStake = errors.New("placement: stake must be positive")
	ErrInvalidOdds  = errors.New("placement: odd must be greater than 1.0")

	// ErrMarketClosed cobre mercado suspenso, liquidado, anulado ou
	// desconhecido: aposta recusada, nunca aceita em silêncio.
	ErrMarketClosed = errors.New("placement: market is not open")

	ErrInsufficientBalance = errors.New("placement: insufficient balance for stake")
)

// MarketSource lê o status corrente de um mercado. Precisa ser pelo menos
// tão fresco quanto a última suspensão gravada.
type MarketSource interface {
	StatusOf(ctx context.Context, marketID string) (market.Status, error)
}

// Reserver toma e devolve capacidade de exposição.
type Reserver interface {
	Reserve(ctx context.Context, userID, marketID, betID string, amountCents int64) (string, error)
	Release(ctx context.Context, reservationID string) error
}

// BalanceReader lê o saldo corrente pro pré-cheque de stake.
type BalanceReader interface {
	BalanceOf(ctx context.Context, userID string) (int64, error)
}

// BetWriter persiste a aposta e os lançamentos de colocação atomicamente:
// débito do stake no apostador + espelho de crédito no escrow.
type BetWriter interface {
	Create(ctx context.Context, b *bets.Bet) error
}

// Publisher emite o evento bet_placed (melhor esforço).
type Publisher interface {
	PublishBetPlaced(ctx context.Context, e events.BetPlaced) error
}

// Command é o comando de colocação recebido do colaborador externo.
type Command struct {
	UserID     string
	MarketID   string
	Selection  string
	Side       bets.Side
	StakeCents int64
	OddValue   float64
}

// Service orquestra validação, reserva de exposição e a primeira escrita no
// ledger de uma aposta nova.
type Service struct {
	log      *zap.Logger
	markets  MarketSource
	reserver Reserver
	balances BalanceReader
	writer   BetWriter
	publ     Publisher // opcional
}

func NewService(log *zap.Logger, markets MarketSource, reserver Reserver, balances BalanceReader, writer BetWriter, publ Publisher) *Service {
	return &Service{log: log, markets: markets, reserver: reserver, balances: balances, writer: writer, publ: publ}
}

// Place valida, reserva exposição e grava a aposta com o débito do stake.
// Qualquer falha depois da reserva dispara a liberação compensatória: a
// exposição nunca fica presa acima da responsabilidade real.
func (s *Service) Place(ctx context.Context, cmd Command) (*bets.Bet, error) {
	if cmd.StakeCents <= 0 {
		placementsRejected.WithLabelValues("invalid_stake").Inc()
		return nil, ErrInvalidStake
	}
	if cmd.OddValue <= 1.0 {
		placementsRejected.WithLabelValues("invalid_odds").Inc()
		return nil, ErrInvalidOdds
	}
	if cmd.Side == "" {
		cmd.Side = bets.SideBack
	}

	// 1) mercado precisa estar OPEN; leitura fresca via cache write-through
	st, err := s.markets.StatusOf(ctx, cmd.MarketID)
	if err != nil || st != market.StatusOpen {
		placementsRejected.WithLabelValues("market_closed").Inc()
		return nil, ErrMarketClosed
	}

	// 2) responsabilidade potencial derivada de stake/odd/semântica da seleção
	liability := Liability(cmd.Side, cmd.StakeCents, cmd.OddValue)

	// 3) pré-cheque de saldo antes de comprometer o stake
	balance, err := s.balances.BalanceOf(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if balance < cmd.StakeCents {
		placementsRejected.WithLabelValues("insufficient_balance").Inc()
		return nil, ErrInsufficientBalance
	}

	betID := uuid.NewString()

	// 4) reserva de exposição — serializada por usuário no tracker
	resID, err := s.reserver.Reserve(ctx, cmd.UserID, cmd.MarketID, betID, liability)
	if err != nil {
		placementsRejected.WithLabelValues("limit_exceeded").Inc()
		return nil, err
	}

	// cancelamento antes do commit do ledger: desfaz a reserva
	if err := ctx.Err(); err != nil {
		s.release(resID)
		return nil, err
	}

	b := &bets.Bet{
		ID:             betID,
		UserID:         cmd.UserID,
		MarketID:       cmd.MarketID,
		Selection:      cmd.Selection,
		Side:           cmd.Side,
		StakeCents:     cmd.StakeCents,
		OddValue:       cmd.OddValue,
		LiabilityCents: liability,
		ReservationID:  resID,
		Status:         bets.StatusPlaced,
		CreatedAt:      time.Now().UTC(),
	}

	// 5) aposta + débito do stake, tudo-ou-nada; falhou, compensa a reserva
	if err := s.writer.Create(ctx, b); err != nil {
		s.release(resID)
		return nil, err
	}

	placementsAccepted.Inc()

	if s.publ != nil {
		_ = s.publ.PublishBetPlaced(ctx, events.BetPlaced{
			BetID:          b.ID,
			UserID:         b.UserID,
			MarketID:       b.MarketID,
			Selection:      b.Selection,
			Side:           string(b.Side),
			StakeCents:     b.StakeCents,
			OddValue:       b.OddValue,
			LiabilityCents: b.LiabilityCents,
			ReservationID:  b.ReservationID,
			TsUnixMs:       time.Now().UnixMilli(),
		})
	}

	return b, nil
}

// release é a ação compensatória; usa contexto próprio porque o do request
// pode já ter sido cancelado.
func (s *Service) release(reservationID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.reserver.Release(ctx, reservationID); err != nil {
		s.log.Error("compensating release failed", zap.String("reservation_id", reservationID), zap.Error(err))
	}
}

// Liability deriva a responsabilidade potencial da aposta:
// back paga stake × (odd−1), lay arrisca o próprio stake.
func Liability(side bets.Side, stakeCents int64, odd float64) int64 {
	if side == bets.SideLay {
		return stakeCents
	}
	return money.MulOdds(stakeCents, odd-1)
}
