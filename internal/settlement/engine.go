package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-ledger/internal/bets"
	"github.com/radieske/bet-settlement-ledger/internal/commission"
	"github.com/radieske/bet-settlement-ledger/internal/hierarchy"
	"github.com/radieske/bet-settlement-ledger/internal/ledger"
	"github.com/radieske/bet-settlement-ledger/internal/market"
	"github.com/radieske/bet-settlement-ledger/internal/money"
	"github.com/radieske/bet-settlement-ledger/pkg/contracts/events"
)

// ErrBetsPending: uma ou mais apostas não puderam ser liquidadas (hierarquia
// quebrada ou falha de escrita). O marcador de liquidação fica retido; uma
// repassada depois do conserto retoma só as apostas ainda abertas.
var ErrBetsPending = errors.New("settlement: some bets could not be settled")

// BetLister enumera as apostas ainda abertas de um mercado.
type BetLister interface {
	ListPlacedByMarket(ctx context.Context, marketID string) ([]bets.Bet, error)
}

// ChainResolver resolve a cadeia de ancestrais do dono da aposta.
type ChainResolver interface {
	ChainOf(ctx context.Context, userID string) ([]hierarchy.Level, error)
}

// MarketStore aplica transições de estado do mercado.
type MarketStore interface {
	SetStatus(ctx context.Context, marketID string, to market.Status, winningSelection string) error
}

// CascadeWriter persiste a cascata de uma aposta atomicamente: lançamentos
// do ledger, transição terminal da aposta e liberação da reserva.
type CascadeWriter interface {
	AlreadyApplied(ctx context.Context, marketID string) (bool, error)
	ApplyCascade(ctx context.Context, b bets.Bet, status bets.Status, movs []commission.Movement) error
	MarkApplied(ctx context.Context, marketID string, generation int64, winningSelection string) error
}

// Publisher emite eventos bet_settled (melhor esforço).
type Publisher interface {
	PublishBetSettled(ctx context.Context, e events.BetSettled) error
}

// Engine liquida mercados resolvidos. Uma passada por mercado de cada vez
// (mutex por market id) e marcador durável por mercado: entrega at-least-once
// do resultado vira no-op na segunda vez.
type Engine struct {
	log    *zap.Logger
	lister BetLister
	chains ChainResolver
	marks  MarketStore
	writer CascadeWriter
	publ   Publisher // opcional

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewEngine(log *zap.Logger, lister BetLister, chains ChainResolver, marks MarketStore, writer CascadeWriter, publ Publisher) *Engine {
	return &Engine{
		log:    log,
		lister: lister,
		chains: chains,
		marks:  marks,
		writer: writer,
		publ:   publ,
		locks:  make(map[string]*sync.Mutex),
	}
}

// marketLock devolve o mutex do mercado, criando sob demanda.
func (e *Engine) marketLock(marketID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[marketID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[marketID] = l
	}
	return l
}

// Settle liquida todas as apostas abertas do mercado contra a seleção
// vencedora. Idempotente: mercado já marcado não gera escrita nenhuma.
func (e *Engine) Settle(ctx context.Context, marketID, winningSelection string, generation int64) error {
	l := e.marketLock(marketID)
	l.Lock()
	defer l.Unlock()

	applied, err := e.writer.AlreadyApplied(ctx, marketID)
	if err != nil {
		return err
	}
	if applied {
		duplicateSettlements.Inc()
		e.log.Info("duplicate settlement ignored",
			zap.String("market_id", marketID), zap.Int64("generation", generation))
		return nil
	}

	// o mercado vira SETTLED antes da cascata: nenhuma colocação nova passa
	if err := e.marks.SetStatus(ctx, marketID, market.StatusSettled, winningSelection); err != nil {
		return err
	}

	// varre até não sobrar aposta liquidável: uma colocação que leu OPEN
	// antes da transição e commitou durante a primeira varredura ainda é
	// apanhada numa repassada, antes do marcador
	failed := make(map[string]bool)
	for {
		open, err := e.lister.ListPlacedByMarket(ctx, marketID)
		if err != nil {
			return err
		}
		progress := false
		for _, b := range open {
			if failed[b.ID] {
				continue
			}
			if err := e.settleOne(ctx, b, winningSelection); err != nil {
				failed[b.ID] = true
				e.log.Error("bet settlement halted",
					zap.String("bet_id", b.ID), zap.String("market_id", marketID), zap.Error(err))
			} else {
				progress = true
			}
		}
		if !progress {
			break
		}
	}

	if len(failed) > 0 {
		// marcador retido de propósito: a repassada pós-conserto só revê
		// as apostas que continuam PLACED
		return fmt.Errorf("%w: market %s, %d pending", ErrBetsPending, marketID, len(failed))
	}

	if err := e.writer.MarkApplied(ctx, marketID, generation, winningSelection); err != nil {
		return err
	}
	settlementsApplied.Inc()
	return nil
}

// settleOne processa uma aposta: desfecho, cadeia, distribuição e escrita
// tudo-ou-nada. Falha que violaria a conservação aborta antes de gravar.
func (e *Engine) settleOne(ctx context.Context, b bets.Bet, winningSelection string) error {
	won := b.Selection == winningSelection
	status := bets.StatusSettledLost
	var outcome int64
	if won {
		status = bets.StatusSettledWon
		outcome = money.MulOdds(b.StakeCents, b.OddValue-1)
	}

	chain, err := e.chains.ChainOf(ctx, b.UserID)
	if err != nil {
		// integridade de dados: alerta o operador, não pula em silêncio
		brokenHierarchy.Inc()
		return err
	}

	movs, err := commission.Distribute(commission.Input{
		BetID:        b.ID,
		OwnerID:      b.UserID,
		Category:     hierarchy.CategorySports,
		StakeCents:   b.StakeCents,
		OutcomeCents: outcome,
		Won:          won,
	}, chain)
	if err != nil {
		return err
	}

	if err := e.writer.ApplyCascade(ctx, b, status, movs); err != nil {
		if errors.Is(err, bets.ErrTerminalState) {
			return nil // outra passada já resolveu essa aposta
		}
		return err
	}

	betsSettled.WithLabelValues(string(status)).Inc()
	e.publish(ctx, b, status, winningSelection, movs)
	return nil
}

// Void anula todas as apostas abertas do mercado: devolve o stake original,
// libera exposição, nenhuma comissão é paga.
func (e *Engine) Void(ctx context.Context, marketID string, generation int64) error {
	l := e.marketLock(marketID)
	l.Lock()
	defer l.Unlock()

	applied, err := e.writer.AlreadyApplied(ctx, marketID)
	if err != nil {
		return err
	}
	if applied {
		duplicateSettlements.Inc()
		return nil
	}

	if err := e.marks.SetStatus(ctx, marketID, market.StatusVoided, ""); err != nil {
		return err
	}

	// mesma varredura repetida da liquidação: apanha colocações retardatárias
	failed := make(map[string]bool)
	for {
		open, err := e.lister.ListPlacedByMarket(ctx, marketID)
		if err != nil {
			return err
		}
		progress := false
		for _, b := range open {
			if failed[b.ID] {
				continue
			}
			movs := []commission.Movement{
				{UserID: ledger.SystemEscrow, Category: ledger.CategoryVoidRefund, DebitCents: b.StakeCents, Remark: "stake escrow release"},
				{UserID: b.UserID, Category: ledger.CategoryVoidRefund, CreditCents: b.StakeCents, Remark: "void refund"},
			}
			if err := e.writer.ApplyCascade(ctx, b, bets.StatusVoided, movs); err != nil {
				if errors.Is(err, bets.ErrTerminalState) {
					progress = true
					continue
				}
				failed[b.ID] = true
				e.log.Error("bet void halted", zap.String("bet_id", b.ID), zap.Error(err))
				continue
			}
			progress = true
			betsSettled.WithLabelValues(string(bets.StatusVoided)).Inc()
			e.publish(ctx, b, bets.StatusVoided, "", movs)
		}
		if !progress {
			break
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%w: market %s, %d pending", ErrBetsPending, marketID, len(failed))
	}

	if err := e.writer.MarkApplied(ctx, marketID, generation, ""); err != nil {
		return err
	}
	settlementsApplied.Inc()
	return nil
}

func (e *Engine) publish(ctx context.Context, b bets.Bet, status bets.Status, winningSelection string, movs []commission.Movement) {
	if e.publ == nil {
		return
	}
	var net, comm int64
	for _, m := range movs {
		if m.UserID == b.UserID {
			net += m.CreditCents - m.DebitCents
		}
		if m.Category == ledger.CategoryCommission {
			comm += m.CreditCents
		}
	}
	if status == bets.StatusSettledLost {
		net -= b.StakeCents // stake debitado na colocação
	}
	_ = e.publ.PublishBetSettled(ctx, events.BetSettled{
		BetID:            b.ID,
		UserID:           b.UserID,
		MarketID:         b.MarketID,
		Status:           string(status),
		NetCents:         net,
		CommissionCents:  comm,
		WinningSelection: winningSelection,
		Ts:               time.Now().UTC(),
	})
}
