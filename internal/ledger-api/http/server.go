package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-ledger/internal/bets"
	"github.com/radieske/bet-settlement-ledger/internal/exposure"
	"github.com/radieske/bet-settlement-ledger/internal/ledger"
	"github.com/radieske/bet-settlement-ledger/internal/ledger-api/dto"
	"github.com/radieske/bet-settlement-ledger/internal/placement"
)

// Placer é o serviço de colocação usado pelo handler.
type Placer interface {
	Place(ctx context.Context, cmd placement.Command) (*bets.Bet, error)
}

// LedgerReader lê saldo e histórico.
type LedgerReader interface {
	BalanceOf(ctx context.Context, userID string) (int64, error)
	History(ctx context.Context, userID string, r ledger.Range) (ledger.Cursor, error)
	Append(ctx context.Context, userID string, cat ledger.Category, creditCents, debitCents int64, relatedBetID, remark string) (ledger.Entry, error)
}

// ExposureReader lê a exposição aberta corrente.
type ExposureReader interface {
	ExposureOf(ctx context.Context, userID string) (int64, error)
}

// BetReader consulta apostas.
type BetReader interface {
	Get(ctx context.Context, betID string) (*bets.Bet, error)
}

// Server expõe a API HTTP do núcleo de ledger/liquidação.
type Server struct {
	log      *zap.Logger
	placer   Placer
	ledgers  LedgerReader
	exposure ExposureReader
	betsRepo BetReader
}

func NewServer(log *zap.Logger, placer Placer, ledgers LedgerReader, exp ExposureReader, betsRepo BetReader) *Server {
	return &Server{log: log, placer: placer, ledgers: ledgers, exposure: exp, betsRepo: betsRepo}
}

// Router retorna o mux HTTP com as rotas da API
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/bets", s.placeBet)              // POST
	mux.HandleFunc("/bets/", s.getBetStatus)         // GET /bets/{id}
	mux.HandleFunc("/balance", s.getBalance)         // GET ?userId=...
	mux.HandleFunc("/exposure", s.getExposure)       // GET ?userId=...
	mux.HandleFunc("/ledger", s.getHistory)          // GET ?userId=&from=&to=&limit=
	mux.HandleFunc("/accounts/adjust", s.adjustment) // POST (administrativo)
	return mux
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.MarketID == "" || req.Selection == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	b, err := s.placer.Place(r.Context(), placement.Command{
		UserID:     req.UserID,
		MarketID:   req.MarketID,
		Selection:  req.Selection,
		Side:       bets.Side(req.Side),
		StakeCents: req.StakeCents,
		OddValue:   req.OddValue,
	})
	if err != nil {
		s.writePlacementError(w, err)
		return
	}

	writeJSON(w, dto.PlaceBetResponse{BetID: b.ID, Status: string(b.Status), LiabilityCents: b.LiabilityCents})
}

// writePlacementError mapeia a taxonomia de erros do núcleo pra HTTP
func (s *Server) writePlacementError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, placement.ErrInvalidStake), errors.Is(err, placement.ErrInvalidOdds):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, placement.ErrMarketClosed):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, placement.ErrInsufficientBalance), errors.Is(err, exposure.ErrLimitExceeded):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		s.log.Error("place bet", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) getBetStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := r.URL.Path[len("/bets/"):]
	if id == "" {
		http.Error(w, "betId required", http.StatusBadRequest)
		return
	}

	b, err := s.betsRepo.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	writeJSON(w, dto.BetStatusResponse{BetID: b.ID, Status: string(b.Status), SettledAt: b.SettledAt})
}

func (s *Server) getBalance(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}
	bal, err := s.ledgers.BalanceOf(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.BalanceResponse{UserID: userID, BalanceCents: bal})
}

func (s *Server) getExposure(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}
	exp, err := s.exposure.ExposureOf(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.ExposureResponse{UserID: userID, ExposureCents: exp})
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}

	var rng ledger.Range
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "bad from", http.StatusBadRequest)
			return
		}
		rng.From = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "bad to", http.StatusBadRequest)
			return
		}
		rng.To = t
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "bad limit", http.StatusBadRequest)
			return
		}
		rng.Limit = n
	}

	cur, err := s.ledgers.History(r.Context(), userID, rng)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer cur.Close()

	resp := dto.LedgerHistoryResponse{UserID: userID, Entries: []dto.LedgerEntryResponse{}}
	for cur.Next() {
		e := cur.Entry()
		resp.Entries = append(resp.Entries, dto.LedgerEntryResponse{
			ID:           e.ID,
			Category:     string(e.Category),
			CreditCents:  e.CreditCents,
			DebitCents:   e.DebitCents,
			BalanceCents: e.BalanceCents,
			RelatedBetID: e.RelatedBetID,
			Remark:       e.Remark,
			CreatedAt:    e.CreatedAt,
		})
	}
	if err := cur.Err(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, resp)
}

// adjustment grava um lançamento administrativo LIMIT_UPDATE (depósito ou
// correção de saldo); correções nunca alteram lançamentos passados.
func (s *Server) adjustment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.AdjustBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	e, err := s.ledgers.Append(r.Context(), req.UserID, ledger.CategoryLimitUpdate, req.CreditCents, req.DebitCents, "", req.Remark)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidAmount) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, dto.BalanceResponse{UserID: req.UserID, BalanceCents: e.BalanceCents})
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
