package ledger

import (
	"errors"
	"time"
)

// Categoria de um lançamento no ledger.
type Category string

const (
	CategoryBetPlaced   Category = "BET_PLACED"
	CategoryBetWon      Category = "BET_WON"
	CategoryBetLost     Category = "BET_LOST"
	CategoryCommission  Category = "COMMISSION"
	CategoryLimitUpdate Category = "LIMIT_UPDATE"
	CategoryVoidRefund  Category = "VOID_REFUND"
)

// Contas de sistema. O escrow guarda stakes comprometidos entre a aposta e a
// liquidação; a banca (house) é a contraparte quando o apostador não tem
// cadeia de agentes. Com elas, toda cascata de liquidação fecha em zero.
const (
	SystemEscrow = "system:escrow"
	SystemHouse  = "system:house"
)

var (
	// ErrInvalidAmount: todo lançamento tem exatamente um lado não-zero.
	ErrInvalidAmount = errors.New("ledger: exactly one of credit/debit must be positive")
)

// Entry é um lançamento imutável do ledger. Nunca é alterado nem removido
// depois de gravado; correções entram como lançamentos compensatórios novos.
type Entry struct {
	ID           string
	UserID       string
	Category     Category
	CreditCents  int64
	DebitCents   int64
	BalanceCents int64  // snapshot do saldo resultante no momento da gravação
	RelatedBetID string // vazio quando não há aposta associada
	Remark       string
	CreatedAt    time.Time
}

// Range filtra o histórico de lançamentos de um usuário.
type Range struct {
	From  time.Time // zero = sem limite inferior
	To    time.Time // zero = sem limite superior
	Limit int       // 0 = sem limite
}

// Cursor percorre lançamentos em ordem de criação ascendente.
// Reiniciável: basta pedir um novo cursor ao store.
type Cursor interface {
	Next() bool
	Entry() Entry
	Err() error
	Close() error
}

func validateAmounts(credit, debit int64) error {
	if credit < 0 || debit < 0 {
		return ErrInvalidAmount
	}
	if (credit == 0) == (debit == 0) {
		return ErrInvalidAmount
	}
	return nil
}
