package market

import (
	"errors"
	"fmt"
	"time"
)

type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusSuspended Status = "SUSPENDED"
	StatusSettled   Status = "SETTLED"
	StatusVoided    Status = "VOIDED"
)

var (
	ErrNotFound = errors.New("market: not found")

	// ErrInvalidTransition: SETTLED e VOIDED são terminais.
	ErrInvalidTransition = errors.New("market: invalid status transition")
)

// Market é o estado corrente de um mercado. A seleção vencedora só existe
// depois de SETTLED.
type Market struct {
	ID               string
	Status           Status
	WinningSelection string
	UpdatedAt        time.Time
}

// CanTransition valida a máquina de estados:
// OPEN ⇄ SUSPENDED, {OPEN, SUSPENDED} → SETTLED | VOIDED.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusOpen:
		return to == StatusSuspended || to == StatusSettled || to == StatusVoided
	case StatusSuspended:
		return to == StatusOpen || to == StatusSettled || to == StatusVoided
	}
	return false
}

func transitionErr(id string, from, to Status) error {
	return fmt.Errorf("%w: %s %s→%s", ErrInvalidTransition, id, from, to)
}
