package models

import "errors"

var (
	ErrCardNotFound      = errors.New("card not found")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidRegion     = errors.New("invalid region")
	ErrContractUnchanged = errors.New("contract unchanged")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Kind is the coarse class of a card operation failure.
type Kind int

const (
	KindNone Kind = iota
	KindNotFound
	KindInvalid
	KindInsufficientFunds
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "ok"
	case KindNotFound:
		return "not_found"
	case KindInvalid:
		return "invalid"
	case KindInsufficientFunds:
		return "insufficient_funds"
	default:
		return "internal"
	}
}

// KindOf classifies err. Errors outside the card taxonomy (storage
// failures, cancelled contexts) are KindInternal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrCardNotFound):
		return KindNotFound
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidRegion),
		errors.Is(err, ErrContractUnchanged):
		return KindInvalid
	default:
		return KindInternal
	}
}
