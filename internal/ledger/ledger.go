// Package ledger defines the durable table of card records and the
// contract every storage backend implements.
//
// Backends live in sub-packages: memory (tests, ephemeral runs), sqlite
// (default, single local file) and postgres. All of them guarantee that
// a ModifyCard call observes and writes a record without interleaving
// with any other mutation of the same card id.
package ledger

import (
	"context"
	"errors"

	"github.com/alovak/farecard/transit/models"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrNegativeWallet = errors.New("wallet must not be negative")
)

// ModifyFunc decides the update for the current state of a card. Returning
// an error aborts the modification without writing anything; the error is
// returned to the ModifyCard caller as is.
type ModifyFunc func(card models.Card) (models.CardUpdate, error)

type Store interface {
	// CreateCard inserts a record and returns its newly assigned id.
	CreateCard(ctx context.Context, wallet int64, contract string) (int64, error)
	GetCard(ctx context.Context, id int64) (*models.Card, error)
	// UpdateCard applies a partial update to an existing record.
	UpdateCard(ctx context.Context, id int64, upd models.CardUpdate) error
	CardExists(ctx context.Context, id int64) (bool, error)
	// ModifyCard runs fn against the current record and persists its
	// update atomically with respect to other mutations of the same id.
	// It returns the record as persisted.
	ModifyCard(ctx context.Context, id int64, fn ModifyFunc) (*models.Card, error)

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
