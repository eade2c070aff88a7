package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/alovak/farecard/internal/ledger"
	"github.com/alovak/farecard/transit/models"
)

var _ ledger.Store = (*Store)(nil)

// Store keeps card records in process memory. Every record has its own
// mutex so that read-modify-write sequences on one card are serialized
// while different cards proceed in parallel.
type Store struct {
	mu     sync.RWMutex
	cards  map[int64]*record
	nextID int64
}

type record struct {
	mu   sync.Mutex
	card models.Card
}

func New() *Store {
	return &Store{
		cards:  make(map[int64]*record),
		nextID: 1,
	}
}

func (s *Store) CreateCard(_ context.Context, wallet int64, contract string) (int64, error) {
	if wallet < 0 {
		return 0, ledger.ErrNegativeWallet
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.cards[id] = &record{card: models.Card{ID: id, Wallet: wallet, Contract: contract}}
	return id, nil
}

func (s *Store) lookup(id int64) (*record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.cards[id]
	if !ok {
		return nil, fmt.Errorf("card %d: %w", id, ledger.ErrNotFound)
	}
	return rec, nil
}

func (s *Store) GetCard(_ context.Context, id int64) (*models.Card, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	card := rec.card
	rec.mu.Unlock()
	return &card, nil
}

func (s *Store) UpdateCard(_ context.Context, id int64, upd models.CardUpdate) error {
	rec, err := s.lookup(id)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	next := upd.Apply(rec.card)
	if next.Wallet < 0 {
		return ledger.ErrNegativeWallet
	}
	rec.card = next
	return nil
}

func (s *Store) CardExists(_ context.Context, id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cards[id]
	return ok, nil
}

func (s *Store) ModifyCard(ctx context.Context, id int64, fn ledger.ModifyFunc) (*models.Card, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	upd, err := fn(rec.card)
	if err != nil {
		return nil, err
	}
	next := upd.Apply(rec.card)
	if next.Wallet < 0 {
		return nil, ledger.ErrNegativeWallet
	}
	rec.card = next
	card := rec.card
	return &card, nil
}

func (s *Store) Migrate(context.Context) error { return nil }

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
