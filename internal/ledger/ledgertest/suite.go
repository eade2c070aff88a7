// Package ledgertest holds the behavior every ledger.Store backend must
// share. Backend packages call Run from their own tests.
package ledgertest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alovak/farecard/internal/ledger"
	"github.com/alovak/farecard/transit/models"
)

// Factory returns an empty, migrated store. The suite closes it.
type Factory func(t *testing.T) ledger.Store

func Run(t *testing.T, newStore Factory) {
	t.Run("create assigns increasing ids", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		first, err := s.CreateCard(ctx, 0, "")
		require.NoError(t, err)
		second, err := s.CreateCard(ctx, 0, "")
		require.NoError(t, err)

		require.GreaterOrEqual(t, first, int64(1))
		require.Greater(t, second, first)
	})

	t.Run("get returns stored fields", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		id, err := s.CreateCard(ctx, 40, "north")
		require.NoError(t, err)

		card, err := s.GetCard(ctx, id)
		require.NoError(t, err)
		require.Equal(t, models.Card{ID: id, Wallet: 40, Contract: "north"}, *card)

		id, err = s.CreateCard(ctx, 0, "")
		require.NoError(t, err)
		card, err = s.GetCard(ctx, id)
		require.NoError(t, err)
		require.Equal(t, int64(0), card.Wallet)
		require.Empty(t, card.Contract)
	})

	t.Run("missing card", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		_, err := s.GetCard(ctx, missingID)
		require.ErrorIs(t, err, ledger.ErrNotFound)

		exists, err := s.CardExists(ctx, missingID)
		require.NoError(t, err)
		require.False(t, exists)

		err = s.UpdateCard(ctx, missingID, models.SetWallet(1))
		require.ErrorIs(t, err, ledger.ErrNotFound)

		_, err = s.ModifyCard(ctx, missingID, func(models.Card) (models.CardUpdate, error) {
			t.Fatal("fn must not run for a missing card")
			return models.CardUpdate{}, nil
		})
		require.ErrorIs(t, err, ledger.ErrNotFound)
	})

	t.Run("exists", func(t *testing.T) {
		s := open(t, newStore)
		id, err := s.CreateCard(context.Background(), 0, "")
		require.NoError(t, err)

		exists, err := s.CardExists(context.Background(), id)
		require.NoError(t, err)
		require.True(t, exists)
	})

	t.Run("partial update", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()
		id, err := s.CreateCard(ctx, 10, "east")
		require.NoError(t, err)

		require.NoError(t, s.UpdateCard(ctx, id, models.SetWallet(55)))
		card, err := s.GetCard(ctx, id)
		require.NoError(t, err)
		require.Equal(t, int64(55), card.Wallet)
		require.Equal(t, "east", card.Contract)

		require.NoError(t, s.UpdateCard(ctx, id, models.SetContract("west")))
		card, err = s.GetCard(ctx, id)
		require.NoError(t, err)
		require.Equal(t, int64(55), card.Wallet)
		require.Equal(t, "west", card.Contract)

		require.NoError(t, s.UpdateCard(ctx, id, models.SetContract("")))
		card, err = s.GetCard(ctx, id)
		require.NoError(t, err)
		require.Empty(t, card.Contract)
	})

	t.Run("negative wallet is never persisted", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		_, err := s.CreateCard(ctx, -1, "")
		require.ErrorIs(t, err, ledger.ErrNegativeWallet)

		id, err := s.CreateCard(ctx, 5, "")
		require.NoError(t, err)
		err = s.UpdateCard(ctx, id, models.SetWallet(-1))
		require.ErrorIs(t, err, ledger.ErrNegativeWallet)

		card, err := s.GetCard(ctx, id)
		require.NoError(t, err)
		require.Equal(t, int64(5), card.Wallet)
	})

	t.Run("modify aborts on fn error", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()
		id, err := s.CreateCard(ctx, 7, "")
		require.NoError(t, err)

		errStop := errors.New("stop")
		_, err = s.ModifyCard(ctx, id, func(card models.Card) (models.CardUpdate, error) {
			require.Equal(t, int64(7), card.Wallet)
			return models.SetWallet(0), errStop
		})
		require.ErrorIs(t, err, errStop)

		card, err := s.GetCard(ctx, id)
		require.NoError(t, err)
		require.Equal(t, int64(7), card.Wallet)
	})

	t.Run("modify returns persisted card", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()
		id, err := s.CreateCard(ctx, 7, "")
		require.NoError(t, err)

		card, err := s.ModifyCard(ctx, id, func(card models.Card) (models.CardUpdate, error) {
			return models.CardUpdate{}, nil
		})
		require.NoError(t, err)
		require.Equal(t, int64(7), card.Wallet)

		card, err = s.ModifyCard(ctx, id, func(card models.Card) (models.CardUpdate, error) {
			return models.SetWallet(card.Wallet + 3), nil
		})
		require.NoError(t, err)
		require.Equal(t, models.Card{ID: id, Wallet: 10}, *card)
	})

	t.Run("concurrent modify has no lost updates", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()
		id, err := s.CreateCard(ctx, 100, "")
		require.NoError(t, err)

		const workers = 25
		const delta = 4
		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.ModifyCard(ctx, id, func(card models.Card) (models.CardUpdate, error) {
					return models.SetWallet(card.Wallet + delta), nil
				})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		card, err := s.GetCard(ctx, id)
		require.NoError(t, err)
		require.Equal(t, int64(100+workers*delta), card.Wallet)
	})

	t.Run("ping", func(t *testing.T) {
		s := open(t, newStore)
		require.NoError(t, s.Ping(context.Background()))
	})
}

func open(t *testing.T, newStore Factory) ledger.Store {
	t.Helper()
	s := newStore(t)
	t.Cleanup(func() { s.Close() })
	return s
}

// missingID is never assigned by a freshly migrated store.
const missingID = int64(1) << 40
