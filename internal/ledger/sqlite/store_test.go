package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alovak/farecard/internal/ledger"
	"github.com/alovak/farecard/internal/ledger/ledgertest"
	"github.com/alovak/farecard/internal/ledger/sqlite"
)

func TestStore(t *testing.T) {
	ledgertest.Run(t, func(t *testing.T) ledger.Store {
		s, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "cards.db"))
		require.NoError(t, err)
		return s
	})
}

// Records written through one handle are visible after reopening the file.
func TestStore_Durable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cards.db")

	s, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	id, err := s.CreateCard(ctx, 12, "south")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = sqlite.Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	card, err := s.GetCard(ctx, id)
	require.NoError(t, err)
	require.Equal(t, int64(12), card.Wallet)
	require.Equal(t, "south", card.Contract)

	next, err := s.CreateCard(ctx, 0, "")
	require.NoError(t, err)
	require.Greater(t, next, id)
}

func TestDSN(t *testing.T) {
	dsn := sqlite.DSN("/tmp/cards.db")
	require.Contains(t, dsn, "file:/tmp/cards.db?")
	require.Contains(t, dsn, "_txlock=immediate")
}
