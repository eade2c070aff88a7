package transit_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/alovak/farecard/internal/fare"
	"github.com/alovak/farecard/internal/ledger"
	"github.com/alovak/farecard/internal/ledger/memory"
	"github.com/alovak/farecard/internal/metrics"
	"github.com/alovak/farecard/transit"
	"github.com/alovak/farecard/transit/models"
)

func newRouter(t *testing.T, store ledger.Store) (chi.Router, *transit.Service) {
	t.Helper()
	svc := transit.NewService(store, fare.MustTable(fare.DefaultFares), 5)
	router := chi.NewRouter()
	transit.NewAPI(svc, metrics.New()).AppendRoutes(router)
	return router, svc
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestAPI(t *testing.T) {
	router, svc := newRouter(t, memory.New())

	t.Run("live", func(t *testing.T) {
		require.Equal(t, http.StatusOK, get(router, "/-/live").Code)
	})

	t.Run("ready", func(t *testing.T) {
		require.Equal(t, http.StatusOK, get(router, "/-/ready").Code)
	})

	t.Run("get card", func(t *testing.T) {
		created, err := svc.CreateCard(context.Background(), models.CreateCard{Wallet: 12, Contract: "west"})
		require.NoError(t, err)

		w := get(router, "/cards/1")
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "application/json", w.Header().Get("Content-Type"))

		card := models.Card{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &card))
		require.Equal(t, *created, card)
	})

	t.Run("missing card", func(t *testing.T) {
		require.Equal(t, http.StatusNotFound, get(router, "/cards/404").Code)
		require.Equal(t, http.StatusNotFound, get(router, "/cards/abc").Code)
	})

	t.Run("regions", func(t *testing.T) {
		w := get(router, "/regions")
		require.Equal(t, http.StatusOK, w.Code)

		var regions []struct {
			Name string `json:"name"`
			Fare int64  `json:"fare"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &regions))
		require.Len(t, regions, 5)
		require.Equal(t, "center", regions[0].Name)
		require.Equal(t, int64(10), regions[0].Fare)
	})

	t.Run("metrics", func(t *testing.T) {
		w := get(router, "/metrics")
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), "farecard_connections_active")
	})
}

// downStore is a ledger whose database is unreachable.
type downStore struct {
	*memory.Store
}

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func (downStore) GetCard(context.Context, int64) (*models.Card, error) {
	return nil, errors.New("connection refused")
}

func TestAPI_LedgerDown(t *testing.T) {
	router, _ := newRouter(t, downStore{memory.New()})

	require.Equal(t, http.StatusServiceUnavailable, get(router, "/-/ready").Code)
	require.Equal(t, http.StatusInternalServerError, get(router, "/cards/1").Code)
}
