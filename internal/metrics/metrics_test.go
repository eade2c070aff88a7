package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/alovak/farecard/internal/metrics"
)

func TestObserveRequest(t *testing.T) {
	m := metrics.New()

	m.ObserveRequest("fill_wallet", "ok", time.Millisecond)
	m.ObserveRequest("fill_wallet", "ok", time.Millisecond)
	m.ObserveRequest("fill_wallet", "invalid", time.Millisecond)

	require.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("fill_wallet", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("fill_wallet", "invalid")))
	require.Equal(t, 1, testutil.CollectAndCount(m.RequestDuration))
}

func TestRegistriesAreIndependent(t *testing.T) {
	a := metrics.New()
	b := metrics.New()

	a.ActiveConnections.Inc()
	a.AcceptErrors.Inc()

	require.Equal(t, 1.0, testutil.ToFloat64(a.ActiveConnections))
	require.Equal(t, 0.0, testutil.ToFloat64(b.ActiveConnections))
	require.Equal(t, 0.0, testutil.ToFloat64(b.AcceptErrors))
}

func TestHandler(t *testing.T) {
	m := metrics.New()
	m.ObserveRequest("create_card", "ok", time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `farecard_requests_total{outcome="ok",verb="create_card"} 1`)
	require.Contains(t, string(body), "farecard_connections_active 0")
}
