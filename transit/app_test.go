package transit_test

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"github.com/alovak/farecard/internal/client"
	"github.com/alovak/farecard/transit"
)

func testConfig(t *testing.T) *transit.Config {
	t.Helper()
	config := transit.DefaultConfig()
	config.Server.Port = 0
	config.Admin.Addr = "127.0.0.1:0"
	config.Ledger.Backend = transit.BackendMemory
	return config
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestApp(t *testing.T) {
	app := transit.NewApp(discardLogger(), testConfig(t))
	require.NoError(t, app.Start())
	defer app.Shutdown()

	c := client.New(app.WireAddr, 2*time.Second, 1024)
	ctx := context.Background()

	id := c.Call(ctx, "create_card")
	require.Equal(t, "Success", c.Call(ctx, "fill_wallet "+id+" 100"))
	require.Equal(t, "Success", c.Call(ctx, "pay_for_ride "+id+" north"))
	require.Equal(t, fmt.Sprintf("Card ID: %s, Wallet: 70, Contract: ", id), c.Call(ctx, "check_card_status "+id))

	resp, err := http.Get("http://" + app.Addr + "/-/ready")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get("http://" + app.Addr + "/cards/" + id)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestApp_SQLiteSurvivesRestart(t *testing.T) {
	config := testConfig(t)
	config.Ledger.Backend = transit.BackendSQLite
	config.Ledger.Path = filepath.Join(t.TempDir(), "cards.db")
	config.Admin.Addr = ""
	ctx := context.Background()

	app := transit.NewApp(discardLogger(), config)
	require.NoError(t, app.Start())
	c := client.New(app.WireAddr, 2*time.Second, 1024)
	id := c.Call(ctx, "create_card")
	require.Equal(t, "Success", c.Call(ctx, "fill_wallet "+id+" 42"))
	app.Shutdown()

	app = transit.NewApp(discardLogger(), config)
	require.NoError(t, app.Start())
	defer app.Shutdown()
	c = client.New(app.WireAddr, 2*time.Second, 1024)
	require.Equal(t, fmt.Sprintf("Card ID: %s, Wallet: 42, Contract: ", id), c.Call(ctx, "check_card_status "+id))
}

func TestApp_InvalidConfig(t *testing.T) {
	config := testConfig(t)
	config.Ledger.Backend = "mongo"

	app := transit.NewApp(discardLogger(), config)
	require.Error(t, app.Start())
	app.Shutdown()
}
