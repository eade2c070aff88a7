package transit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/exp/slog"

	"github.com/alovak/farecard/internal/ledger"
	"github.com/alovak/farecard/internal/ledger/memory"
	"github.com/alovak/farecard/internal/ledger/postgres"
	"github.com/alovak/farecard/internal/ledger/sqlite"
	"github.com/alovak/farecard/internal/metrics"
	"github.com/alovak/farecard/internal/middleware"
	"github.com/alovak/farecard/transit/wire"
)

// App is the main application, it contains all the components of the
// fare-card service and is responsible for starting and stopping them.
type App struct {
	srv        *http.Server
	wg         *sync.WaitGroup
	Addr       string
	WireAddr   string
	logger     *slog.Logger
	wireServer *wire.Server
	store      ledger.Store
	config     *Config
}

func NewApp(logger *slog.Logger, config *Config) *App {
	logger = logger.With(slog.String("app", "farecard"))

	if config == nil {
		config = DefaultConfig()
	}

	return &App{
		wg:     &sync.WaitGroup{},
		logger: logger,
		config: config,
	}
}

func (a *App) Start() error {
	a.logger.Info("starting app...")

	if err := a.config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	store, err := OpenStore(context.Background(), a.config.Ledger)
	if err != nil {
		return err
	}
	a.store = store
	a.logger.Info("ledger ready", slog.String("backend", a.config.Ledger.Backend))

	svc := NewService(store, a.config.FareTable(), a.config.Wallet.MaxAmountLength)
	m := metrics.New()

	wireServer := wire.NewServer(a.logger, a.config.Server.Addr(), svc, wire.Options{
		BufferSize:     a.config.Server.BufferSize,
		IdleTimeout:    a.config.Server.IdleTimeout.Duration,
		MaxConnections: a.config.Server.MaxConnections,
		Metrics:        m,
	})
	if err := wireServer.Start(); err != nil {
		store.Close()
		return fmt.Errorf("starting protocol server: %w", err)
	}
	a.WireAddr = wireServer.Addr
	a.wireServer = wireServer

	if a.config.Admin.Addr == "" {
		a.logger.Info("admin http api disabled")
		return nil
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.NewStructuredLogger(a.logger))
	router.Use(chimiddleware.Recoverer)

	api := NewAPI(svc, m)
	api.AppendRoutes(router)

	l, err := net.Listen("tcp", a.config.Admin.Addr)
	if err != nil {
		wireServer.Close()
		store.Close()
		return fmt.Errorf("listening tcp port: %w", err)
	}

	a.Addr = l.Addr().String()

	a.srv = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	a.wg.Add(1)
	go func() {
		a.logger.Info("http server started", slog.String("addr", a.Addr))

		if err := a.srv.Serve(l); err != nil {
			if err != http.ErrServerClosed {
				a.logger.Error("starting http server", "err", err)
			}

			a.logger.Info("http server stopped")
		}

		a.wg.Done()
	}()

	return nil
}

// OpenStore opens the ledger backend named by cfg.
func OpenStore(ctx context.Context, cfg LedgerConfig) (ledger.Store, error) {
	switch cfg.Backend {
	case BackendMemory:
		return memory.New(), nil
	case BackendSQLite:
		return sqlite.Open(ctx, cfg.Path)
	case BackendPostgres:
		return postgres.Open(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported REPO_BACKEND=%s", cfg.Backend)
	}
}

func (a *App) Shutdown() {
	a.logger.Info("shutting down app...")

	if a.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.srv.Shutdown(ctx); err != nil {
			a.logger.Error("shutting down http server", "err", err)
		}
	}

	if a.wireServer != nil {
		if err := a.wireServer.Close(); err != nil {
			a.logger.Error("closing protocol server", "err", err)
		}
	}

	a.wg.Wait()

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("closing ledger", "err", err)
		}
	}

	a.logger.Info("app stopped")
}
