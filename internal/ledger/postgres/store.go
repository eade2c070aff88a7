package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/lib/pq"

	"github.com/alovak/farecard/internal/ledger"
	"github.com/alovak/farecard/transit/models"
)

var _ ledger.Store = (*Store)(nil)

type Store struct {
	db *sql.DB
}

// Open connects to Postgres using dsn and applies the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DB_DSN is required for postgres backend")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxIdleConns(5)
	db.SetMaxOpenConns(10)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New constructs a db-backed store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func Migrations() []string {
	return []string{
		`CREATE SCHEMA IF NOT EXISTS transit`,
		`CREATE TABLE IF NOT EXISTS transit.cards (
			id       BIGSERIAL PRIMARY KEY,
			wallet   BIGINT NOT NULL DEFAULT 0 CONSTRAINT cards_wallet_non_negative CHECK (wallet >= 0),
			contract TEXT
		)`,
	}
}

func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range Migrations() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
	}
	return nil
}

func (s *Store) CreateCard(ctx context.Context, wallet int64, contract string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO transit.cards(wallet, contract) VALUES ($1, $2) RETURNING id
	`, wallet, nullable(contract)).Scan(&id)
	if isCheckViolation(err) {
		return 0, ledger.ErrNegativeWallet
	}
	if err != nil {
		return 0, fmt.Errorf("insert card: %w", err)
	}
	return id, nil
}

func (s *Store) GetCard(ctx context.Context, id int64) (*models.Card, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, wallet, contract FROM transit.cards WHERE id=$1`, id)
	return scanCard(row, id)
}

func (s *Store) UpdateCard(ctx context.Context, id int64, upd models.CardUpdate) error {
	_, err := s.ModifyCard(ctx, id, func(models.Card) (models.CardUpdate, error) {
		return upd, nil
	})
	return err
}

func (s *Store) CardExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM transit.cards WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}

// ModifyCard locks the row with SELECT ... FOR UPDATE for the whole
// read-decide-write sequence.
func (s *Store) ModifyCard(ctx context.Context, id int64, fn ledger.ModifyFunc) (*models.Card, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	// set per-transaction statement timeout to avoid long hangs
	if _, err := tx.ExecContext(ctx, `set local statement_timeout = '3s'`); err != nil {
		return nil, err
	}

	row := tx.QueryRowContext(ctx, `SELECT id, wallet, contract FROM transit.cards WHERE id=$1 FOR UPDATE`, id)
	card, err := scanCard(row, id)
	if err != nil {
		return nil, err
	}
	upd, err := fn(*card)
	if err != nil {
		return nil, err
	}
	if upd.IsEmpty() {
		return card, tx.Commit()
	}
	next := upd.Apply(*card)
	if next.Wallet < 0 {
		return nil, ledger.ErrNegativeWallet
	}
	_, err = tx.ExecContext(ctx, `UPDATE transit.cards SET wallet=$2, contract=$3 WHERE id=$1`, id, next.Wallet, nullable(next.Contract))
	if isCheckViolation(err) {
		return nil, ledger.ErrNegativeWallet
	}
	if err != nil {
		return nil, fmt.Errorf("update card %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &next, nil
}

// Ping returns DB readiness
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func scanCard(row *sql.Row, id int64) (*models.Card, error) {
	var card models.Card
	var contract sql.NullString
	if err := row.Scan(&card.ID, &card.Wallet, &contract); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("card %d: %w", id, ledger.ErrNotFound)
		}
		return nil, err
	}
	card.Contract = contract.String
	return &card, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

const checkViolation = "23514"

func isCheckViolation(err error) bool {
	var pe *pq.Error
	if errors.As(err, &pe) && pe.Code == checkViolation {
		return true
	}
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) && pgerr.Code == checkViolation {
		return true
	}
	return false
}
