package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/alovak/farecard/internal/ledger"
	"github.com/alovak/farecard/transit/models"
)

var _ ledger.Store = (*Store)(nil)

// Store keeps card records in a single SQLite file.
type Store struct {
	db *sql.DB
}

// DSN builds a modernc.org/sqlite connection string for path. Write
// transactions start with BEGIN IMMEDIATE so the read of a
// read-modify-write already holds the database write lock.
func DSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite serializes writers anyway; one connection keeps in-process
	// writers queued in database/sql instead of spinning on SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := New(db)
	if err := s.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrations returns the schema statements, one statement per string.
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS cards (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			wallet   INTEGER NOT NULL DEFAULT 0 CHECK (wallet >= 0),
			contract TEXT
		)`,
	}
}

func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range Migrations() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

func (s *Store) CreateCard(ctx context.Context, wallet int64, contract string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO cards (wallet, contract) VALUES (?, ?)`, wallet, nullable(contract))
	if err != nil {
		if isCheckViolation(err) {
			return 0, ledger.ErrNegativeWallet
		}
		return 0, fmt.Errorf("insert card: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("card id: %w", err)
	}
	return id, nil
}

func (s *Store) GetCard(ctx context.Context, id int64) (*models.Card, error) {
	return scanCard(s.db.QueryRowContext(ctx, `SELECT id, wallet, contract FROM cards WHERE id = ?`, id), id)
}

func (s *Store) UpdateCard(ctx context.Context, id int64, upd models.CardUpdate) error {
	_, err := s.ModifyCard(ctx, id, func(models.Card) (models.CardUpdate, error) {
		return upd, nil
	})
	return err
}

func (s *Store) CardExists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM cards WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) ModifyCard(ctx context.Context, id int64, fn ledger.ModifyFunc) (*models.Card, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	card, err := scanCard(tx.QueryRowContext(ctx, `SELECT id, wallet, contract FROM cards WHERE id = ?`, id), id)
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
	if _, err := tx.ExecContext(ctx, `UPDATE cards SET wallet = ?, contract = ? WHERE id = ?`, next.Wallet, nullable(next.Contract), id); err != nil {
		if isCheckViolation(err) {
			return nil, ledger.ErrNegativeWallet
		}
		return nil, fmt.Errorf("update card %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &next, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner, id int64) (*models.Card, error) {
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

func isCheckViolation(err error) bool {
	var se *moderncsqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_CHECK
	}
	return false
}
