package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation      = "23505"
	pgCheckViolation       = "23514"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

var (
	// ErrSerialization is returned when postgres aborts a transaction to
	// resolve a serialization failure or deadlock. The caller may retry.
	ErrSerialization = errors.New("transaction aborted by concurrent update")
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so repositories can run
// inside or outside a transaction
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repositories groups every repository bound to the same handle
type Repositories struct {
	Users         UserRepository
	RefreshTokens RefreshTokenRepository
	Addresses     AddressRepository
	Books         BookRepository
	Authors       AuthorRepository
	Carts         CartRepository
	Orders        OrderRepository
}

// NewRepositories binds all repositories to db
func NewRepositories(db DBTX) Repositories {
	return Repositories{
		Users:         NewUserRepository(db),
		RefreshTokens: NewRefreshTokenRepository(db),
		Addresses:     NewAddressRepository(db),
		Books:         NewBookRepository(db),
		Authors:       NewAuthorRepository(db),
		Carts:         NewCartRepository(db),
		Orders:        NewOrderRepository(db),
	}
}

// Transactor runs a unit of work against repositories sharing one transaction
type Transactor interface {
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}

type sqlTransactor struct {
	db *sql.DB
}

// NewTransactor creates a Transactor backed by db
func NewTransactor(db *sql.DB) Transactor {
	return &sqlTransactor{db: db}
}

// WithinTx commits when fn returns nil and rolls back otherwise.
// A panic inside fn rolls back and is re-raised.
func (t *sqlTransactor) WithinTx(ctx context.Context, fn func(repos Repositories) error) (err error) {
	tx, err := t.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = translateTxError(fmt.Errorf("failed to commit transaction: %w", cerr))
		}
	}()

	err = translateTxError(fn(NewRepositories(tx)))
	return err
}

// translateTxError maps postgres concurrency aborts to ErrSerialization
func translateTxError(err error) error {
	if err == nil {
		return nil
	}
	if isPgError(err, pgSerializationFailure) || isPgError(err, pgDeadlockDetected) {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return err
}

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// rowsAffected returns the number of rows touched by result
func rowsAffected(result sql.Result) (int64, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
