package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/ledgerbook/internal/apperrors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is satisfied by both the connection pool and a transaction, so a
// repository can run the same statements in or out of a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DBPool is a Querier that can also start transactions.
type DBPool interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

var (
	_ Querier = (*pgxpool.Pool)(nil)
	_ Querier = (pgx.Tx)(nil)
	_ DBPool  = (*pgxpool.Pool)(nil)
)

const uniqueViolation = "23505"

// BaseRepository provides transaction handling shared by all repositories.
type BaseRepository struct {
	Pool DBPool
}

// NewBaseRepository creates a BaseRepository over pool.
func NewBaseRepository(pool DBPool) *BaseRepository {
	return &BaseRepository{Pool: pool}
}

// ExecuteTx runs fn in a transaction, rolling back on error or panic.
func (r *BaseRepository) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return apperrors.NewAppError(500, "failed to begin transaction", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.NewAppError(500, "failed to commit transaction", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
