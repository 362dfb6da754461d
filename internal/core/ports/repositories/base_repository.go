package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// TransactionManager runs a unit of work inside a single database transaction.
type TransactionManager interface {
	// ExecuteTx begins a transaction, runs fn and commits. Any error returned by fn,
	// or a panic inside it, rolls the whole transaction back.
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}
