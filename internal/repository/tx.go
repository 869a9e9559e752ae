package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/campuskit/counselbook/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoRowsAffected is returned by guarded updates whose WHERE clause
// matched nothing, typically because the row left the expected state first.
var ErrNoRowsAffected = errors.New("repository: no rows affected")

// ErrOverlappingInterval is returned when an appointment insert hits the
// counselor overlap exclusion constraint: a concurrently committed
// appointment already occupies part of the interval.
var ErrOverlappingInterval = errors.New("repository: overlapping appointment interval")

// Tx is an open transaction scope. Write methods on the repositories accept
// a Tx to participate in the caller's transaction; a nil Tx means the
// operation runs on its own against the pool.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TxManager opens transaction scopes shared across the repositories
type TxManager struct {
	pool *pgxpool.Pool
}

// NewTxManager creates a transaction manager over the pool
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool}
}

// Begin opens a new transaction
func (m *TxManager) Begin(ctx context.Context) (Tx, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return tx, nil
}

// pgxTx unwraps a Tx back to the pgx transaction it was opened as.
// Repositories use it to route queries through an open transaction.
func pgxTx(tx Tx) (pgx.Tx, bool) {
	if tx == nil {
		return nil, false
	}
	ptx, ok := tx.(pgx.Tx)
	return ptx, ok
}

// querier selects the open transaction when one was passed, otherwise the
// pool
func querier(tx Tx, pool *pgxpool.Pool) base.Querier {
	if ptx, ok := pgxTx(tx); ok {
		return ptx
	}
	return pool
}
