package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrInsufficientStock is returned by DecrementStock when the guarded update
// matched no row.
var ErrInsufficientStock = errors.New("insufficient stock")

// Querier is satisfied by *pgxpool.Pool and pgx.Tx, so every repository can
// run either standalone or inside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repos interface {
	Users() UserRepository
	Products() ProductRepository
	Orders() OrderRepository
	Payments() PaymentRepository
}

// Store hands out repositories bound to the pool, and WithTx runs fn with
// repositories bound to a single transaction. The transaction commits only
// when fn returns nil; any error, early return or panic rolls it back.
type Store interface {
	Repos
	WithTx(ctx context.Context, fn func(tx Repos) error) error
	Ping(ctx context.Context) error
}

type repos struct{ q Querier }

func (r repos) Users() UserRepository       { return NewUserRepository(r.q) }
func (r repos) Products() ProductRepository { return NewProductRepository(r.q) }
func (r repos) Orders() OrderRepository     { return NewOrderRepository(r.q) }
func (r repos) Payments() PaymentRepository { return NewPaymentRepository(r.q) }

type pgStore struct {
	repos
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{repos: repos{q: pool}, pool: pool}
}

func (s *pgStore) WithTx(ctx context.Context, fn func(tx Repos) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	// No-op once committed.
	defer tx.Rollback(context.WithoutCancel(ctx)) //nolint:errcheck

	if err := fn(repos{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *pgStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
