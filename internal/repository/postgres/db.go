package postgresrepo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/absolut-cinema/internal/service/ports"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
	}
}

func (s *Store) RunTx(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx DB) error,
) error {
	txOpts := pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	}

	if opts != nil {
		txOpts.IsoLevel = opts.IsoLevel
		txOpts.AccessMode = opts.AccessMode
		txOpts.DeferrableMode = opts.DeferrableMode
	}

	tx, err := s.pool.BeginTx(ctx, txOpts)
	if err != nil {
		return translateDBErr(err)
	}

	defer tx.Rollback(ctx)

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", translateDBErr(err))
	}

	return nil
}

func (s *Store) Showtimes() *ShowtimeRepo { return &ShowtimeRepo{pool: s.pool} }
func (s *Store) Bookings() *BookingRepo   { return &BookingRepo{pool: s.pool} }
func (s *Store) Catalog() *CatalogRepo    { return &CatalogRepo{pool: s.pool} }
func (s *Store) Users() *UserRepo         { return &UserRepo{pool: s.pool} }

// Bind returns repositories that run their statements on db.
func (s *Store) Bind(db DB) ports.Repos {
	return txRepos{store: s, db: db}
}

type txRepos struct {
	store *Store
	db    DB
}

func (r txRepos) Showtimes() ports.ShowtimeRepo { return r.store.Showtimes().With(r.db) }
func (r txRepos) Bookings() ports.BookingRepo   { return r.store.Bookings().With(r.db) }
func (r txRepos) Catalog() ports.CatalogRepo    { return r.store.Catalog().With(r.db) }
func (r txRepos) Users() ports.UserDirectory    { return r.store.Users().With(r.db) }
