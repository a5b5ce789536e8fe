package uow

import (
	"context"

	"github.com/jackc/pgx/v5"

	postgresrepo "github.com/kirinyoku/absolut-cinema/internal/repository/postgres"
	"github.com/kirinyoku/absolut-cinema/internal/service/ports"
)

// UoW represents a unit of work over the Postgres store.
type UoW struct {
	store *postgresrepo.Store
	opts  *pgx.TxOptions
}

func NewUoW(store *postgresrepo.Store) *UoW {
	return &UoW{store: store}
}

// NewReadOnlyUoW returns a unit of work whose transactions are serializable,
// read-only and deferrable: a consistent snapshot that never aborts writers.
func NewReadOnlyUoW(store *postgresrepo.Store) *UoW {
	return &UoW{
		store: store,
		opts: &pgx.TxOptions{
			IsoLevel:       pgx.Serializable,
			AccessMode:     pgx.ReadOnly,
			DeferrableMode: pgx.Deferrable,
		},
	}
}

// Do runs fn inside the transaction. After a successful commit,
// it executes all after-commit hooks.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, repos ports.Repos, after func(ports.AfterCommit)) error,
) error {
	return u.DoWithOpts(ctx, u.opts, fn)
}

// DoWithOpts runs fn inside the transaction with the given options. After a successful commit,
// it executes all after-commit hooks.
func (u *UoW) DoWithOpts(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, repos ports.Repos, after func(ports.AfterCommit)) error,
) error {
	var hooks []ports.AfterCommit

	err := u.store.RunTx(ctx, opts, func(ctx context.Context, tx postgresrepo.DB) error {
		return fn(ctx, u.store.Bind(tx), func(h ports.AfterCommit) {
			hooks = append(hooks, h)
		})
	})
	if err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}
