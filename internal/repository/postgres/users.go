package postgresrepo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepo reads the users table mirrored from the identity provider.
type UserRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *UserRepo) With(db DB) *UserRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *UserRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *UserRepo) ExistingUserIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	const op = "postgresrepo.UserRepo.ExistingUserIDs"

	out := make(map[uuid.UUID]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}

	db := r.handle()

	rows, err := db.Query(ctx, `SELECT id FROM users WHERE id = ANY($1::uuid[])`, strIDs)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
