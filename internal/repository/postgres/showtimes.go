package postgresrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/absolut-cinema/internal/domain"
	"github.com/kirinyoku/absolut-cinema/internal/repository"
)

type ShowtimeRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *ShowtimeRepo) With(db DB) *ShowtimeRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ShowtimeRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// seatDoc is the jsonb layout of one entry of showtimes.seats.
type seatDoc struct {
	Seat      string     `json:"seat"`
	Status    string     `json:"status"`
	BookingID *uuid.UUID `json:"booking_id,omitempty"`
}

func encodeSeats(seats []domain.Seat) ([]byte, error) {
	docs := make([]seatDoc, len(seats))
	for i, s := range seats {
		docs[i] = seatDoc{Seat: s.Label, Status: string(s.Status), BookingID: s.BookingID}
	}
	return json.Marshal(docs)
}

func decodeSeats(raw []byte) ([]domain.Seat, error) {
	var docs []seatDoc
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, err
	}

	seats := make([]domain.Seat, len(docs))
	for i, d := range docs {
		seats[i] = domain.Seat{Label: d.Seat, Status: domain.SeatStatus(d.Status), BookingID: d.BookingID}
	}
	return seats, nil
}

const showtimeColumns = `id, movie_id, venue_id, screen_name, starts_at, price_cents, seats, version, updated_at`

func scanShowtime(row pgx.Row) (*domain.Showtime, error) {
	var s domain.Showtime
	var raw []byte

	if err := row.Scan(
		&s.ID,
		&s.MovieID,
		&s.VenueID,
		&s.ScreenName,
		&s.StartsAt,
		&s.PriceCents,
		&raw,
		&s.Version,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}

	seats, err := decodeSeats(raw)
	if err != nil {
		return nil, fmt.Errorf("decode seats: %w", err)
	}
	s.Seats = seats

	return &s, nil
}

// GetShowtime retrieves a showtime with its embedded seat list.
//
// Returns:
//   - *domain.Showtime: the showtime when found.
//   - error: repository.ErrNotFound if the showtime does not exist.
func (r *ShowtimeRepo) GetShowtime(ctx context.Context, id uuid.UUID) (*domain.Showtime, error) {
	const op = "postgresrepo.ShowtimeRepo.GetShowtime"

	db := r.handle()

	s, err := scanShowtime(db.QueryRow(ctx,
		`SELECT `+showtimeColumns+`
		 FROM showtimes WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return s, nil
}

// UpdateSeats writes the seat list with a compare-and-swap on version.
//
// Returns:
//   - int64: the new version.
//   - error: repository.ErrVersionConflict if the version moved since it was read.
//   - error: repository.ErrNotFound if the showtime does not exist.
func (r *ShowtimeRepo) UpdateSeats(
	ctx context.Context,
	id uuid.UUID,
	seats []domain.Seat,
	expectedVersion int64,
) (int64, error) {
	const op = "postgresrepo.ShowtimeRepo.UpdateSeats"

	db := r.handle()

	raw, err := encodeSeats(seats)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var version int64
	err = db.QueryRow(ctx,
		`UPDATE showtimes
		 SET seats = $2, version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $3
		 RETURNING version`,
		id, raw, expectedVersion,
	).Scan(&version)
	if err == nil {
		return version, nil
	}

	err = translateDBErr(err)
	if !errors.Is(err, repository.ErrNotFound) {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var exists bool
	if err := db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM showtimes WHERE id = $1)`,
		id,
	).Scan(&exists); err != nil {
		return 0, wrapDBErr(op, err)
	}

	if !exists {
		return 0, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return 0, fmt.Errorf("%s: %w", op, repository.ErrVersionConflict)
}

// ListShowtimes returns every showtime with its seats, ordered by start time.
func (r *ShowtimeRepo) ListShowtimes(ctx context.Context) ([]domain.Showtime, error) {
	const op = "postgresrepo.ShowtimeRepo.ListShowtimes"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT `+showtimeColumns+`
		 FROM showtimes
		 ORDER BY starts_at, id`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Showtime
	for rows.Next() {
		s, err := scanShowtime(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
