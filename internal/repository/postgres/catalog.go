package postgresrepo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/absolut-cinema/internal/domain"
)

type CatalogRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *CatalogRepo) With(db DB) *CatalogRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *CatalogRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *CatalogRepo) UpsertVenue(ctx context.Context, v domain.Venue) error {
	const op = "postgresrepo.CatalogRepo.UpsertVenue"

	db := r.handle()

	features := v.Features
	if features == nil {
		features = []string{}
	}

	if _, err := db.Exec(ctx,
		`INSERT INTO venues(id, name, city, address, contact_number, email, features)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE
		 SET name = EXCLUDED.name, city = EXCLUDED.city, address = EXCLUDED.address,
		 	contact_number = EXCLUDED.contact_number, email = EXCLUDED.email,
		 	features = EXCLUDED.features`,
		v.ID, v.Name, v.City, v.Address, v.ContactNumber, v.Email, features,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *CatalogRepo) UpsertMovie(ctx context.Context, m domain.Movie) error {
	const op = "postgresrepo.CatalogRepo.UpsertMovie"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`INSERT INTO movies(id, title, description, genre, rating, runtime_mins, release_date, director)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE
		 SET title = EXCLUDED.title, description = EXCLUDED.description,
		 	genre = EXCLUDED.genre, rating = EXCLUDED.rating,
		 	runtime_mins = EXCLUDED.runtime_mins, release_date = EXCLUDED.release_date,
		 	director = EXCLUDED.director`,
		m.ID, m.Title, m.Description, m.Genre, m.Rating, m.RuntimeMins, m.ReleaseDate, m.Director,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *CatalogRepo) UpsertUser(ctx context.Context, u domain.User) error {
	const op = "postgresrepo.CatalogRepo.UpsertUser"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`INSERT INTO users(id, name, email)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email`,
		u.ID, u.Name, u.Email,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// UpsertShowtime inserts a showtime. Seats of an existing showtime are
// never overwritten; only its schedule fields are refreshed.
func (r *CatalogRepo) UpsertShowtime(ctx context.Context, s domain.Showtime) error {
	const op = "postgresrepo.CatalogRepo.UpsertShowtime"

	db := r.handle()

	raw, err := encodeSeats(s.Seats)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := db.Exec(ctx,
		`INSERT INTO showtimes(id, movie_id, venue_id, screen_name, starts_at, price_cents, seats, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 1)
		 ON CONFLICT (id) DO UPDATE
		 SET screen_name = EXCLUDED.screen_name, starts_at = EXCLUDED.starts_at`,
		s.ID, s.MovieID, s.VenueID, s.ScreenName, s.StartsAt, s.PriceCents, raw,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *CatalogRepo) ListMovies(ctx context.Context) ([]domain.Movie, error) {
	const op = "postgresrepo.CatalogRepo.ListMovies"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, title, description, genre, rating, runtime_mins, release_date, director
		 FROM movies
		 ORDER BY title`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Movie
	for rows.Next() {
		var m domain.Movie
		if err := rows.Scan(
			&m.ID,
			&m.Title,
			&m.Description,
			&m.Genre,
			&m.Rating,
			&m.RuntimeMins,
			&m.ReleaseDate,
			&m.Director,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// GetMovie retrieves a movie by its ID.
//
// Returns:
//   - error: repository.ErrNotFound if the movie does not exist.
func (r *CatalogRepo) GetMovie(ctx context.Context, id uuid.UUID) (*domain.Movie, error) {
	const op = "postgresrepo.CatalogRepo.GetMovie"

	db := r.handle()

	var m domain.Movie
	err := db.QueryRow(ctx,
		`SELECT id, title, description, genre, rating, runtime_mins, release_date, director
		 FROM movies WHERE id = $1`,
		id,
	).Scan(&m.ID, &m.Title, &m.Description, &m.Genre, &m.Rating, &m.RuntimeMins, &m.ReleaseDate, &m.Director)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &m, nil
}

// GetVenue retrieves a venue by its ID.
//
// Returns:
//   - error: repository.ErrNotFound if the venue does not exist.
func (r *CatalogRepo) GetVenue(ctx context.Context, id uuid.UUID) (*domain.Venue, error) {
	const op = "postgresrepo.CatalogRepo.GetVenue"

	db := r.handle()

	var v domain.Venue
	err := db.QueryRow(ctx,
		`SELECT id, name, city, address, contact_number, email, features
		 FROM venues WHERE id = $1`,
		id,
	).Scan(&v.ID, &v.Name, &v.City, &v.Address, &v.ContactNumber, &v.Email, &v.Features)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &v, nil
}

// ListShowtimesByMovie lists the showtimes of a movie with seat counters
// computed from the embedded seat documents.
func (r *CatalogRepo) ListShowtimesByMovie(ctx context.Context, movieID uuid.UUID) ([]domain.ShowtimeSummary, error) {
	const op = "postgresrepo.CatalogRepo.ListShowtimesByMovie"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT s.id, s.movie_id, s.venue_id, s.screen_name, s.starts_at, s.price_cents,
		 	(SELECT COUNT(*) FROM jsonb_array_elements(s.seats) e WHERE e->>'status' = 'available'),
		 	jsonb_array_length(s.seats)
		 FROM showtimes s
		 WHERE s.movie_id = $1
		 ORDER BY s.starts_at`,
		movieID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.ShowtimeSummary
	for rows.Next() {
		var s domain.ShowtimeSummary
		if err := rows.Scan(
			&s.ID,
			&s.MovieID,
			&s.VenueID,
			&s.ScreenName,
			&s.StartsAt,
			&s.PriceCents,
			&s.Available,
			&s.Total,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
