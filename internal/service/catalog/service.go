package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/absolut-cinema/internal/domain"
	"github.com/kirinyoku/absolut-cinema/internal/repository"
	"github.com/kirinyoku/absolut-cinema/internal/service/ports"
)

type Config struct {
	MoviesTTL    time.Duration
	ShowtimesTTL time.Duration
}

// Service serves the read-only catalog: movies, their showtimes and venues.
type Service struct {
	uow   ports.UnitOfWork
	cache ports.CatalogCache
	log   *slog.Logger
	cfg   Config
}

// New builds the service. cache may be nil.
func New(uow ports.UnitOfWork, cache ports.CatalogCache, log *slog.Logger, cfg Config) *Service {
	if cfg.MoviesTTL <= 0 {
		cfg.MoviesTTL = 5 * time.Minute
	}

	if cfg.ShowtimesTTL <= 0 {
		cfg.ShowtimesTTL = 15 * time.Second
	}

	if log == nil {
		log = slog.Default()
	}

	return &Service{
		uow:   uow,
		cache: cache,
		log:   log,
		cfg:   cfg,
	}
}

// ListMovies returns every movie ordered by title.
func (s *Service) ListMovies(ctx context.Context) ([]domain.Movie, error) {
	const op = "service.catalog.ListMovies"

	load := func(ctx context.Context) ([]domain.Movie, error) {
		var movies []domain.Movie
		err := s.uow.Do(ctx, func(ctx context.Context, repos ports.Repos, _ func(ports.AfterCommit)) error {
			var err error
			movies, err = repos.Catalog().ListMovies(ctx)
			return err
		})
		return movies, err
	}

	var (
		movies []domain.Movie
		err    error
	)
	if s.cache != nil {
		movies, err = s.cache.Movies(ctx, s.cfg.MoviesTTL, load)
	} else {
		movies, err = load(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return movies, nil
}

// MovieShowtimes lists the showtimes of a movie with their free seat counts.
//
// Returns:
//   - error: catalog.ErrMovieNotFound if the movie does not exist.
func (s *Service) MovieShowtimes(ctx context.Context, movieID uuid.UUID) ([]domain.ShowtimeSummary, error) {
	const op = "service.catalog.MovieShowtimes"

	load := func(ctx context.Context) ([]domain.ShowtimeSummary, error) {
		var out []domain.ShowtimeSummary
		err := s.uow.Do(ctx, func(ctx context.Context, repos ports.Repos, _ func(ports.AfterCommit)) error {
			if _, err := repos.Catalog().GetMovie(ctx, movieID); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return ErrMovieNotFound
				}
				return err
			}

			var err error
			out, err = repos.Catalog().ListShowtimesByMovie(ctx, movieID)
			return err
		})
		return out, err
	}

	var (
		out []domain.ShowtimeSummary
		err error
	)
	if s.cache != nil {
		out, err = s.cache.MovieShowtimes(ctx, movieID, s.cfg.ShowtimesTTL, load)
	} else {
		out, err = load(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

type ShowtimeDetail struct {
	Showtime domain.ShowtimeSummary
	Movie    domain.Movie
	Venue    domain.Venue
}

// Showtime returns a showtime with its movie and venue.
//
// Returns:
//   - error: catalog.ErrShowtimeNotFound if the showtime does not exist.
func (s *Service) Showtime(ctx context.Context, id uuid.UUID) (*ShowtimeDetail, error) {
	const op = "service.catalog.Showtime"

	var out ShowtimeDetail
	err := s.uow.Do(ctx, func(ctx context.Context, repos ports.Repos, _ func(ports.AfterCommit)) error {
		st, err := repos.Showtimes().GetShowtime(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrShowtimeNotFound
			}
			return err
		}

		movie, err := repos.Catalog().GetMovie(ctx, st.MovieID)
		if err != nil {
			return err
		}

		venue, err := repos.Catalog().GetVenue(ctx, st.VenueID)
		if err != nil {
			return err
		}

		out = ShowtimeDetail{
			Showtime: summarize(st),
			Movie:    *movie,
			Venue:    *venue,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// ShowtimeChanged drops the cached showtime list of the showtime's movie.
// It is the handler for seat-map change notifications.
func (s *Service) ShowtimeChanged(ctx context.Context, showtimeID uuid.UUID) {
	if s.cache == nil {
		return
	}

	var movieID uuid.UUID
	err := s.uow.Do(ctx, func(ctx context.Context, repos ports.Repos, _ func(ports.AfterCommit)) error {
		st, err := repos.Showtimes().GetShowtime(ctx, showtimeID)
		if err != nil {
			return err
		}
		movieID = st.MovieID
		return nil
	})
	if err != nil {
		s.log.Warn("resolve changed showtime",
			slog.String("showtime_id", showtimeID.String()),
			slog.Any("err", err),
		)
		return
	}

	if err := s.cache.InvalidateMovieShowtimes(ctx, movieID); err != nil {
		s.log.Warn("invalidate movie showtimes",
			slog.String("movie_id", movieID.String()),
			slog.Any("err", err),
		)
	}
}

func summarize(st *domain.Showtime) domain.ShowtimeSummary {
	sum := domain.ShowtimeSummary{
		ID:         st.ID,
		MovieID:    st.MovieID,
		VenueID:    st.VenueID,
		ScreenName: st.ScreenName,
		StartsAt:   st.StartsAt,
		PriceCents: st.PriceCents,
		Total:      len(st.Seats),
	}
	for _, seat := range st.Seats {
		if seat.Status == domain.SeatAvailable {
			sum.Available++
		}
	}
	return sum
}
