package catalog

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/absolut-cinema/internal/domain"
	"github.com/kirinyoku/absolut-cinema/internal/repository/memory"
	"github.com/kirinyoku/absolut-cinema/internal/service/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type spyCache struct {
	mu          sync.Mutex
	invalidated []uuid.UUID
	catalogDrop int
}

func (c *spyCache) Movies(
	ctx context.Context,
	_ time.Duration,
	load func(ctx context.Context) ([]domain.Movie, error),
) ([]domain.Movie, error) {
	return load(ctx)
}

func (c *spyCache) MovieShowtimes(
	ctx context.Context,
	_ uuid.UUID,
	_ time.Duration,
	load func(ctx context.Context) ([]domain.ShowtimeSummary, error),
) ([]domain.ShowtimeSummary, error) {
	return load(ctx)
}

func (c *spyCache) InvalidateMovieShowtimes(_ context.Context, movieID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, movieID)
	return nil
}

func (c *spyCache) InvalidateCatalog(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.catalogDrop++
	return nil
}

func newSeeded(t *testing.T, cache ports.CatalogCache) (*Service, *memory.Store, Fixtures) {
	t.Helper()

	store := memory.New()
	svc := New(store, cache, discard, Config{})
	fx := DefaultFixtures(time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC))

	require.NoError(t, svc.Seed(context.Background(), fx))

	return svc, store, fx
}

func TestDefaultFixtures(t *testing.T) {
	fx := DefaultFixtures(time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC))

	assert.Len(t, fx.Venues, 3)
	assert.Len(t, fx.Movies, 3)
	assert.Len(t, fx.Users, 4)
	require.Len(t, fx.Showtimes, 7)
	require.Len(t, fx.Bookings, 7)

	refs := map[string]bool{}
	for i, st := range fx.Showtimes {
		assert.Len(t, st.Seats, 15)
		assert.True(t, st.StartsAt.After(time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)))

		b := fx.Bookings[i]
		assert.Equal(t, st.ID, b.ShowtimeID)
		assert.Equal(t, b.UnitPriceCents*int64(len(b.Seats)), b.TotalCents)
		refs[b.Ticket.Ref] = true
	}
	assert.Len(t, refs, 7)

	// stable across calls
	again := DefaultFixtures(time.Date(2026, 5, 1, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, fx.Showtimes[0].ID, again.Showtimes[0].ID)
	assert.Equal(t, fx.Showtimes[0].StartsAt, again.Showtimes[0].StartsAt)
}

func TestListMovies(t *testing.T) {
	svc, _, _ := newSeeded(t, nil)

	movies, err := svc.ListMovies(context.Background())
	require.NoError(t, err)

	titles := make([]string, len(movies))
	for i, m := range movies {
		titles[i] = m.Title
	}
	assert.Equal(t, []string{"Interstellar", "The Dark Knight", "White Chicks"}, titles)
}

func TestMovieShowtimes(t *testing.T) {
	svc, _, fx := newSeeded(t, nil)

	out, err := svc.MovieShowtimes(context.Background(), fx.Movies[0].ID)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, fx.Showtimes[0].ID, out[0].ID)
	assert.Equal(t, 15, out[0].Total)
	assert.Equal(t, 12, out[0].Available)

	_, err = svc.MovieShowtimes(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrMovieNotFound)
}

func TestShowtime(t *testing.T) {
	svc, _, fx := newSeeded(t, nil)

	d, err := svc.Showtime(context.Background(), fx.Showtimes[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "White Chicks", d.Movie.Title)
	assert.Equal(t, "Absolut Cinema - SM North", d.Venue.Name)
	assert.Equal(t, int64(42000), d.Showtime.PriceCents)
	assert.Equal(t, 13, d.Showtime.Available)

	_, err = svc.Showtime(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrShowtimeNotFound)
}

func TestSeed_Idempotent(t *testing.T) {
	ctx := context.Background()
	cache := &spyCache{}
	svc, store, fx := newSeeded(t, cache)
	showtimeID := fx.Showtimes[0].ID

	// a live seat write must survive reseeding
	err := store.Do(ctx, func(ctx context.Context, repos ports.Repos, _ func(ports.AfterCommit)) error {
		st, err := repos.Showtimes().GetShowtime(ctx, showtimeID)
		require.NoError(t, err)
		seats := st.CloneSeats()
		owner := fx.Bookings[0].ID
		seats[0].Status = domain.SeatHeld
		seats[0].BookingID = &owner
		_, err = repos.Showtimes().UpdateSeats(ctx, showtimeID, seats, st.Version)
		return err
	})
	require.NoError(t, err)

	require.NoError(t, svc.Seed(ctx, fx))

	err = store.Do(ctx, func(ctx context.Context, repos ports.Repos, _ func(ports.AfterCommit)) error {
		st, err := repos.Showtimes().GetShowtime(ctx, showtimeID)
		require.NoError(t, err)
		assert.Equal(t, domain.SeatHeld, st.Seats[0].Status)

		bookings, err := repos.Bookings().ListBookings(ctx)
		require.NoError(t, err)
		assert.Len(t, bookings, len(fx.Bookings))
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 2, cache.catalogDrop)
}

func TestShowtimeChanged_InvalidatesMovieShowtimes(t *testing.T) {
	cache := &spyCache{}
	svc, _, fx := newSeeded(t, cache)
	cache.invalidated = nil

	svc.ShowtimeChanged(context.Background(), fx.Showtimes[3].ID)
	svc.ShowtimeChanged(context.Background(), uuid.New())

	assert.Equal(t, []uuid.UUID{fx.Showtimes[3].MovieID}, cache.invalidated)
}
