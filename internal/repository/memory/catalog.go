package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/absolut-cinema/internal/domain"
	"github.com/kirinyoku/absolut-cinema/internal/repository"
)

func (t *tx) UpsertVenue(ctx context.Context, v domain.Venue) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	v.Features = slices.Clone(v.Features)
	t.store.venues[v.ID] = v
	return nil
}

func (t *tx) UpsertMovie(ctx context.Context, m domain.Movie) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	t.store.movies[m.ID] = m
	return nil
}

func (t *tx) UpsertUser(ctx context.Context, u domain.User) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	t.store.users[u.ID] = u
	return nil
}

// UpsertShowtime keeps the seats and version of an existing showtime.
func (t *tx) UpsertShowtime(ctx context.Context, s domain.Showtime) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if cur, ok := t.store.showtimes[s.ID]; ok {
		cur.ScreenName = s.ScreenName
		cur.StartsAt = s.StartsAt
		t.store.showtimes[s.ID] = cur
		return nil
	}

	s.Seats = cloneSeats(s.Seats)
	s.Version = 1
	s.UpdatedAt = time.Now().UTC()
	t.store.showtimes[s.ID] = s
	return nil
}

func (t *tx) ListMovies(ctx context.Context) ([]domain.Movie, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	out := make([]domain.Movie, 0, len(t.store.movies))
	for _, m := range t.store.movies {
		out = append(out, m)
	}

	slices.SortFunc(out, func(a, b domain.Movie) int {
		return cmp.Compare(a.Title, b.Title)
	})
	return out, nil
}

func (t *tx) GetMovie(ctx context.Context, id uuid.UUID) (*domain.Movie, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	m, ok := t.store.movies[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (t *tx) GetVenue(ctx context.Context, id uuid.UUID) (*domain.Venue, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	v, ok := t.store.venues[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	v.Features = slices.Clone(v.Features)
	return &v, nil
}

func (t *tx) ListShowtimesByMovie(ctx context.Context, movieID uuid.UUID) ([]domain.ShowtimeSummary, error) {
	all, err := t.ListShowtimes(ctx)
	if err != nil {
		return nil, err
	}

	var out []domain.ShowtimeSummary
	for _, st := range all {
		if st.MovieID != movieID {
			continue
		}

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
		out = append(out, sum)
	}

	return out, nil
}

func (t *tx) ExistingUserIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	out := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if _, ok := t.store.users[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}
