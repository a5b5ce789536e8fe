// Package memory is an in-process implementation of the storage ports with
// the same optimistic-concurrency contract as the Postgres store. Writes made
// inside Do are buffered and applied atomically at commit, which fails with
// repository.ErrVersionConflict when a showtime version or booking status the
// transaction wrote against has moved.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/kirinyoku/absolut-cinema/internal/domain"
	"github.com/kirinyoku/absolut-cinema/internal/repository"
	"github.com/kirinyoku/absolut-cinema/internal/service/ports"
)

type Store struct {
	mu        sync.RWMutex
	showtimes map[uuid.UUID]domain.Showtime
	bookings  map[uuid.UUID]domain.Booking
	movies    map[uuid.UUID]domain.Movie
	venues    map[uuid.UUID]domain.Venue
	users     map[uuid.UUID]domain.User
}

func New() *Store {
	return &Store{
		showtimes: make(map[uuid.UUID]domain.Showtime),
		bookings:  make(map[uuid.UUID]domain.Booking),
		movies:    make(map[uuid.UUID]domain.Movie),
		venues:    make(map[uuid.UUID]domain.Venue),
		users:     make(map[uuid.UUID]domain.User),
	}
}

// Do runs fn against a transaction view and commits its writes atomically.
// After a successful commit, it executes all after-commit hooks.
func (s *Store) Do(
	ctx context.Context,
	fn func(ctx context.Context, repos ports.Repos, after func(ports.AfterCommit)) error,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t := newTx(s)

	var hooks []ports.AfterCommit
	if err := fn(ctx, t, func(h ports.AfterCommit) {
		hooks = append(hooks, h)
	}); err != nil {
		return err
	}

	if err := s.commit(t); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}

func (s *Store) commit(t *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, w := range t.seatWrites {
		cur, ok := s.showtimes[id]
		if !ok {
			return repository.ErrNotFound
		}
		if cur.Version != w.base {
			return repository.ErrVersionConflict
		}
	}

	refs := make(map[string]uuid.UUID)
	tokens := make(map[string]uuid.UUID)
	for id, b := range s.bookings {
		if _, rewritten := t.bookingWrites[id]; rewritten {
			continue
		}
		if b.Ticket != nil {
			refs[b.Ticket.Ref] = id
		}
		if b.RequestToken != "" {
			tokens[tokenKey(b.UserID, b.RequestToken)] = id
		}
	}

	for id, w := range t.bookingWrites {
		cur, exists := s.bookings[id]
		if w.created && exists {
			return repository.ErrConflict
		}
		if !w.created {
			if !exists {
				return repository.ErrNotFound
			}
			if cur.Status != w.base {
				return repository.ErrVersionConflict
			}
		}

		if w.booking.Ticket != nil {
			if other, taken := refs[w.booking.Ticket.Ref]; taken && other != id {
				return fmt.Errorf("%w: ticket_ref", repository.ErrConflict)
			}
			refs[w.booking.Ticket.Ref] = id
		}
		if w.booking.RequestToken != "" {
			key := tokenKey(w.booking.UserID, w.booking.RequestToken)
			if other, taken := tokens[key]; taken && other != id {
				return fmt.Errorf("%w: request_token", repository.ErrConflict)
			}
			tokens[key] = id
		}
	}

	for id, w := range t.seatWrites {
		cur := s.showtimes[id]
		cur.Seats = cloneSeats(w.seats)
		cur.Version = w.version
		cur.UpdatedAt = w.at
		s.showtimes[id] = cur
	}

	for id, w := range t.bookingWrites {
		s.bookings[id] = cloneBooking(w.booking)
	}

	return nil
}

func tokenKey(userID uuid.UUID, token string) string {
	return userID.String() + "/" + token
}

func (s *Store) showtime(id uuid.UUID) (domain.Showtime, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.showtimes[id]
	if !ok {
		return domain.Showtime{}, false
	}
	st.Seats = cloneSeats(st.Seats)
	return st, true
}

func (s *Store) booking(id uuid.UUID) (domain.Booking, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[id]
	if !ok {
		return domain.Booking{}, false
	}
	return cloneBooking(b), true
}

func (s *Store) snapshotShowtimes() []domain.Showtime {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Showtime, 0, len(s.showtimes))
	for _, st := range s.showtimes {
		st.Seats = cloneSeats(st.Seats)
		out = append(out, st)
	}
	return out
}

func (s *Store) snapshotBookings() []domain.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, cloneBooking(b))
	}
	return out
}

func cloneSeats(seats []domain.Seat) []domain.Seat {
	st := domain.Showtime{Seats: seats}
	return st.CloneSeats()
}

func cloneBooking(b domain.Booking) domain.Booking {
	b.Seats = slices.Clone(b.Seats)
	if b.Payment != nil {
		p := *b.Payment
		b.Payment = &p
	}
	if b.Ticket != nil {
		t := *b.Ticket
		b.Ticket = &t
	}
	return b
}

func sortShowtimes(out []domain.Showtime) {
	slices.SortFunc(out, func(a, b domain.Showtime) int {
		if c := a.StartsAt.Compare(b.StartsAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
}

func sortBookings(out []domain.Booking) {
	slices.SortFunc(out, func(a, b domain.Booking) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
}
