package memory

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/absolut-cinema/internal/domain"
	"github.com/kirinyoku/absolut-cinema/internal/repository"
	"github.com/kirinyoku/absolut-cinema/internal/service/ports"
)

type seatWrite struct {
	base    int64
	version int64
	seats   []domain.Seat
	at      time.Time
}

type bookingWrite struct {
	booking domain.Booking
	base    domain.BookingStatus
	created bool
}

// tx is the view of one Do call. Showtime and booking writes are buffered
// until commit; catalog writes are applied immediately.
type tx struct {
	store         *Store
	seatWrites    map[uuid.UUID]seatWrite
	bookingWrites map[uuid.UUID]bookingWrite
}

func newTx(s *Store) *tx {
	return &tx{
		store:         s,
		seatWrites:    make(map[uuid.UUID]seatWrite),
		bookingWrites: make(map[uuid.UUID]bookingWrite),
	}
}

func (t *tx) Showtimes() ports.ShowtimeRepo { return t }
func (t *tx) Bookings() ports.BookingRepo   { return t }
func (t *tx) Catalog() ports.CatalogRepo    { return t }
func (t *tx) Users() ports.UserDirectory    { return t }

func (t *tx) overlayShowtime(st domain.Showtime) domain.Showtime {
	if w, ok := t.seatWrites[st.ID]; ok {
		st.Seats = cloneSeats(w.seats)
		st.Version = w.version
		st.UpdatedAt = w.at
	}
	return st
}

func (t *tx) GetShowtime(ctx context.Context, id uuid.UUID) (*domain.Showtime, error) {
	st, ok := t.store.showtime(id)
	if !ok {
		return nil, repository.ErrNotFound
	}

	st = t.overlayShowtime(st)
	return &st, nil
}

func (t *tx) UpdateSeats(ctx context.Context, id uuid.UUID, seats []domain.Seat, expectedVersion int64) (int64, error) {
	cur, err := t.GetShowtime(ctx, id)
	if err != nil {
		return 0, err
	}

	if cur.Version != expectedVersion {
		return 0, repository.ErrVersionConflict
	}

	base := expectedVersion
	if w, ok := t.seatWrites[id]; ok {
		base = w.base
	}

	t.seatWrites[id] = seatWrite{
		base:    base,
		version: expectedVersion + 1,
		seats:   cloneSeats(seats),
		at:      time.Now().UTC(),
	}

	return expectedVersion + 1, nil
}

func (t *tx) ListShowtimes(ctx context.Context) ([]domain.Showtime, error) {
	out := t.store.snapshotShowtimes()
	for i := range out {
		out[i] = t.overlayShowtime(out[i])
	}

	sortShowtimes(out)
	return out, nil
}

func (t *tx) bookingsView() []domain.Booking {
	all := t.store.snapshotBookings()

	out := make([]domain.Booking, 0, len(all)+len(t.bookingWrites))
	for _, b := range all {
		if w, ok := t.bookingWrites[b.ID]; ok {
			b = cloneBooking(w.booking)
		}
		out = append(out, b)
	}
	for _, w := range t.bookingWrites {
		if w.created {
			out = append(out, cloneBooking(w.booking))
		}
	}

	return out
}

func (t *tx) CreateBooking(ctx context.Context, b *domain.Booking) error {
	for _, existing := range t.bookingsView() {
		if existing.ID == b.ID {
			return repository.ErrConflict
		}
		if b.RequestToken != "" &&
			existing.UserID == b.UserID &&
			existing.RequestToken == b.RequestToken {
			return repository.ErrConflict
		}
	}

	t.bookingWrites[b.ID] = bookingWrite{
		booking: cloneBooking(*b),
		base:    b.Status,
		created: true,
	}

	return nil
}

func (t *tx) GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	if w, ok := t.bookingWrites[id]; ok {
		b := cloneBooking(w.booking)
		return &b, nil
	}

	b, ok := t.store.booking(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (t *tx) GetBookingByRequestToken(ctx context.Context, userID uuid.UUID, token string) (*domain.Booking, error) {
	for _, b := range t.bookingsView() {
		if b.UserID == userID && b.RequestToken == token {
			return &b, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (t *tx) TicketRefExists(ctx context.Context, ref string) (bool, error) {
	for _, b := range t.bookingsView() {
		if b.Ticket != nil && b.Ticket.Ref == ref {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) UpdateBooking(ctx context.Context, b *domain.Booking, expected domain.BookingStatus) error {
	cur, err := t.GetBooking(ctx, b.ID)
	if err != nil {
		return err
	}

	if cur.Status != expected {
		return repository.ErrVersionConflict
	}

	w, ok := t.bookingWrites[b.ID]
	if !ok {
		w = bookingWrite{base: expected}
	}

	cur.Status = b.Status
	cur.Payment = b.Payment
	cur.Ticket = b.Ticket
	cur.UpdatedAt = b.UpdatedAt
	w.booking = cloneBooking(*cur)

	t.bookingWrites[b.ID] = w
	return nil
}

func (t *tx) ListBookings(ctx context.Context) ([]domain.Booking, error) {
	out := t.bookingsView()
	sortBookings(out)
	return out, nil
}

func (t *tx) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, b := range t.bookingsView() {
		if b.Status == domain.BookingPending && b.Expired(now) {
			out = append(out, b)
		}
	}

	slices.SortFunc(out, func(a, b domain.Booking) int {
		return a.ExpiresAt.Compare(b.ExpiresAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
