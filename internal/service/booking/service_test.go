package booking

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/absolut-cinema/internal/domain"
	"github.com/kirinyoku/absolut-cinema/internal/repository/memory"
	"github.com/kirinyoku/absolut-cinema/internal/service/ports"
	"github.com/kirinyoku/absolut-cinema/internal/service/reservation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type recordingEvents struct {
	mu     sync.Mutex
	events []ports.BookingConfirmed
}

func (r *recordingEvents) PublishBookingConfirmed(_ context.Context, ev ports.BookingConfirmed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

type fixture struct {
	store      *memory.Store
	showtimeID uuid.UUID
	claims     *reservation.Service
	svc        *Service
	events     *recordingEvents
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.New()

	seats := make([]domain.Seat, 10)
	for i := range seats {
		seats[i] = domain.Seat{Label: fmt.Sprintf("A%d", i+1), Status: domain.SeatAvailable}
	}

	showtimeID := uuid.New()
	err := store.Do(context.Background(), func(ctx context.Context, repos ports.Repos, _ func(ports.AfterCommit)) error {
		return repos.Catalog().UpsertShowtime(ctx, domain.Showtime{
			ID:         showtimeID,
			MovieID:    uuid.New(),
			VenueID:    uuid.New(),
			PriceCents: 40000,
			Seats:      seats,
		})
	})
	require.NoError(t, err)

	claims := reservation.New(store, nil, nil, nil, discard, reservation.Config{})
	events := &recordingEvents{}

	return &fixture{
		store:      store,
		showtimeID: showtimeID,
		claims:     claims,
		svc:        New(store, claims, events, discard, Config{}),
		events:     events,
	}
}

func (f *fixture) claim(t *testing.T, labels ...string) *domain.Booking {
	t.Helper()

	c, err := f.claims.ClaimSeats(context.Background(), reservation.ClaimRequest{
		ShowtimeID: f.showtimeID,
		UserID:     uuid.New(),
		Labels:     labels,
	})
	require.NoError(t, err)

	return c.Booking
}

func (f *fixture) seats(t *testing.T) map[string]domain.Seat {
	t.Helper()

	out := map[string]domain.Seat{}
	err := f.store.Do(context.Background(), func(ctx context.Context, repos ports.Repos, _ func(ports.AfterCommit)) error {
		st, err := repos.Showtimes().GetShowtime(ctx, f.showtimeID)
		if err != nil {
			return err
		}
		for _, s := range st.Seats {
			out[s.Label] = s
		}
		return nil
	})
	require.NoError(t, err)

	return out
}

var ticketRefPattern = regexp.MustCompile(`^ACB-[A-Z0-9]{5}$`)

func TestConfirmPayment_GCash(t *testing.T) {
	f := newFixture(t)
	pending := f.claim(t, "A1", "A2")

	b, err := f.svc.ConfirmPayment(context.Background(), pending.ID, "gcash", "09171234567")
	require.NoError(t, err)

	assert.Equal(t, domain.BookingConfirmed, b.Status)
	require.NotNil(t, b.Payment)
	assert.Equal(t, domain.PaymentGCash, b.Payment.Method)
	assert.Equal(t, "GCash ••••4567", b.Payment.MaskedAccount)
	require.NotNil(t, b.Ticket)
	assert.Regexp(t, ticketRefPattern, b.Ticket.Ref)
	assert.Equal(t, domain.TicketActive, b.Ticket.Status)

	seats := f.seats(t)
	for _, label := range []string{"A1", "A2"} {
		assert.Equal(t, domain.SeatSold, seats[label].Status, label)
		assert.Equal(t, pending.ID, *seats[label].BookingID, label)
	}

	stored, err := f.svc.Get(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, "GCash ••••4567", stored.Payment.MaskedAccount)
	assert.NotContains(t, stored.Payment.MaskedAccount, "0917")

	require.Len(t, f.events.events, 1)
	assert.Equal(t, b.Ticket.Ref, f.events.events[0].TicketRef)
	assert.Equal(t, int64(80000), f.events.events[0].TotalCents)
}

func TestConfirmPayment_AlreadyConfirmedKeepsTicket(t *testing.T) {
	f := newFixture(t)
	pending := f.claim(t, "A3")

	first, err := f.svc.ConfirmPayment(context.Background(), pending.ID, "card", "4111111111114444")
	require.NoError(t, err)

	_, err = f.svc.ConfirmPayment(context.Background(), pending.ID, "card", "4111111111119999")
	assert.ErrorIs(t, err, ErrAlreadyConfirmed)

	stored, err := f.svc.Get(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Ticket.Ref, stored.Ticket.Ref)
	assert.Equal(t, "Card ••••4444", stored.Payment.MaskedAccount)
	assert.Len(t, f.events.events, 1)
}

func TestConfirmPayment_RerollsTakenTicketRef(t *testing.T) {
	f := newFixture(t)

	refs := []string{"ACB-AAAAA", "ACB-AAAAA", "ACB-BBBBB"}
	f.svc.refGen = func() string {
		ref := refs[0]
		refs = refs[1:]
		return ref
	}

	first, err := f.svc.ConfirmPayment(context.Background(), f.claim(t, "A1").ID, "card", "1234")
	require.NoError(t, err)
	assert.Equal(t, "ACB-AAAAA", first.Ticket.Ref)

	second, err := f.svc.ConfirmPayment(context.Background(), f.claim(t, "A2").ID, "card", "5678")
	require.NoError(t, err)
	assert.Equal(t, "ACB-BBBBB", second.Ticket.Ref)
}

func TestConfirmPayment_InvalidPayment(t *testing.T) {
	f := newFixture(t)
	pending := f.claim(t, "A1")

	_, err := f.svc.ConfirmPayment(context.Background(), pending.ID, "paypal", "09171234567")
	assert.ErrorIs(t, err, ErrInvalidPayment)

	_, err = f.svc.ConfirmPayment(context.Background(), pending.ID, "card", "12")
	assert.ErrorIs(t, err, ErrInvalidPayment)

	assert.Equal(t, domain.SeatHeld, f.seats(t)["A1"].Status)
}

func TestConfirmPayment_UnknownBooking(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ConfirmPayment(context.Background(), uuid.New(), "card", "4444")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestConfirmPayment_HoldExpired(t *testing.T) {
	f := newFixture(t)
	pending := f.claim(t, "A1")

	f.svc.now = func() time.Time { return pending.ExpiresAt.Add(time.Second) }

	_, err := f.svc.ConfirmPayment(context.Background(), pending.ID, "card", "4444")
	assert.ErrorIs(t, err, ErrHoldExpired)
	assert.Equal(t, domain.SeatHeld, f.seats(t)["A1"].Status)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	pending := f.claim(t, "A1", "A2")

	b, err := f.svc.Cancel(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, b.Status)

	seats := f.seats(t)
	for _, label := range []string{"A1", "A2"} {
		assert.Equal(t, domain.SeatAvailable, seats[label].Status, label)
		assert.Nil(t, seats[label].BookingID, label)
	}

	_, err = f.svc.Cancel(context.Background(), pending.ID)
	assert.ErrorIs(t, err, ErrNotPending)

	_, err = f.svc.ConfirmPayment(context.Background(), pending.ID, "card", "4444")
	assert.ErrorIs(t, err, ErrNotPending)

	// released seats can be claimed again
	f.claim(t, "A1")
}

func TestCancel_Confirmed(t *testing.T) {
	f := newFixture(t)
	pending := f.claim(t, "A1")

	_, err := f.svc.ConfirmPayment(context.Background(), pending.ID, "gcash", "09171234567")
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), pending.ID)
	assert.ErrorIs(t, err, ErrAlreadyConfirmed)
	assert.Equal(t, domain.SeatSold, f.seats(t)["A1"].Status)
}

func TestExpireHolds(t *testing.T) {
	f := newFixture(t)
	stale := f.claim(t, "A1")
	paid := f.claim(t, "A2")

	_, err := f.svc.ConfirmPayment(context.Background(), paid.ID, "card", "4444")
	require.NoError(t, err)

	// nothing has expired yet
	n, err := f.svc.ExpireHolds(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	f.svc.now = func() time.Time { return stale.ExpiresAt.Add(time.Minute) }

	n, err = f.svc.ExpireHolds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	b, err := f.svc.Get(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingAbandoned, b.Status)

	seats := f.seats(t)
	assert.Equal(t, domain.SeatAvailable, seats["A1"].Status)
	assert.Equal(t, domain.SeatSold, seats["A2"].Status)

	_, err = f.svc.ConfirmPayment(context.Background(), stale.ID, "card", "4444")
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestTicket(t *testing.T) {
	f := newFixture(t)
	pending := f.claim(t, "A1")

	_, err := f.svc.Ticket(context.Background(), pending.ID)
	assert.ErrorIs(t, err, ErrTicketNotIssued)

	confirmed, err := f.svc.ConfirmPayment(context.Background(), pending.ID, "card", "4444")
	require.NoError(t, err)

	b, err := f.svc.Ticket(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, confirmed.Ticket.Ref, b.Ticket.Ref)

	_, err = f.svc.Ticket(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestConfirmPayment_DefaultTicketRefs(t *testing.T) {
	f := newFixture(t)

	refs := map[string]bool{}
	for _, label := range []string{"A1", "A2", "A3", "A4", "A5"} {
		b, err := f.svc.ConfirmPayment(context.Background(), f.claim(t, label).ID, "card", "4111111111114444")
		require.NoError(t, err, label)
		require.NotNil(t, b.Ticket, label)
		assert.Regexp(t, ticketRefPattern, b.Ticket.Ref)
		refs[b.Ticket.Ref] = true
	}
	assert.Len(t, refs, 5)
	assert.Len(t, f.events.events, 5)
}

func TestNewTicketRef(t *testing.T) {
	seen := map[string]bool{}
	chars := map[rune]int{}
	for range 2000 {
		ref := newTicketRef()
		require.Regexp(t, ticketRefPattern, ref)
		seen[ref] = true
		for _, r := range ref[len(ticketPrefix):] {
			chars[r]++
		}
	}
	assert.Greater(t, len(seen), 1990)

	// every symbol of the alphabet shows up
	for _, r := range ticketAlphabet {
		assert.Positive(t, chars[r], string(r))
	}
	assert.Len(t, chars, len(ticketAlphabet))
}
