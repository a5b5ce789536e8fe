package consistency

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/absolut-cinema/internal/domain"
	"github.com/kirinyoku/absolut-cinema/internal/repository/memory"
	"github.com/kirinyoku/absolut-cinema/internal/service/catalog"
	"github.com/kirinyoku/absolut-cinema/internal/service/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(t *testing.T) (*memory.Store, catalog.Fixtures) {
	t.Helper()

	store := memory.New()
	fx := catalog.DefaultFixtures(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, catalog.New(store, nil, log, catalog.Config{}).Seed(context.Background(), fx))

	return store, fx
}

func TestValidate_SeededStoreIsConsistent(t *testing.T) {
	store, fx := seeded(t)

	report, err := New(store).Validate(context.Background())
	require.NoError(t, err)

	assert.True(t, report.OK(), "%+v", report.Violations)
	assert.Equal(t, len(fx.Showtimes), report.Showtimes)
	assert.Equal(t, len(fx.Bookings), report.Bookings)
}

func TestValidate_SoldSeatWithoutBooking(t *testing.T) {
	ctx := context.Background()
	store, fx := seeded(t)
	showtimeID := fx.Showtimes[0].ID

	err := store.Do(ctx, func(ctx context.Context, repos ports.Repos, _ func(ports.AfterCommit)) error {
		st, err := repos.Showtimes().GetShowtime(ctx, showtimeID)
		require.NoError(t, err)

		seats := st.CloneSeats()
		i := st.SeatIndex()["A1"]
		require.Equal(t, domain.SeatAvailable, seats[i].Status)
		seats[i].Status = domain.SeatSold

		_, err = repos.Showtimes().UpdateSeats(ctx, showtimeID, seats, st.Version)
		return err
	})
	require.NoError(t, err)

	report, err := New(store).Validate(ctx)
	require.NoError(t, err)

	require.Len(t, report.Violations, 1)
	v := report.Violations[0]
	assert.Equal(t, KindSoldWithoutBooking, v.Kind)
	assert.Equal(t, "A1", v.Seat)
	assert.Equal(t, showtimeID.String(), v.ShowtimeID)
}

func TestCheck(t *testing.T) {
	showtimeID := uuid.New()
	userID := uuid.New()
	users := map[uuid.UUID]bool{userID: true}

	owned := func(id uuid.UUID) *uuid.UUID { return &id }

	confirmedID := uuid.New()
	otherID := uuid.New()
	pendingID := uuid.New()

	tests := []struct {
		name     string
		seats    []domain.Seat
		bookings []domain.Booking
		want     []Kind
	}{
		{
			name: "consistent",
			seats: []domain.Seat{
				{Label: "A1", Status: domain.SeatSold, BookingID: owned(confirmedID)},
				{Label: "A2", Status: domain.SeatHeld, BookingID: owned(pendingID)},
				{Label: "A3", Status: domain.SeatAvailable},
			},
			bookings: []domain.Booking{
				{ID: confirmedID, UserID: userID, ShowtimeID: showtimeID, Seats: []string{"A1"}, Status: domain.BookingConfirmed},
				{ID: pendingID, UserID: userID, ShowtimeID: showtimeID, Seats: []string{"A2"}, Status: domain.BookingPending},
			},
		},
		{
			name: "confirmed seat not sold",
			seats: []domain.Seat{
				{Label: "A1", Status: domain.SeatAvailable},
			},
			bookings: []domain.Booking{
				{ID: confirmedID, UserID: userID, ShowtimeID: showtimeID, Seats: []string{"A1"}, Status: domain.BookingConfirmed},
			},
			want: []Kind{KindBookedNotSold},
		},
		{
			name: "double booked",
			seats: []domain.Seat{
				{Label: "A1", Status: domain.SeatSold, BookingID: owned(confirmedID)},
			},
			bookings: []domain.Booking{
				{ID: confirmedID, UserID: userID, ShowtimeID: showtimeID, Seats: []string{"A1"}, Status: domain.BookingConfirmed},
				{ID: otherID, UserID: userID, ShowtimeID: showtimeID, Seats: []string{"A1"}, Status: domain.BookingConfirmed},
			},
			want: []Kind{KindDoubleBooked, KindDoubleBooked},
		},
		{
			name: "owner mismatch",
			seats: []domain.Seat{
				{Label: "A1", Status: domain.SeatSold, BookingID: owned(otherID)},
			},
			bookings: []domain.Booking{
				{ID: confirmedID, UserID: userID, ShowtimeID: showtimeID, Seats: []string{"A1"}, Status: domain.BookingConfirmed},
			},
			want: []Kind{KindOwnerMismatch},
		},
		{
			name: "hold left by an abandoned booking",
			seats: []domain.Seat{
				{Label: "A1", Status: domain.SeatHeld, BookingID: owned(pendingID)},
			},
			bookings: []domain.Booking{
				{ID: pendingID, UserID: userID, ShowtimeID: showtimeID, Seats: []string{"A1"}, Status: domain.BookingAbandoned},
			},
			want: []Kind{KindOrphanHold},
		},
		{
			name: "pending booking lost its hold",
			seats: []domain.Seat{
				{Label: "A1", Status: domain.SeatAvailable},
			},
			bookings: []domain.Booking{
				{ID: pendingID, UserID: userID, ShowtimeID: showtimeID, Seats: []string{"A1"}, Status: domain.BookingPending},
			},
			want: []Kind{KindPendingNotHeld},
		},
		{
			name: "dangling references",
			bookings: []domain.Booking{
				{ID: confirmedID, UserID: uuid.New(), ShowtimeID: uuid.New(), Status: domain.BookingCancelled},
			},
			want: []Kind{KindMissingShowtime, KindMissingUser},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			showtimes := []domain.Showtime{{ID: showtimeID, Seats: tt.seats}}

			got := check(showtimes, tt.bookings, users)

			kinds := make([]Kind, len(got))
			for i, v := range got {
				kinds[i] = v.Kind
			}
			if tt.want == nil {
				assert.Empty(t, kinds)
				return
			}
			assert.Equal(t, tt.want, kinds)
		})
	}
}
