// Package consistency cross-checks showtime seat maps against booking records
// and user references. It only reports; it never repairs.
package consistency

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/absolut-cinema/internal/domain"
	"github.com/kirinyoku/absolut-cinema/internal/service/ports"
	"github.com/samber/lo"
)

type Kind string

const (
	// A sold seat that no confirmed booking claims.
	KindSoldWithoutBooking Kind = "sold_without_booking"
	// A seat of a confirmed booking that is not sold.
	KindBookedNotSold Kind = "booked_not_sold"
	// A seat claimed by more than one confirmed booking.
	KindDoubleBooked Kind = "double_booked"
	// A sold seat whose owner is not the confirmed booking that claims it.
	KindOwnerMismatch Kind = "owner_mismatch"
	// A held seat whose owner is not a pending booking claiming it.
	KindOrphanHold Kind = "orphan_hold"
	// A seat of a pending booking that the booking does not hold.
	KindPendingNotHeld Kind = "pending_not_held"
	KindMissingShowtime Kind = "missing_showtime"
	KindMissingUser     Kind = "missing_user"
)

type Violation struct {
	Kind       Kind   `json:"kind"`
	ShowtimeID string `json:"showtimeId,omitempty"`
	Seat       string `json:"seat,omitempty"`
	BookingID  string `json:"bookingId,omitempty"`
	UserID     string `json:"userId,omitempty"`
	Detail     string `json:"detail"`
}

type Report struct {
	CheckedAt  time.Time   `json:"checkedAt"`
	Showtimes  int         `json:"showtimes"`
	Bookings   int         `json:"bookings"`
	Violations []Violation `json:"violations"`
}

func (r *Report) OK() bool {
	return len(r.Violations) == 0
}

type Service struct {
	uow ports.UnitOfWork
	now func() time.Time
}

// New builds the validator. uow should give a consistent snapshot.
func New(uow ports.UnitOfWork) *Service {
	return &Service{
		uow: uow,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Validate reads every showtime, booking and referenced user in one unit of
// work and reports each disagreement between them.
func (s *Service) Validate(ctx context.Context) (*Report, error) {
	const op = "service.consistency.Validate"

	var (
		showtimes []domain.Showtime
		bookings  []domain.Booking
		users     map[uuid.UUID]bool
	)

	err := s.uow.Do(ctx, func(ctx context.Context, repos ports.Repos, _ func(ports.AfterCommit)) error {
		var err error

		if showtimes, err = repos.Showtimes().ListShowtimes(ctx); err != nil {
			return err
		}

		if bookings, err = repos.Bookings().ListBookings(ctx); err != nil {
			return err
		}

		userIDs := lo.Uniq(lo.Map(bookings, func(b domain.Booking, _ int) uuid.UUID {
			return b.UserID
		}))

		users, err = repos.Users().ExistingUserIDs(ctx, userIDs)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	report := &Report{
		CheckedAt:  s.now(),
		Showtimes:  len(showtimes),
		Bookings:   len(bookings),
		Violations: check(showtimes, bookings, users),
	}

	return report, nil
}

func check(showtimes []domain.Showtime, bookings []domain.Booking, users map[uuid.UUID]bool) []Violation {
	out := []Violation{}

	byShowtime := lo.GroupBy(bookings, func(b domain.Booking) uuid.UUID {
		return b.ShowtimeID
	})
	knownShowtimes := lo.KeyBy(showtimes, func(st domain.Showtime) uuid.UUID {
		return st.ID
	})

	for _, st := range showtimes {
		out = append(out, checkShowtime(st, byShowtime[st.ID])...)
	}

	for _, b := range bookings {
		if _, ok := knownShowtimes[b.ShowtimeID]; !ok {
			out = append(out, Violation{
				Kind:       KindMissingShowtime,
				ShowtimeID: b.ShowtimeID.String(),
				BookingID:  b.ID.String(),
				Detail:     "booking references a showtime that does not exist",
			})
		}

		if !users[b.UserID] {
			out = append(out, Violation{
				Kind:      KindMissingUser,
				BookingID: b.ID.String(),
				UserID:    b.UserID.String(),
				Detail:    "booking references a user that does not exist",
			})
		}
	}

	slices.SortFunc(out, func(a, b Violation) int {
		return cmp.Or(
			cmp.Compare(a.Kind, b.Kind),
			cmp.Compare(a.ShowtimeID, b.ShowtimeID),
			cmp.Compare(a.Seat, b.Seat),
			cmp.Compare(a.BookingID, b.BookingID),
		)
	})

	return out
}

func checkShowtime(st domain.Showtime, bookings []domain.Booking) []Violation {
	var out []Violation

	claims := func(status domain.BookingStatus) map[string][]uuid.UUID {
		m := make(map[string][]uuid.UUID)
		for _, b := range lo.Filter(bookings, func(b domain.Booking, _ int) bool {
			return b.Status == status
		}) {
			for _, label := range b.Seats {
				m[label] = append(m[label], b.ID)
			}
		}
		return m
	}
	confirmed := claims(domain.BookingConfirmed)
	pending := claims(domain.BookingPending)

	violation := func(kind Kind, seat string, bookingID *uuid.UUID, detail string) Violation {
		v := Violation{
			Kind:       kind,
			ShowtimeID: st.ID.String(),
			Seat:       seat,
			Detail:     detail,
		}
		if bookingID != nil {
			v.BookingID = bookingID.String()
		}
		return v
	}

	for _, seat := range st.Seats {
		switch seat.Status {
		case domain.SeatSold:
			owners := confirmed[seat.Label]
			switch {
			case len(owners) == 0:
				out = append(out, violation(KindSoldWithoutBooking, seat.Label, seat.BookingID,
					"seat is sold but no confirmed booking claims it"))
			case len(owners) > 1:
				for _, id := range owners {
					out = append(out, violation(KindDoubleBooked, seat.Label, &id,
						fmt.Sprintf("seat is claimed by %d confirmed bookings", len(owners))))
				}
			case seat.BookingID != nil && *seat.BookingID != owners[0]:
				out = append(out, violation(KindOwnerMismatch, seat.Label, &owners[0],
					fmt.Sprintf("seat is owned by booking %s", seat.BookingID)))
			}

		case domain.SeatHeld:
			if seat.BookingID == nil || !slices.Contains(pending[seat.Label], *seat.BookingID) {
				out = append(out, violation(KindOrphanHold, seat.Label, seat.BookingID,
					"seat is held but no pending booking with that owner claims it"))
			}
		}
	}

	seatAt := st.SeatIndex()
	for _, b := range bookings {
		for _, label := range b.Seats {
			i, ok := seatAt[label]

			switch b.Status {
			case domain.BookingConfirmed:
				if !ok || st.Seats[i].Status != domain.SeatSold {
					out = append(out, violation(KindBookedNotSold, label, &b.ID,
						"confirmed booking seat is not sold"))
				}

			case domain.BookingPending:
				if !ok || st.Seats[i].Status != domain.SeatHeld ||
					st.Seats[i].BookingID == nil || *st.Seats[i].BookingID != b.ID {
					out = append(out, violation(KindPendingNotHeld, label, &b.ID,
						"pending booking seat is not held by it"))
				}
			}
		}
	}

	return out
}
