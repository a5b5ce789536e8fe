package booking

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
	"github.com/kirinyoku/absolut-cinema/internal/service/retry"
)

// SeatsChangedNotifier is told about every committed seat write.
type SeatsChangedNotifier interface {
	SeatsChanged(ctx context.Context, showtimeID uuid.UUID)
}

type Config struct {
	MaxAttempts  int
	RetryBackoff time.Duration
	// ExpireBatch caps how many expired holds one sweep releases.
	ExpireBatch int
}

// Service drives bookings from pending to confirmed, cancelled or abandoned.
// Every transition writes the booking status and the showtime seats in the
// same unit of work.
type Service struct {
	uow    ports.UnitOfWork
	seats  SeatsChangedNotifier
	events ports.BookingEvents
	log    *slog.Logger
	cfg    Config
	retry  retry.Strategy
	now    func() time.Time
	refGen func() string
}

// New builds the service. seats and events may be nil.
func New(
	uow ports.UnitOfWork,
	seats SeatsChangedNotifier,
	events ports.BookingEvents,
	log *slog.Logger,
	cfg Config,
) *Service {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}

	if cfg.ExpireBatch <= 0 {
		cfg.ExpireBatch = 100
	}

	if log == nil {
		log = slog.Default()
	}

	return &Service{
		uow:    uow,
		seats:  seats,
		events: events,
		log:    log,
		cfg:    cfg,
		retry: retry.Strategy{
			Attempts: cfg.MaxAttempts,
			Delay:    cfg.RetryBackoff,
			Backoff:  2,
		},
		now:    func() time.Time { return time.Now().UTC() },
		refGen: newTicketRef,
	}
}

// ConfirmPayment records the payment of a pending booking, sells its held
// seats and issues the ticket.
//
// Only the masked account is kept. A second confirmation of the same booking
// fails with ErrAlreadyConfirmed and leaves the ticket untouched.
//
// Returns:
//   - error: ErrInvalidPayment if the method or account is unusable.
//   - error: ErrBookingNotFound if the booking does not exist.
//   - error: ErrAlreadyConfirmed if the booking is already confirmed.
//   - error: ErrNotPending if the booking was cancelled or abandoned.
//   - error: ErrHoldExpired if the hold window has passed.
//   - error: ErrSeatsNotHeld if the showtime no longer holds the seats for it.
//   - error: ErrBusy if every attempt lost a write race.
func (s *Service) ConfirmPayment(
	ctx context.Context,
	bookingID uuid.UUID,
	method string,
	accountNumber string,
) (*domain.Booking, error) {
	const op = "service.booking.ConfirmPayment"

	pm, err := domain.ParsePaymentMethod(method)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidPayment, err)
	}

	masked, err := domain.MaskAccount(pm, accountNumber)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidPayment, err)
	}

	var confirmed *domain.Booking

	err = s.retry.Do(ctx, retryable, func(ctx context.Context) error {
		return s.uow.Do(ctx, func(
			ctx context.Context,
			repos ports.Repos,
			after func(ports.AfterCommit),
		) error {
			b, err := loadPending(ctx, repos, bookingID)
			if err != nil {
				return err
			}

			now := s.now()
			if b.Expired(now) {
				return ErrHoldExpired
			}

			st, err := repos.Showtimes().GetShowtime(ctx, b.ShowtimeID)
			if err != nil {
				return err
			}

			idx := st.SeatIndex()
			seats := st.CloneSeats()
			for _, label := range b.Seats {
				i, ok := idx[label]
				if !ok || !heldBy(seats[i], b.ID) {
					return fmt.Errorf("%w: %s", ErrSeatsNotHeld, label)
				}
				seats[i].Status = domain.SeatSold
			}

			if _, err := repos.Showtimes().UpdateSeats(ctx, st.ID, seats, st.Version); err != nil {
				return err
			}

			ref, err := s.issueRef(ctx, repos.Bookings())
			if err != nil {
				return err
			}

			b.Status = domain.BookingConfirmed
			b.Payment = &domain.Payment{
				Method:        pm,
				MaskedAccount: masked,
				PaidAt:        now,
			}
			b.Ticket = &domain.Ticket{
				Ref:      ref,
				IssuedAt: now,
				Status:   domain.TicketActive,
			}
			b.UpdatedAt = now

			if err := repos.Bookings().UpdateBooking(ctx, b, domain.BookingPending); err != nil {
				return err
			}

			after(func(ctx context.Context) {
				s.seatsChanged(ctx, st.ID)
				s.publishConfirmed(ctx, b)
			})

			confirmed = b
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, retry.ErrExhausted) {
			return nil, fmt.Errorf("%s: %w", op, ErrBusy)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("booking confirmed",
		slog.String("booking_id", confirmed.ID.String()),
		slog.String("ticket_ref", confirmed.Ticket.Ref),
	)

	return confirmed, nil
}

// issueRef rolls ticket references until one is unused. The unique index on
// the reference still guards the commit; a lost race there is retried as a
// whole.
func (s *Service) issueRef(ctx context.Context, bookings ports.BookingRepo) (string, error) {
	for range maxTicketRolls {
		ref := s.refGen()

		taken, err := bookings.TicketRefExists(ctx, ref)
		if err != nil {
			return "", err
		}
		if !taken {
			return ref, nil
		}
	}

	return "", fmt.Errorf("%w: no free ticket reference", repository.ErrConflict)
}

// Cancel releases the seats of a pending booking.
//
// Returns:
//   - error: ErrBookingNotFound if the booking does not exist.
//   - error: ErrAlreadyConfirmed if the booking is confirmed.
//   - error: ErrNotPending if the booking was already cancelled or abandoned.
func (s *Service) Cancel(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	const op = "service.booking.Cancel"

	b, err := s.release(ctx, bookingID, domain.BookingCancelled, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return b, nil
}

// ExpireHolds abandons pending bookings whose hold window passed and frees
// their seats. A booking confirmed or cancelled in the meantime is skipped.
func (s *Service) ExpireHolds(ctx context.Context) (int, error) {
	const op = "service.booking.ExpireHolds"

	var expired []domain.Booking
	err := s.uow.Do(ctx, func(ctx context.Context, repos ports.Repos, _ func(ports.AfterCommit)) error {
		var err error
		expired, err = repos.Bookings().ListExpiredPending(ctx, s.now(), s.cfg.ExpireBatch)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	released := 0
	for _, b := range expired {
		_, err := s.release(ctx, b.ID, domain.BookingAbandoned, true)
		switch {
		case err == nil:
			released++
		case errors.Is(err, ErrAlreadyConfirmed),
			errors.Is(err, ErrNotPending),
			errors.Is(err, errNotExpired):
		default:
			return released, fmt.Errorf("%s: %w", op, err)
		}
	}

	return released, nil
}

var errNotExpired = errors.New("hold not expired")

func (s *Service) release(
	ctx context.Context,
	bookingID uuid.UUID,
	to domain.BookingStatus,
	expiredOnly bool,
) (*domain.Booking, error) {
	var out *domain.Booking

	err := s.retry.Do(ctx, retryable, func(ctx context.Context) error {
		return s.uow.Do(ctx, func(
			ctx context.Context,
			repos ports.Repos,
			after func(ports.AfterCommit),
		) error {
			b, err := loadPending(ctx, repos, bookingID)
			if err != nil {
				return err
			}

			now := s.now()
			if expiredOnly && !b.Expired(now) {
				return errNotExpired
			}

			st, err := repos.Showtimes().GetShowtime(ctx, b.ShowtimeID)
			if err != nil {
				return err
			}

			idx := st.SeatIndex()
			seats := st.CloneSeats()
			freed := 0
			for _, label := range b.Seats {
				i, ok := idx[label]
				if !ok || !heldBy(seats[i], b.ID) {
					continue
				}
				seats[i].Status = domain.SeatAvailable
				seats[i].BookingID = nil
				freed++
			}

			if freed > 0 {
				if _, err := repos.Showtimes().UpdateSeats(ctx, st.ID, seats, st.Version); err != nil {
					return err
				}
			}

			b.Status = to
			b.UpdatedAt = now
			if err := repos.Bookings().UpdateBooking(ctx, b, domain.BookingPending); err != nil {
				return err
			}

			if freed > 0 {
				after(func(ctx context.Context) {
					s.seatsChanged(ctx, st.ID)
				})
			}

			out = b
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, retry.ErrExhausted) {
			return nil, ErrBusy
		}
		return nil, err
	}

	s.log.Info("booking released",
		slog.String("booking_id", out.ID.String()),
		slog.String("status", string(out.Status)),
	)

	return out, nil
}

// Get returns a booking by ID.
func (s *Service) Get(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	const op = "service.booking.Get"

	var b *domain.Booking
	err := s.uow.Do(ctx, func(ctx context.Context, repos ports.Repos, _ func(ports.AfterCommit)) error {
		var err error
		b, err = repos.Bookings().GetBooking(ctx, bookingID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrBookingNotFound
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return b, nil
}

// Ticket returns the booking behind a ticket.
//
// Returns:
//   - error: ErrBookingNotFound if the booking does not exist.
//   - error: ErrTicketNotIssued if the booking is not confirmed.
func (s *Service) Ticket(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	const op = "service.booking.Ticket"

	b, err := s.Get(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if b.Status != domain.BookingConfirmed || b.Ticket == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrTicketNotIssued)
	}

	return b, nil
}

func loadPending(ctx context.Context, repos ports.Repos, bookingID uuid.UUID) (*domain.Booking, error) {
	b, err := repos.Bookings().GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	switch b.Status {
	case domain.BookingPending:
		return b, nil
	case domain.BookingConfirmed:
		return nil, ErrAlreadyConfirmed
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotPending, b.Status)
	}
}

func heldBy(seat domain.Seat, bookingID uuid.UUID) bool {
	return seat.Status == domain.SeatHeld &&
		seat.BookingID != nil &&
		*seat.BookingID == bookingID
}

func (s *Service) seatsChanged(ctx context.Context, showtimeID uuid.UUID) {
	if s.seats != nil {
		s.seats.SeatsChanged(ctx, showtimeID)
	}
}

func (s *Service) publishConfirmed(ctx context.Context, b *domain.Booking) {
	if s.events == nil {
		return
	}

	err := s.events.PublishBookingConfirmed(ctx, ports.BookingConfirmed{
		BookingID:   b.ID,
		UserID:      b.UserID,
		ShowtimeID:  b.ShowtimeID,
		MovieID:     b.MovieID,
		VenueID:     b.VenueID,
		Seats:       b.Seats,
		TotalCents:  b.TotalCents,
		TicketRef:   b.Ticket.Ref,
		ConfirmedAt: b.UpdatedAt,
	})
	if err != nil {
		s.log.Error("publish booking confirmed",
			slog.String("booking_id", b.ID.String()),
			slog.Any("err", err),
		)
	}
}

func retryable(err error) bool {
	return errors.Is(err, repository.ErrVersionConflict) ||
		errors.Is(err, repository.ErrConflict)
}
