package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/absolut-cinema/internal/domain"
	"github.com/kirinyoku/absolut-cinema/internal/repository"
	"github.com/kirinyoku/absolut-cinema/internal/service/ports"
	"github.com/kirinyoku/absolut-cinema/internal/service/retry"
)

type Config struct {
	HoldWindow   time.Duration
	MaxAttempts  int
	RetryBackoff time.Duration
	SeatMapTTL   time.Duration
}

// Service claims seats on a showtime. All coordination between concurrent
// claimers is a version compare-and-swap on the showtime document.
type Service struct {
	uow      ports.UnitOfWork
	cache    ports.SeatMapCache
	notifier ports.ShowtimeNotifier
	limiter  ports.ClaimLimiter
	log      *slog.Logger
	cfg      Config
	retry    retry.Strategy
	now      func() time.Time
}

// New builds the service. cache, notifier and limiter may be nil.
func New(
	uow ports.UnitOfWork,
	cache ports.SeatMapCache,
	notifier ports.ShowtimeNotifier,
	limiter ports.ClaimLimiter,
	log *slog.Logger,
	cfg Config,
) *Service {
	if cfg.HoldWindow <= 0 {
		cfg.HoldWindow = 10 * time.Minute
	}

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}

	if cfg.RetryBackoff < 0 {
		cfg.RetryBackoff = 0
	}

	if cfg.SeatMapTTL <= 0 {
		cfg.SeatMapTTL = 5 * time.Second
	}

	if log == nil {
		log = slog.Default()
	}

	return &Service{
		uow:      uow,
		cache:    cache,
		notifier: notifier,
		limiter:  limiter,
		log:      log,
		cfg:      cfg,
		retry: retry.Strategy{
			Attempts: cfg.MaxAttempts,
			Delay:    cfg.RetryBackoff,
			Backoff:  2,
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

type ClaimRequest struct {
	ShowtimeID   uuid.UUID
	UserID       uuid.UUID
	Labels       []string
	RequestToken string
}

type Claim struct {
	Booking *domain.Booking
	// Replayed is set when the request token matched an earlier claim and
	// that booking was returned instead of claiming again.
	Replayed bool
}

// ClaimSeats holds the requested seats for a new pending booking.
//
// Either every requested seat is claimed or none is. Write conflicts with
// concurrent claimers restart the claim from a fresh read, up to
// Config.MaxAttempts times.
//
// Returns:
//   - error: ErrMalformed if the labels are empty, blank or repeated.
//   - error: ErrShowtimeNotFound if the showtime does not exist.
//   - error: *SeatNotFoundError naming the first unknown label.
//   - error: *SeatConflictError naming the first seat that is not available.
//   - error: ErrBusy if every attempt lost a write race.
//   - error: ErrRateLimited if the user claims too often.
func (s *Service) ClaimSeats(ctx context.Context, req ClaimRequest) (*Claim, error) {
	const op = "service.reservation.ClaimSeats"

	labels, err := normalizeLabels(req.Labels)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if req.UserID == uuid.Nil {
		return nil, fmt.Errorf("%s: %w: user id is required", op, ErrMalformed)
	}

	if s.limiter != nil {
		ok, wait, err := s.limiter.AdmitClaim(ctx, req.UserID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s: %w", op, &RateLimitedError{RetryAfter: wait})
		}
	}

	var claim *Claim

	err = s.retry.Do(ctx, retryable, func(ctx context.Context) error {
		c, err := s.claimOnce(ctx, req, labels)
		if err != nil {
			return err
		}
		claim = c
		return nil
	})
	if err != nil {
		if errors.Is(err, retry.ErrExhausted) {
			s.log.Warn("claim gave up after write conflicts",
				slog.String("showtime_id", req.ShowtimeID.String()),
				slog.Int("attempts", s.cfg.MaxAttempts),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrBusy)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return claim, nil
}

func (s *Service) claimOnce(ctx context.Context, req ClaimRequest, labels []string) (*Claim, error) {
	var claim *Claim

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		repos ports.Repos,
		after func(ports.AfterCommit),
	) error {
		if req.RequestToken != "" {
			prev, err := repos.Bookings().GetBookingByRequestToken(ctx, req.UserID, req.RequestToken)
			switch {
			case err == nil:
				if prev.ShowtimeID != req.ShowtimeID || !slices.Equal(prev.Seats, labels) {
					return ErrTokenReused
				}
				claim = &Claim{Booking: prev, Replayed: true}
				return nil
			case !errors.Is(err, repository.ErrNotFound):
				return err
			}
		}

		st, err := repos.Showtimes().GetShowtime(ctx, req.ShowtimeID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrShowtimeNotFound
			}
			return err
		}

		idx := st.SeatIndex()
		for _, label := range labels {
			if _, ok := idx[label]; !ok {
				return &SeatNotFoundError{Label: label}
			}
		}
		for _, label := range labels {
			if st.Seats[idx[label]].Status != domain.SeatAvailable {
				return &SeatConflictError{Label: label}
			}
		}

		now := s.now()
		bookingID := uuid.New()

		seats := st.CloneSeats()
		for _, label := range labels {
			owner := bookingID
			seats[idx[label]].Status = domain.SeatHeld
			seats[idx[label]].BookingID = &owner
		}

		if _, err := repos.Showtimes().UpdateSeats(ctx, st.ID, seats, st.Version); err != nil {
			return err
		}

		b := &domain.Booking{
			ID:             bookingID,
			UserID:         req.UserID,
			MovieID:        st.MovieID,
			VenueID:        st.VenueID,
			ShowtimeID:     st.ID,
			Seats:          labels,
			UnitPriceCents: st.PriceCents,
			TotalCents:     st.PriceCents * int64(len(labels)),
			Status:         domain.BookingPending,
			RequestToken:   req.RequestToken,
			CreatedAt:      now,
			UpdatedAt:      now,
			ExpiresAt:      now.Add(s.cfg.HoldWindow),
		}

		if err := repos.Bookings().CreateBooking(ctx, b); err != nil {
			return err
		}

		after(func(ctx context.Context) {
			s.SeatsChanged(ctx, st.ID)
		})

		claim = &Claim{Booking: b}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return claim, nil
}

// SeatMap returns the seats of a showtime in their stored order.
//
// Returns:
//   - error: ErrShowtimeNotFound if the showtime does not exist.
func (s *Service) SeatMap(ctx context.Context, showtimeID uuid.UUID) ([]domain.SeatView, error) {
	const op = "service.reservation.SeatMap"

	load := func(ctx context.Context) ([]domain.SeatView, error) {
		var views []domain.SeatView

		err := s.uow.Do(ctx, func(ctx context.Context, repos ports.Repos, _ func(ports.AfterCommit)) error {
			st, err := repos.Showtimes().GetShowtime(ctx, showtimeID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return ErrShowtimeNotFound
				}
				return err
			}

			views = make([]domain.SeatView, len(st.Seats))
			for i, seat := range st.Seats {
				views[i] = domain.SeatView{
					Label:   seat.Label,
					IsTaken: seat.Status != domain.SeatAvailable,
				}
			}
			return nil
		})

		return views, err
	}

	var (
		views []domain.SeatView
		err   error
	)
	if s.cache != nil {
		views, err = s.cache.SeatMap(ctx, showtimeID, s.cfg.SeatMapTTL, load)
	} else {
		views, err = load(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return views, nil
}

// SeatsChanged drops the cached seat map and tells other instances. Failures
// are logged; the store stays the source of truth.
func (s *Service) SeatsChanged(ctx context.Context, showtimeID uuid.UUID) {
	if s.cache != nil {
		if err := s.cache.InvalidateShowtime(ctx, showtimeID); err != nil {
			s.log.Warn("invalidate seat map",
				slog.String("showtime_id", showtimeID.String()),
				slog.Any("err", err),
			)
		}
	}

	if s.notifier != nil {
		if err := s.notifier.PublishShowtimeChanged(ctx, showtimeID); err != nil {
			s.log.Warn("publish showtime change",
				slog.String("showtime_id", showtimeID.String()),
				slog.Any("err", err),
			)
		}
	}
}

func retryable(err error) bool {
	return errors.Is(err, repository.ErrVersionConflict) ||
		errors.Is(err, repository.ErrConflict)
}

func normalizeLabels(in []string) ([]string, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: no seats requested", ErrMalformed)
	}

	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, raw := range in {
		label := strings.TrimSpace(raw)
		if label == "" {
			return nil, fmt.Errorf("%w: blank seat label", ErrMalformed)
		}
		if _, dup := seen[label]; dup {
			return nil, fmt.Errorf("%w: seat %s requested twice", ErrMalformed, label)
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}

	return out, nil
}
