// Package ports declares the storage and side-effect contracts the services
// depend on. Postgres, Redis and in-memory adapters implement them.
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/absolut-cinema/internal/domain"
)

type ShowtimeRepo interface {
	GetShowtime(ctx context.Context, id uuid.UUID) (*domain.Showtime, error)
	// UpdateSeats replaces the seat list if the stored version still equals
	// expectedVersion and returns the new version. Otherwise it fails with
	// repository.ErrVersionConflict.
	UpdateSeats(ctx context.Context, id uuid.UUID, seats []domain.Seat, expectedVersion int64) (int64, error)
	ListShowtimes(ctx context.Context) ([]domain.Showtime, error)
}

type BookingRepo interface {
	CreateBooking(ctx context.Context, b *domain.Booking) error
	GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	GetBookingByRequestToken(ctx context.Context, userID uuid.UUID, token string) (*domain.Booking, error)
	TicketRefExists(ctx context.Context, ref string) (bool, error)
	// UpdateBooking persists status, payment and ticket if the stored status
	// still equals expected. Otherwise it fails with repository.ErrVersionConflict.
	UpdateBooking(ctx context.Context, b *domain.Booking, expected domain.BookingStatus) error
	ListBookings(ctx context.Context) ([]domain.Booking, error)
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]domain.Booking, error)
}

type CatalogRepo interface {
	UpsertVenue(ctx context.Context, v domain.Venue) error
	UpsertMovie(ctx context.Context, m domain.Movie) error
	UpsertUser(ctx context.Context, u domain.User) error
	// UpsertShowtime inserts the showtime; an existing showtime keeps its seats.
	UpsertShowtime(ctx context.Context, s domain.Showtime) error
	ListMovies(ctx context.Context) ([]domain.Movie, error)
	GetMovie(ctx context.Context, id uuid.UUID) (*domain.Movie, error)
	GetVenue(ctx context.Context, id uuid.UUID) (*domain.Venue, error)
	ListShowtimesByMovie(ctx context.Context, movieID uuid.UUID) ([]domain.ShowtimeSummary, error)
}

// UserDirectory is the read side of the external identity provider.
type UserDirectory interface {
	ExistingUserIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error)
}

// Repos is a set of repositories bound to one transaction.
type Repos interface {
	Showtimes() ShowtimeRepo
	Bookings() BookingRepo
	Catalog() CatalogRepo
	Users() UserDirectory
}

// AfterCommit is a function that runs after a successful transaction commit.
type AfterCommit func(ctx context.Context)

type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repos Repos, after func(AfterCommit)) error) error
}

type SeatMapCache interface {
	SeatMap(
		ctx context.Context,
		showtimeID uuid.UUID,
		ttl time.Duration,
		load func(ctx context.Context) ([]domain.SeatView, error),
	) ([]domain.SeatView, error)
	InvalidateShowtime(ctx context.Context, showtimeID uuid.UUID) error
}

type ShowtimeNotifier interface {
	PublishShowtimeChanged(ctx context.Context, showtimeID uuid.UUID) error
}

// ClaimLimiter admits or rejects a user's claim attempt. retryAfter is set
// when the attempt is rejected.
type ClaimLimiter interface {
	AdmitClaim(ctx context.Context, userID uuid.UUID) (admitted bool, retryAfter time.Duration, err error)
}

type BookingConfirmed struct {
	BookingID   uuid.UUID
	UserID      uuid.UUID
	ShowtimeID  uuid.UUID
	MovieID     uuid.UUID
	VenueID     uuid.UUID
	Seats       []string
	TotalCents  int64
	TicketRef   string
	ConfirmedAt time.Time
}

type BookingEvents interface {
	PublishBookingConfirmed(ctx context.Context, ev BookingConfirmed) error
}

type CatalogCache interface {
	Movies(
		ctx context.Context,
		ttl time.Duration,
		load func(ctx context.Context) ([]domain.Movie, error),
	) ([]domain.Movie, error)
	MovieShowtimes(
		ctx context.Context,
		movieID uuid.UUID,
		ttl time.Duration,
		load func(ctx context.Context) ([]domain.ShowtimeSummary, error),
	) ([]domain.ShowtimeSummary, error)
	InvalidateMovieShowtimes(ctx context.Context, movieID uuid.UUID) error
	InvalidateCatalog(ctx context.Context) error
}
