package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/absolut-cinema/internal/domain"
	"github.com/kirinyoku/absolut-cinema/internal/repository"
	"github.com/kirinyoku/absolut-cinema/internal/service/ports"
)

// Fixtures is a self-consistent catalog: every sold seat belongs to one of
// the confirmed bookings.
type Fixtures struct {
	Venues    []domain.Venue
	Movies    []domain.Movie
	Users     []domain.User
	Showtimes []domain.Showtime
	Bookings  []domain.Booking
}

// Seed upserts the fixtures in one unit of work. Showtimes that already exist
// keep their seats and bookings that already exist are left alone, so seeding
// twice is harmless.
func (s *Service) Seed(ctx context.Context, fx Fixtures) error {
	const op = "service.catalog.Seed"

	err := s.uow.Do(ctx, func(ctx context.Context, repos ports.Repos, after func(ports.AfterCommit)) error {
		cat := repos.Catalog()

		for _, v := range fx.Venues {
			if err := cat.UpsertVenue(ctx, v); err != nil {
				return err
			}
		}
		for _, m := range fx.Movies {
			if err := cat.UpsertMovie(ctx, m); err != nil {
				return err
			}
		}
		for _, u := range fx.Users {
			if err := cat.UpsertUser(ctx, u); err != nil {
				return err
			}
		}
		for _, st := range fx.Showtimes {
			if err := cat.UpsertShowtime(ctx, st); err != nil {
				return err
			}
		}

		for _, b := range fx.Bookings {
			_, err := repos.Bookings().GetBooking(ctx, b.ID)
			if err == nil {
				continue
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			if err := repos.Bookings().CreateBooking(ctx, &b); err != nil {
				return err
			}
		}

		if s.cache != nil {
			after(func(ctx context.Context) {
				_ = s.cache.InvalidateCatalog(ctx)
				for _, m := range fx.Movies {
					_ = s.cache.InvalidateMovieShowtimes(ctx, m.ID)
				}
			})
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("catalog seeded",
		slog.Int("venues", len(fx.Venues)),
		slog.Int("movies", len(fx.Movies)),
		slog.Int("showtimes", len(fx.Showtimes)),
		slog.Int("bookings", len(fx.Bookings)),
	)

	return nil
}

var seedNS = uuid.MustParse("5b0c6a52-2f44-4b55-9a57-0c1e7a0f3b61")

func seedID(name string) uuid.UUID {
	return uuid.NewSHA1(seedNS, []byte(name))
}

type seedShowtime struct {
	key      string
	movie    string
	venue    string
	screen   string
	day      int
	at       time.Duration
	price    int64
	row      string
	sold     []int
	user     string
	method   domain.PaymentMethod
	masked   string
	ticket   string
	boughtAt time.Duration
}

// DefaultFixtures builds the demo catalog with showtimes on the days after
// day: three venues, three movies, seven showtimes of fifteen seats.
func DefaultFixtures(day time.Time) Fixtures {
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	venues := []domain.Venue{
		{
			ID:            seedID("venue:katipunan"),
			Name:          "Absolut Cinema - Katipunan",
			City:          "Quezon City",
			Address:       "123 Katipunan Avenue",
			ContactNumber: "09171234567",
			Email:         "info@absolutcinema.com",
			Features:      []string{"Dolby Surround", "VIP Lounge", "Snacks Available"},
		},
		{
			ID:            seedID("venue:sm-north"),
			Name:          "Absolut Cinema - SM North",
			City:          "Quezon City",
			Address:       "SM North EDSA Complex",
			ContactNumber: "09285554433",
			Email:         "north@absolutcinema.com",
			Features:      []string{"IMAX", "Airconditioned", "Wheelchair Accessible"},
		},
		{
			ID:            seedID("venue:glorietta"),
			Name:          "Absolut Cinema - Glorietta",
			City:          "Makati City",
			Address:       "2nd Floor, Glorietta 4 Mall",
			ContactNumber: "09391234567",
			Email:         "glorietta@absolutcinema.com",
			Features:      []string{"4DX", "Premium Recliners"},
		},
	}

	movies := []domain.Movie{
		{
			ID:          seedID("movie:white-chicks"),
			Title:       "White Chicks",
			Description: "Two FBI agent brothers go undercover as a pair of socialites.",
			Genre:       "Comedy",
			Rating:      "PG-13",
			RuntimeMins: 109,
			ReleaseDate: time.Date(2004, 6, 23, 0, 0, 0, 0, time.UTC),
			Director:    "Keenen Ivory Wayans",
		},
		{
			ID:          seedID("movie:interstellar"),
			Title:       "Interstellar",
			Description: "Explorers travel through a wormhole to ensure humanity's survival.",
			Genre:       "Sci-Fi",
			Rating:      "PG-13",
			RuntimeMins: 169,
			ReleaseDate: time.Date(2014, 11, 7, 0, 0, 0, 0, time.UTC),
			Director:    "Christopher Nolan",
		},
		{
			ID:          seedID("movie:dark-knight"),
			Title:       "The Dark Knight",
			Description: "Batman faces the Joker, a criminal mastermind spreading chaos in Gotham City.",
			Genre:       "Action",
			Rating:      "PG-13",
			RuntimeMins: 152,
			ReleaseDate: time.Date(2008, 7, 18, 0, 0, 0, 0, time.UTC),
			Director:    "Christopher Nolan",
		},
	}

	users := []domain.User{
		{ID: seedID("user:juan"), Name: "Juan dela Cruz", Email: "juandelacruz@gmail.com"},
		{ID: seedID("user:maria"), Name: "Maria Santos", Email: "maria.santos@gmail.com"},
		{ID: seedID("user:jose"), Name: "Jose Rizal", Email: "jose.rizal@gmail.com"},
		{ID: seedID("user:ana"), Name: "Ana Reyes", Email: "ana.reyes@gmail.com"},
	}

	h := time.Hour
	plan := []seedShowtime{
		{"wc-1", "movie:white-chicks", "venue:katipunan", "Cinema 2", 1, 18 * h, 40000, "A", []int{5, 6, 12}, "user:juan", domain.PaymentGCash, "GCash ••••4567", "ACB-7QX2M", 3 * h},
		{"wc-2", "movie:white-chicks", "venue:sm-north", "Cinema 1", 1, 21 * h, 42000, "B", []int{3, 9}, "user:maria", domain.PaymentCard, "Card ••••4444", "ACB-K4T9P", 2 * h},
		{"wc-3", "movie:white-chicks", "venue:glorietta", "Cinema 4", 2, 17*h + 30*time.Minute, 45000, "C", []int{4}, "user:jose", domain.PaymentGCash, "GCash ••••1190", "ACB-R8D3W", 3 * h},
		{"is-1", "movie:interstellar", "venue:katipunan", "Cinema 3", 3, 16 * h, 48000, "D", []int{2, 7}, "user:ana", domain.PaymentCard, "Card ••••0071", "ACB-2HZ6N", 1 * h},
		{"is-2", "movie:interstellar", "venue:sm-north", "Cinema 1", 3, 20 * h, 50000, "E", []int{5}, "user:maria", domain.PaymentGCash, "GCash ••••3321", "ACB-9VB5C", 2 * h},
		{"dk-1", "movie:dark-knight", "venue:glorietta", "Cinema 5", 4, 18*h + 30*time.Minute, 45000, "F", []int{8}, "user:jose", domain.PaymentCard, "Card ••••8802", "ACB-M3J7Y", 4 * h},
		{"dk-2", "movie:dark-knight", "venue:sm-north", "Cinema 6", 4, 21 * h, 48000, "G", []int{1, 12}, "user:juan", domain.PaymentCard, "Card ••••4444", "ACB-X5L1E", 5 * h},
	}

	fx := Fixtures{
		Venues: venues,
		Movies: movies,
		Users:  users,
	}

	for _, p := range plan {
		startsAt := day.AddDate(0, 0, p.day).Add(p.at)
		bookingID := seedID("booking:" + p.key)

		seats := make([]domain.Seat, 15)
		var sold []string
		for i := range seats {
			label := fmt.Sprintf("%s%d", p.row, i+1)
			seats[i] = domain.Seat{Label: label, Status: domain.SeatAvailable}
			if slices.Contains(p.sold, i+1) {
				owner := bookingID
				seats[i].Status = domain.SeatSold
				seats[i].BookingID = &owner
				sold = append(sold, label)
			}
		}

		st := domain.Showtime{
			ID:         seedID("showtime:" + p.key),
			MovieID:    seedID(p.movie),
			VenueID:    seedID(p.venue),
			ScreenName: p.screen,
			StartsAt:   startsAt,
			PriceCents: p.price,
			Seats:      seats,
		}
		fx.Showtimes = append(fx.Showtimes, st)

		paidAt := startsAt.Add(-p.boughtAt)
		fx.Bookings = append(fx.Bookings, domain.Booking{
			ID:             bookingID,
			UserID:         seedID(p.user),
			MovieID:        st.MovieID,
			VenueID:        st.VenueID,
			ShowtimeID:     st.ID,
			Seats:          sold,
			UnitPriceCents: p.price,
			TotalCents:     p.price * int64(len(sold)),
			Status:         domain.BookingConfirmed,
			Payment: &domain.Payment{
				Method:        p.method,
				MaskedAccount: p.masked,
				PaidAt:        paidAt,
			},
			Ticket: &domain.Ticket{
				Ref:      p.ticket,
				IssuedAt: paidAt.Add(2 * time.Minute),
				Status:   domain.TicketActive,
			},
			CreatedAt: paidAt.Add(-5 * time.Minute),
			UpdatedAt: paidAt,
			ExpiresAt: paidAt,
		})
	}

	return fx
}
