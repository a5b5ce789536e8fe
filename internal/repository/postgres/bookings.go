package postgresrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/absolut-cinema/internal/domain"
	"github.com/kirinyoku/absolut-cinema/internal/repository"
)

type BookingRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

type paymentDoc struct {
	Method        string    `json:"payment_method"`
	MaskedAccount string    `json:"masked_account"`
	PaidAt        time.Time `json:"paid_at"`
}

type ticketDoc struct {
	Issued time.Time `json:"issued"`
	Status string    `json:"status"`
}

const bookingColumns = `id, user_id, movie_id, venue_id, showtime_id, seats,
	unit_price_cents, total_cents, status, request_token,
	payment, ticket_ref, ticket, created_at, updated_at, expires_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	var status string
	var requestToken, ticketRef *string
	var payment, ticket []byte

	if err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.MovieID,
		&b.VenueID,
		&b.ShowtimeID,
		&b.Seats,
		&b.UnitPriceCents,
		&b.TotalCents,
		&status,
		&requestToken,
		&payment,
		&ticketRef,
		&ticket,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.ExpiresAt,
	); err != nil {
		return nil, err
	}

	b.Status = domain.BookingStatus(status)
	if requestToken != nil {
		b.RequestToken = *requestToken
	}

	if payment != nil {
		var p paymentDoc
		if err := json.Unmarshal(payment, &p); err != nil {
			return nil, fmt.Errorf("decode payment: %w", err)
		}
		b.Payment = &domain.Payment{
			Method:        domain.PaymentMethod(p.Method),
			MaskedAccount: p.MaskedAccount,
			PaidAt:        p.PaidAt,
		}
	}

	if ticketRef != nil && ticket != nil {
		var t ticketDoc
		if err := json.Unmarshal(ticket, &t); err != nil {
			return nil, fmt.Errorf("decode ticket: %w", err)
		}
		b.Ticket = &domain.Ticket{
			Ref:      *ticketRef,
			IssuedAt: t.Issued,
			Status:   domain.TicketStatus(t.Status),
		}
	}

	return &b, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func encodePaymentTicket(b *domain.Booking) (payment, ticket []byte, ticketRef *string, err error) {
	if b.Payment != nil {
		payment, err = json.Marshal(paymentDoc{
			Method:        string(b.Payment.Method),
			MaskedAccount: b.Payment.MaskedAccount,
			PaidAt:        b.Payment.PaidAt,
		})
		if err != nil {
			return nil, nil, nil, err
		}
	}

	if b.Ticket != nil {
		ticket, err = json.Marshal(ticketDoc{Issued: b.Ticket.IssuedAt, Status: string(b.Ticket.Status)})
		if err != nil {
			return nil, nil, nil, err
		}
		ticketRef = nullable(b.Ticket.Ref)
	}

	return payment, ticket, ticketRef, nil
}

// CreateBooking inserts a new booking.
//
// Returns:
//   - error: repository.ErrConflict if the (user, request token) pair or the
//     ticket reference already exists.
func (r *BookingRepo) CreateBooking(ctx context.Context, b *domain.Booking) error {
	const op = "postgresrepo.BookingRepo.CreateBooking"

	db := r.handle()

	payment, ticket, ticketRef, err := encodePaymentTicket(b)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := db.Exec(ctx,
		`INSERT INTO bookings(id, user_id, movie_id, venue_id, showtime_id, seats,
		 	unit_price_cents, total_cents, status, request_token,
		 	payment, ticket_ref, ticket, created_at, updated_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		b.ID, b.UserID, b.MovieID, b.VenueID, b.ShowtimeID, b.Seats,
		b.UnitPriceCents, b.TotalCents, string(b.Status), nullable(b.RequestToken),
		payment, ticketRef, ticket, b.CreatedAt, b.UpdatedAt, b.ExpiresAt,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// GetBooking retrieves a booking by its ID.
//
// Returns:
//   - error: repository.ErrNotFound if the booking does not exist.
func (r *BookingRepo) GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.GetBooking"

	db := r.handle()

	b, err := scanBooking(db.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return b, nil
}

// GetBookingByRequestToken finds the booking a user created with token.
//
// Returns:
//   - error: repository.ErrNotFound if there is none.
func (r *BookingRepo) GetBookingByRequestToken(
	ctx context.Context,
	userID uuid.UUID,
	token string,
) (*domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.GetBookingByRequestToken"

	db := r.handle()

	b, err := scanBooking(db.QueryRow(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 WHERE user_id = $1 AND request_token = $2`,
		userID, token,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return b, nil
}

func (r *BookingRepo) TicketRefExists(ctx context.Context, ref string) (bool, error) {
	const op = "postgresrepo.BookingRepo.TicketRefExists"

	db := r.handle()

	var exists bool
	if err := db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM bookings WHERE ticket_ref = $1)`,
		ref,
	).Scan(&exists); err != nil {
		return false, wrapDBErr(op, err)
	}

	return exists, nil
}

// UpdateBooking persists the lifecycle fields of b if its stored status is
// still expected.
//
// Returns:
//   - error: repository.ErrVersionConflict if the status changed concurrently.
//   - error: repository.ErrConflict if the ticket reference is taken.
//   - error: repository.ErrNotFound if the booking does not exist.
func (r *BookingRepo) UpdateBooking(ctx context.Context, b *domain.Booking, expected domain.BookingStatus) error {
	const op = "postgresrepo.BookingRepo.UpdateBooking"

	db := r.handle()

	payment, ticket, ticketRef, err := encodePaymentTicket(b)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tag, err := db.Exec(ctx,
		`UPDATE bookings
		 SET status = $2, payment = $3, ticket_ref = $4, ticket = $5, updated_at = $6
		 WHERE id = $1 AND status = $7`,
		b.ID, string(b.Status), payment, ticketRef, ticket, b.UpdatedAt, string(expected),
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM bookings WHERE id = $1)`,
		b.ID,
	).Scan(&exists); err != nil {
		return wrapDBErr(op, err)
	}

	if !exists {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return fmt.Errorf("%s: %w", op, repository.ErrVersionConflict)
}

func (r *BookingRepo) ListBookings(ctx context.Context) ([]domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.ListBookings"

	return r.list(ctx, op,
		`SELECT `+bookingColumns+` FROM bookings ORDER BY created_at, id`,
	)
}

// ListExpiredPending returns up to limit pending bookings whose hold window
// ended at or before now.
func (r *BookingRepo) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.ListExpiredPending"

	return r.list(ctx, op,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 WHERE status = 'pending' AND expires_at <= $1
		 ORDER BY expires_at
		 LIMIT $2`,
		now, limit,
	)
}

func (r *BookingRepo) list(ctx context.Context, op, sql string, args ...any) ([]domain.Booking, error) {
	db := r.handle()

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
