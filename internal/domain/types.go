package domain

import (
	"time"

	"github.com/google/uuid"
)

type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatHeld      SeatStatus = "held"
	SeatSold      SeatStatus = "sold"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingAbandoned BookingStatus = "abandoned"
	BookingCancelled BookingStatus = "cancelled"
)

type TicketStatus string

const TicketActive TicketStatus = "active"

type Venue struct {
	ID            uuid.UUID
	Name          string
	City          string
	Address       string
	ContactNumber string
	Email         string
	Features      []string
}

type Movie struct {
	ID          uuid.UUID
	Title       string
	Description string
	Genre       string
	Rating      string
	RuntimeMins int
	ReleaseDate time.Time
	Director    string
}

type User struct {
	ID    uuid.UUID
	Name  string
	Email string
}

// Seat is embedded in its Showtime. BookingID is set while the seat is held or sold.
type Seat struct {
	Label     string
	Status    SeatStatus
	BookingID *uuid.UUID
}

// Showtime owns its seat list. Version is bumped on every seat write and is
// the compare-and-swap token for concurrent writers.
type Showtime struct {
	ID         uuid.UUID
	MovieID    uuid.UUID
	VenueID    uuid.UUID
	ScreenName string
	StartsAt   time.Time
	PriceCents int64
	Seats      []Seat
	Version    int64
	UpdatedAt  time.Time
}

// SeatIndex maps seat labels to their position in Seats.
func (s *Showtime) SeatIndex() map[string]int {
	idx := make(map[string]int, len(s.Seats))
	for i, seat := range s.Seats {
		idx[seat.Label] = i
	}
	return idx
}

// CloneSeats returns a deep copy of the seat list.
func (s *Showtime) CloneSeats() []Seat {
	out := make([]Seat, len(s.Seats))
	for i, seat := range s.Seats {
		out[i] = seat
		if seat.BookingID != nil {
			id := *seat.BookingID
			out[i].BookingID = &id
		}
	}
	return out
}

type SeatView struct {
	Label   string
	IsTaken bool
}

type ShowtimeSummary struct {
	ID         uuid.UUID
	MovieID    uuid.UUID
	VenueID    uuid.UUID
	ScreenName string
	StartsAt   time.Time
	PriceCents int64
	Available  int
	Total      int
}

type Payment struct {
	Method        PaymentMethod
	MaskedAccount string
	PaidAt        time.Time
}

type Ticket struct {
	Ref      string
	IssuedAt time.Time
	Status   TicketStatus
}

// Booking snapshots the seat labels and price at claim time; it never
// re-derives them from the live showtime.
type Booking struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	MovieID        uuid.UUID
	VenueID        uuid.UUID
	ShowtimeID     uuid.UUID
	Seats          []string
	UnitPriceCents int64
	TotalCents     int64
	Status         BookingStatus
	RequestToken   string
	Payment        *Payment
	Ticket         *Ticket
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ExpiresAt      time.Time
}

func (b *Booking) Expired(now time.Time) bool {
	return !b.ExpiresAt.IsZero() && !now.Before(b.ExpiresAt)
}
