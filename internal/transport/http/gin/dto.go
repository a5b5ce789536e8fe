package httpgin

import (
	"time"

	"github.com/kirinyoku/absolut-cinema/internal/domain"
	"github.com/kirinyoku/absolut-cinema/internal/service/catalog"
)

type ClaimSeatsRequest struct {
	ShowtimeID   string   `json:"showtimeId" binding:"required,uuid"`
	SeatLabels   []string `json:"seatLabels" binding:"required,min=1,dive,required"`
	UserID       string   `json:"userId" binding:"required,uuid"`
	RequestToken string   `json:"requestToken" binding:"omitempty,max=128"`
}

type ClaimSeatsResponse struct {
	BookingID string    `json:"bookingId"`
	Reserved  []string  `json:"reserved"`
	Status    string    `json:"status"`
	Total     int64     `json:"totalCents"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type PaymentRequest struct {
	Method        string `json:"method" binding:"required"`
	AccountNumber string `json:"accountNumber" binding:"required"`
}

type PaymentResponse struct {
	TicketRef     string `json:"ticketRef"`
	MaskedAccount string `json:"maskedAccount"`
}

type SeatResponse struct {
	SeatLabel string `json:"seatLabel"`
	IsTaken   bool   `json:"isTaken"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Seat  string `json:"seat,omitempty"`
}

type PaymentView struct {
	Method        string    `json:"method"`
	MaskedAccount string    `json:"maskedAccount"`
	PaidAt        time.Time `json:"paidAt"`
}

type TicketView struct {
	Ref      string    `json:"ref"`
	IssuedAt time.Time `json:"issuedAt"`
	Status   string    `json:"status"`
}

type BookingResponse struct {
	ID             string       `json:"id"`
	UserID         string       `json:"userId"`
	MovieID        string       `json:"movieId"`
	VenueID        string       `json:"venueId"`
	ShowtimeID     string       `json:"showtimeId"`
	Seats          []string     `json:"seats"`
	UnitPriceCents int64        `json:"unitPriceCents"`
	TotalCents     int64        `json:"totalCents"`
	Status         string       `json:"status"`
	Payment        *PaymentView `json:"payment,omitempty"`
	Ticket         *TicketView  `json:"ticket,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	ExpiresAt      time.Time    `json:"expiresAt"`
}

type TicketResponse struct {
	TicketRef     string    `json:"ticketRef"`
	Status        string    `json:"status"`
	IssuedAt      time.Time `json:"issuedAt"`
	BookingID     string    `json:"bookingId"`
	ShowtimeID    string    `json:"showtimeId"`
	Seats         []string  `json:"seats"`
	TotalCents    int64     `json:"totalCents"`
	MaskedAccount string    `json:"maskedAccount"`
}

type MovieResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Genre       string `json:"genre"`
	Rating      string `json:"rating"`
	RuntimeMins int    `json:"runtimeMins"`
	ReleaseDate string `json:"releaseDate"`
	Director    string `json:"director"`
}

type ShowtimeResponse struct {
	ID         string    `json:"id"`
	MovieID    string    `json:"movieId"`
	VenueID    string    `json:"venueId"`
	ScreenName string    `json:"screenName"`
	StartsAt   time.Time `json:"startsAt"`
	PriceCents int64     `json:"priceCents"`
	Available  int       `json:"available"`
	Total      int       `json:"total"`
}

type VenueResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	City          string   `json:"city"`
	Address       string   `json:"address"`
	ContactNumber string   `json:"contactNumber"`
	Email         string   `json:"email"`
	Features      []string `json:"features"`
}

type ShowtimeDetailResponse struct {
	ShowtimeResponse
	Movie MovieResponse `json:"movie"`
	Venue VenueResponse `json:"venue"`
}

func toBookingResponse(b *domain.Booking) BookingResponse {
	out := BookingResponse{
		ID:             b.ID.String(),
		UserID:         b.UserID.String(),
		MovieID:        b.MovieID.String(),
		VenueID:        b.VenueID.String(),
		ShowtimeID:     b.ShowtimeID.String(),
		Seats:          b.Seats,
		UnitPriceCents: b.UnitPriceCents,
		TotalCents:     b.TotalCents,
		Status:         string(b.Status),
		CreatedAt:      b.CreatedAt,
		ExpiresAt:      b.ExpiresAt,
	}

	if b.Payment != nil {
		out.Payment = &PaymentView{
			Method:        string(b.Payment.Method),
			MaskedAccount: b.Payment.MaskedAccount,
			PaidAt:        b.Payment.PaidAt,
		}
	}

	if b.Ticket != nil {
		out.Ticket = &TicketView{
			Ref:      b.Ticket.Ref,
			IssuedAt: b.Ticket.IssuedAt,
			Status:   string(b.Ticket.Status),
		}
	}

	return out
}

func toTicketResponse(b *domain.Booking) TicketResponse {
	out := TicketResponse{
		TicketRef:  b.Ticket.Ref,
		Status:     string(b.Ticket.Status),
		IssuedAt:   b.Ticket.IssuedAt,
		BookingID:  b.ID.String(),
		ShowtimeID: b.ShowtimeID.String(),
		Seats:      b.Seats,
		TotalCents: b.TotalCents,
	}
	if b.Payment != nil {
		out.MaskedAccount = b.Payment.MaskedAccount
	}
	return out
}

func toMovieResponse(m domain.Movie) MovieResponse {
	return MovieResponse{
		ID:          m.ID.String(),
		Title:       m.Title,
		Description: m.Description,
		Genre:       m.Genre,
		Rating:      m.Rating,
		RuntimeMins: m.RuntimeMins,
		ReleaseDate: m.ReleaseDate.Format(time.DateOnly),
		Director:    m.Director,
	}
}

func toShowtimeResponse(s domain.ShowtimeSummary) ShowtimeResponse {
	return ShowtimeResponse{
		ID:         s.ID.String(),
		MovieID:    s.MovieID.String(),
		VenueID:    s.VenueID.String(),
		ScreenName: s.ScreenName,
		StartsAt:   s.StartsAt,
		PriceCents: s.PriceCents,
		Available:  s.Available,
		Total:      s.Total,
	}
}

func toShowtimeDetailResponse(d *catalog.ShowtimeDetail) ShowtimeDetailResponse {
	features := d.Venue.Features
	if features == nil {
		features = []string{}
	}

	return ShowtimeDetailResponse{
		ShowtimeResponse: toShowtimeResponse(d.Showtime),
		Movie:            toMovieResponse(d.Movie),
		Venue: VenueResponse{
			ID:            d.Venue.ID.String(),
			Name:          d.Venue.Name,
			City:          d.Venue.City,
			Address:       d.Venue.Address,
			ContactNumber: d.Venue.ContactNumber,
			Email:         d.Venue.Email,
			Features:      features,
		},
	}
}
