package httpgin

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	redisrepo "github.com/kirinyoku/absolut-cinema/internal/repository/redis"
	"github.com/kirinyoku/absolut-cinema/internal/service"
	"github.com/kirinyoku/absolut-cinema/internal/service/booking"
	"github.com/kirinyoku/absolut-cinema/internal/service/catalog"
	"github.com/kirinyoku/absolut-cinema/internal/service/reservation"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// NewRouter wires the HTTP API. replays may be nil, which turns off the replay
// cache in front of seat claims.
func NewRouter(
	svcs *service.Services,
	replays *redisrepo.ClaimReplays,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(logger), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/movies", handleListMovies(svcs))
	r.GET("/movies/:id/showtimes", handleMovieShowtimes(svcs))

	r.GET("/showtimes/:id", handleGetShowtime(svcs))
	r.GET("/showtimes/:id/seats", handleSeatMap(svcs))

	r.POST("/bookings", handleClaimSeats(svcs, replays))
	r.GET("/bookings/:id", handleGetBooking(svcs))
	r.POST("/bookings/:id/payment", handleConfirmPayment(svcs))
	r.POST("/bookings/:id/cancel", handleCancelBooking(svcs))
	r.GET("/bookings/:id/ticket", handleGetTicket(svcs))

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  List movies
// @Success  200  {array}  MovieResponse
// @Router   /movies [get]
func handleListMovies(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		movies, err := svcs.Catalog.ListMovies(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}

		out := make([]MovieResponse, len(movies))
		for i, m := range movies {
			out[i] = toMovieResponse(m)
		}

		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=60", true)
	}
}

// @Summary  List showtimes of a movie
// @Param    id  path  string  true  "Movie ID (uuid)"
// @Success  200  {array}   ShowtimeResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /movies/{id}/showtimes [get]
func handleMovieShowtimes(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		movieID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		showtimes, err := svcs.Catalog.MovieShowtimes(c.Request.Context(), movieID)
		if err != nil {
			respondErr(c, err)
			return
		}

		out := make([]ShowtimeResponse, len(showtimes))
		for i, s := range showtimes {
			out[i] = toShowtimeResponse(s)
		}

		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=15", true)
	}
}

// @Summary  Get showtime with movie and venue
// @Param    id  path  string  true  "Showtime ID (uuid)"
// @Success  200  {object}  ShowtimeDetailResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /showtimes/{id} [get]
func handleGetShowtime(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		d, err := svcs.Catalog.Showtime(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toShowtimeDetailResponse(d))
	}
}

// @Summary  Seat map of a showtime
// @Param    id  path  string  true  "Showtime ID (uuid)"
// @Success  200  {array}   SeatResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /showtimes/{id}/seats [get]
func handleSeatMap(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		seats, err := svcs.Reservation.SeatMap(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		out := make([]SeatResponse, len(seats))
		for i, s := range seats {
			out[i] = SeatResponse{SeatLabel: s.Label, IsTaken: s.IsTaken}
		}

		// seat maps change under clients; they must revalidate every time
		writeJSONWithCache(c, http.StatusOK, out, "no-cache", true)
	}
}

// @Summary  Claim seats (idempotent)
// @Param    req body  ClaimSeatsRequest true "payload"
// @Param    Idempotency-Key header string false "request token"
// @Success  201 {object} ClaimSeatsResponse
// @Failure  400 {object} ErrorResponse "malformed / unknown seat"
// @Failure  404 {object} ErrorResponse "unknown showtime"
// @Failure  409 {object} ErrorResponse "seat taken / claim in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Failure  503 {object} ErrorResponse "busy"
// @Router   /bookings [post]
func handleClaimSeats(
	svcs *service.Services,
	replays *redisrepo.ClaimReplays,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ClaimSeatsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		showtimeID := uuid.MustParse(req.ShowtimeID)
		userID := uuid.MustParse(req.UserID)

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		if idemKey == "" {
			idemKey = strings.TrimSpace(req.RequestToken)
		}

		owned := false
		if replays != nil && idemKey != "" {
			payload, err := replays.Begin(c.Request.Context(), userID, idemKey)
			switch {
			case errors.Is(err, redisrepo.ErrClaimInFlight):
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "claim with this key in progress"})
				return
			case err != nil:
				respondErr(c, err)
				return
			case payload != nil:
				replay(c, idemKey, payload)
				return
			}
			owned = true
		}

		claim, err := svcs.Reservation.ClaimSeats(c.Request.Context(), reservation.ClaimRequest{
			ShowtimeID:   showtimeID,
			UserID:       userID,
			Labels:       req.SeatLabels,
			RequestToken: idemKey,
		})
		if err != nil {
			if owned {
				_ = replays.Abort(c.Request.Context(), userID, idemKey)
			}
			respondErr(c, err)
			return
		}

		b := claim.Booking
		resp := ClaimSeatsResponse{
			BookingID: b.ID.String(),
			Reserved:  b.Seats,
			Status:    string(b.Status),
			Total:     b.TotalCents,
			ExpiresAt: b.ExpiresAt,
		}

		if owned {
			if err := replays.Finish(c.Request.Context(), userID, idemKey, resp); err != nil {
				_ = c.Error(err)
			}
		}
		if idemKey != "" {
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// @Summary  Get booking
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200 {object} BookingResponse
// @Failure  404 {object} ErrorResponse
// @Router   /bookings/{id} [get]
func handleGetBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		b, err := svcs.Booking.Get(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toBookingResponse(b))
	}
}

// @Summary  Pay for a pending booking
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Param    req body  PaymentRequest true "payload"
// @Success  200 {object} PaymentResponse
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "already confirmed / expired / not pending"
// @Router   /bookings/{id}/payment [post]
func handleConfirmPayment(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		var req PaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		b, err := svcs.Booking.ConfirmPayment(c.Request.Context(), id, req.Method, req.AccountNumber)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, PaymentResponse{
			TicketRef:     b.Ticket.Ref,
			MaskedAccount: b.Payment.MaskedAccount,
		})
	}
}

// @Summary  Cancel a pending booking
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200 {object} BookingResponse
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse
// @Router   /bookings/{id}/cancel [post]
func handleCancelBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		b, err := svcs.Booking.Cancel(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toBookingResponse(b))
	}
}

// @Summary  Get the ticket of a confirmed booking
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200 {object} TicketResponse
// @Failure  404 {object} ErrorResponse
// @Router   /bookings/{id}/ticket [get]
func handleGetTicket(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		b, err := svcs.Booking.Ticket(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toTicketResponse(b))
	}
}

// --- Helpers ---

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	v, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return v, true
}

func replay(c *gin.Context, idemKey string, payload []byte) {
	c.Header("Idempotency-Key", idemKey)
	c.Data(
		http.StatusCreated,
		"application/json; charset=utf-8",
		payload,
	)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var (
		seatNotFound *reservation.SeatNotFoundError
		seatConflict *reservation.SeatConflictError
		rateLimited  *reservation.RateLimitedError
	)

	switch {
	// reservation service
	case errors.As(err, &seatNotFound):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "seat not found", Seat: seatNotFound.Label})
	case errors.As(err, &seatConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "seat conflict", Seat: seatConflict.Label})
	case errors.As(err, &rateLimited):
		c.Header("Retry-After", strconv.Itoa(max(1, int(rateLimited.RetryAfter.Round(time.Second).Seconds()))))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited"})
	case errors.Is(err, reservation.ErrMalformed):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, reservation.ErrShowtimeNotFound),
		errors.Is(err, catalog.ErrShowtimeNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "showtime not found"})
	case errors.Is(err, reservation.ErrTokenReused):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "request token reused"})
	case errors.Is(err, reservation.ErrBusy),
		errors.Is(err, booking.ErrBusy):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "busy, try again"})
	// booking service
	case errors.Is(err, booking.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found"})
	case errors.Is(err, booking.ErrTicketNotIssued):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "ticket not issued"})
	case errors.Is(err, booking.ErrAlreadyConfirmed):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "already confirmed"})
	case errors.Is(err, booking.ErrHoldExpired):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "hold expired"})
	case errors.Is(err, booking.ErrNotPending):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "booking is not pending"})
	case errors.Is(err, booking.ErrSeatsNotHeld):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "seats no longer held"})
	case errors.Is(err, booking.ErrInvalidPayment):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	// catalog service
	case errors.Is(err, catalog.ErrMovieNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "movie not found"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
