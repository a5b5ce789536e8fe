package httpgin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kirinyoku/absolut-cinema/internal/repository/memory"
	"github.com/kirinyoku/absolut-cinema/internal/service"
	"github.com/kirinyoku/absolut-cinema/internal/service/booking"
	"github.com/kirinyoku/absolut-cinema/internal/service/catalog"
	"github.com/kirinyoku/absolut-cinema/internal/service/reservation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testAPI struct {
	router http.Handler
	fx     catalog.Fixtures
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svcs := service.NewServices(service.Deps{
		UoW:    memory.New(),
		Logger: logger,
	}, service.Config{})

	fx := catalog.DefaultFixtures(time.Now().UTC())
	require.NoError(t, svcs.Catalog.Seed(context.Background(), fx))

	return &testAPI{
		router: NewRouter(svcs, nil, logger),
		fx:     fx,
	}
}

func (a *testAPI) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (a *testAPI) claimBody(labels ...string) ClaimSeatsRequest {
	return ClaimSeatsRequest{
		ShowtimeID: a.fx.Showtimes[0].ID.String(),
		UserID:     a.fx.Users[0].ID.String(),
		SeatLabels: labels,
	}
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCatalogRoutes(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/movies", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]MovieResponse](t, w), 3)

	w = api.do(t, http.MethodGet, "/movies/"+api.fx.Movies[0].ID.String()+"/showtimes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	showtimes := decode[[]ShowtimeResponse](t, w)
	require.Len(t, showtimes, 3)
	assert.Equal(t, 12, showtimes[0].Available)

	w = api.do(t, http.MethodGet, "/movies/"+uuid.NewString()+"/showtimes", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodGet, "/showtimes/"+api.fx.Showtimes[0].ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[ShowtimeDetailResponse](t, w)
	assert.Equal(t, "White Chicks", detail.Movie.Title)
	assert.Equal(t, "Absolut Cinema - Katipunan", detail.Venue.Name)

	w = api.do(t, http.MethodGet, "/showtimes/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSeatMap_ETag(t *testing.T) {
	api := newTestAPI(t)
	path := "/showtimes/" + api.fx.Showtimes[0].ID.String() + "/seats"

	w := api.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))

	seats := decode[[]SeatResponse](t, w)
	require.Len(t, seats, 15)
	assert.Equal(t, SeatResponse{SeatLabel: "A1"}, seats[0])
	assert.Equal(t, SeatResponse{SeatLabel: "A5", IsTaken: true}, seats[4])

	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	w = api.do(t, http.MethodGet, path, nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, w.Code)

	// a claim changes the map and the tag
	w = api.do(t, http.MethodPost, "/bookings", api.claimBody("A1"))
	require.Equal(t, http.StatusCreated, w.Code)

	w = api.do(t, http.MethodGet, path, nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBookingFlow(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/bookings", api.claimBody("A1", "A2"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	claim := decode[ClaimSeatsResponse](t, w)
	assert.Equal(t, []string{"A1", "A2"}, claim.Reserved)
	assert.Equal(t, "pending", claim.Status)
	assert.Equal(t, int64(80000), claim.Total)

	w = api.do(t, http.MethodPost, "/bookings", api.claimBody("A2", "A3"))
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "A2", decode[ErrorResponse](t, w).Seat)

	w = api.do(t, http.MethodPost, "/bookings/"+claim.BookingID+"/payment", PaymentRequest{
		Method:        "gcash",
		AccountNumber: "09171234567",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	paid := decode[PaymentResponse](t, w)
	assert.Equal(t, "GCash ••••4567", paid.MaskedAccount)
	assert.Regexp(t, `^ACB-[A-Z0-9]{5}$`, paid.TicketRef)

	w = api.do(t, http.MethodPost, "/bookings/"+claim.BookingID+"/payment", PaymentRequest{
		Method:        "gcash",
		AccountNumber: "09171234567",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(t, http.MethodGet, "/bookings/"+claim.BookingID+"/ticket", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ticket := decode[TicketResponse](t, w)
	assert.Equal(t, paid.TicketRef, ticket.TicketRef)
	assert.Equal(t, "GCash ••••4567", ticket.MaskedAccount)

	w = api.do(t, http.MethodGet, "/bookings/"+claim.BookingID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	b := decode[BookingResponse](t, w)
	assert.Equal(t, "confirmed", b.Status)
	require.NotNil(t, b.Payment)
	assert.NotContains(t, w.Body.String(), "09171234567")
}

func TestCancelRoute(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/bookings", api.claimBody("A3"))
	require.Equal(t, http.StatusCreated, w.Code)
	claim := decode[ClaimSeatsResponse](t, w)

	w = api.do(t, http.MethodGet, "/bookings/"+claim.BookingID+"/ticket", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodPost, "/bookings/"+claim.BookingID+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelled", decode[BookingResponse](t, w).Status)

	w = api.do(t, http.MethodPost, "/bookings/"+claim.BookingID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestClaimSeats_RequestTokenReplay(t *testing.T) {
	api := newTestAPI(t)

	body := api.claimBody("A4")
	body.RequestToken = "checkout-1"

	w := api.do(t, http.MethodPost, "/bookings", body)
	require.Equal(t, http.StatusCreated, w.Code)
	first := decode[ClaimSeatsResponse](t, w)

	w = api.do(t, http.MethodPost, "/bookings", api.claimBody("A4"), "Idempotency-Key", "checkout-1")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, first.BookingID, decode[ClaimSeatsResponse](t, w).BookingID)
	assert.Equal(t, "checkout-1", w.Header().Get("Idempotency-Key"))

	w = api.do(t, http.MethodPost, "/bookings", api.claimBody("A7"), "Idempotency-Key", "checkout-1")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestClaimSeats_BadRequests(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name string
		body any
		code int
		seat string
	}{
		{name: "unknown seat", body: api.claimBody("A1", "Z9"), code: http.StatusBadRequest, seat: "Z9"},
		{name: "no seats", body: api.claimBody(), code: http.StatusBadRequest},
		{name: "duplicate seats", body: api.claimBody("A1", "A1"), code: http.StatusBadRequest},
		{name: "bad showtime id", body: map[string]any{"showtimeId": "x", "userId": uuid.NewString(), "seatLabels": []string{"A1"}}, code: http.StatusBadRequest},
		{
			name: "unknown showtime",
			body: ClaimSeatsRequest{ShowtimeID: uuid.NewString(), UserID: uuid.NewString(), SeatLabels: []string{"A1"}},
			code: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, http.MethodPost, "/bookings", tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
			if tt.seat != "" {
				assert.Equal(t, tt.seat, decode[ErrorResponse](t, w).Seat)
			}
		})
	}
}

func TestRespondErr(t *testing.T) {
	tests := []struct {
		err        error
		code       int
		retryAfter string
	}{
		{err: &reservation.SeatNotFoundError{Label: "Z1"}, code: http.StatusBadRequest},
		{err: fmt.Errorf("op: %w", &reservation.SeatConflictError{Label: "A1"}), code: http.StatusConflict},
		{err: &reservation.RateLimitedError{RetryAfter: 2500 * time.Millisecond}, code: http.StatusTooManyRequests, retryAfter: "3"},
		{err: reservation.ErrBusy, code: http.StatusServiceUnavailable, retryAfter: "1"},
		{err: booking.ErrBusy, code: http.StatusServiceUnavailable, retryAfter: "1"},
		{err: reservation.ErrTokenReused, code: http.StatusConflict},
		{err: catalog.ErrShowtimeNotFound, code: http.StatusNotFound},
		{err: booking.ErrHoldExpired, code: http.StatusConflict},
		{err: booking.ErrSeatsNotHeld, code: http.StatusConflict},
		{err: booking.ErrInvalidPayment, code: http.StatusBadRequest},
		{err: catalog.ErrMovieNotFound, code: http.StatusNotFound},
		{err: assert.AnError, code: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondErr(c, tt.err)

			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.retryAfter, w.Header().Get("Retry-After"))
		})
	}
}

func TestETagMatches(t *testing.T) {
	tag := bodyETag([]byte(`[]`), true)

	assert.True(t, etagMatches(tag, tag))
	assert.True(t, etagMatches(`"x", `+tag, tag))
	assert.True(t, etagMatches(strings.TrimPrefix(tag, "W/"), tag))
	assert.True(t, etagMatches("*", tag))
	assert.False(t, etagMatches("", tag))
	assert.False(t, etagMatches(`"other"`, tag))
}
