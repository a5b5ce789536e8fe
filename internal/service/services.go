package service

import (
	"log/slog"

	"github.com/kirinyoku/absolut-cinema/internal/service/booking"
	"github.com/kirinyoku/absolut-cinema/internal/service/catalog"
	"github.com/kirinyoku/absolut-cinema/internal/service/consistency"
	"github.com/kirinyoku/absolut-cinema/internal/service/ports"
	"github.com/kirinyoku/absolut-cinema/internal/service/reservation"
)

type Services struct {
	Reservation *reservation.Service
	Booking     *booking.Service
	Catalog     *catalog.Service
	Consistency *consistency.Service
}

type Config struct {
	Reservation reservation.Config
	Booking     booking.Config
	Catalog     catalog.Config
}

// Deps are the adapters the services run on. Only UoW is required; a nil
// SnapshotUoW falls back to UoW.
type Deps struct {
	UoW          ports.UnitOfWork
	SnapshotUoW  ports.UnitOfWork
	SeatCache    ports.SeatMapCache
	CatalogCache ports.CatalogCache
	Notifier     ports.ShowtimeNotifier
	Limiter      ports.ClaimLimiter
	Events       ports.BookingEvents
	Logger       *slog.Logger
}

func NewServices(deps Deps, cfg Config) *Services {
	snapshot := deps.SnapshotUoW
	if snapshot == nil {
		snapshot = deps.UoW
	}

	res := reservation.New(
		deps.UoW,
		deps.SeatCache,
		deps.Notifier,
		deps.Limiter,
		deps.Logger,
		cfg.Reservation,
	)

	return &Services{
		Reservation: res,
		Booking:     booking.New(deps.UoW, res, deps.Events, deps.Logger, cfg.Booking),
		Catalog:     catalog.New(deps.UoW, deps.CatalogCache, deps.Logger, cfg.Catalog),
		Consistency: consistency.New(snapshot),
	}
}
