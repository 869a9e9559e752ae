package app

import (
	"context"
	"fmt"

	"github.com/campuskit/counselbook/internal/calendar"
	"github.com/campuskit/counselbook/internal/config"
	"github.com/campuskit/counselbook/internal/repository"
	"github.com/campuskit/counselbook/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App wires the booking core together. The service handles are what a
// consumer surface (HTTP controllers, admin tooling) reaches for.
type App struct {
	Booking      *service.BookingService
	Slots        *service.SlotService
	Availability *service.AvailabilityService

	pool    *pgxpool.Pool
	sweeper *Sweeper
	logger  *zap.Logger
}

// New connects the database, applies migrations and builds the service
// graph. The calendar client is constructed once here and injected.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	migrator, err := NewMigrator(pool, "migrations")
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := migrator.Run(ctx); err != nil {
		migrator.Close()
		pool.Close()
		return nil, err
	}
	migrator.Close()

	requestRepo := repository.NewRequestRepository(pool)
	appointmentRepo := repository.NewAppointmentRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	txm := repository.NewTxManager(pool)

	calClient := calendar.NewClient(calendar.Config{
		BaseURL: cfg.CalendarBaseURL,
		APIKey:  cfg.CalendarAPIKey,
		Timeout: cfg.CalendarTimeout,
	})

	availability := service.NewAvailabilityService(appointmentRepo, calClient, logger)
	booking := service.NewBookingService(txm, requestRepo, appointmentRepo, userRepo, calClient, availability, logger)
	slots := service.NewSlotService(availability, cfg.Location(), logger)

	return &App{
		Booking:      booking,
		Slots:        slots,
		Availability: availability,
		pool:         pool,
		sweeper:      NewSweeper(booking, cfg.SweepInterval, cfg.RequestExpiry, logger),
		logger:       logger,
	}, nil
}

// Start launches the background workers
func (a *App) Start(ctx context.Context) {
	a.sweeper.Start(ctx)
}

// Close stops the workers and releases the pool
func (a *App) Close() {
	a.sweeper.Stop()
	a.pool.Close()
	a.logger.Info("Application stopped")
}
