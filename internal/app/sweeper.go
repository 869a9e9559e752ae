package app

import (
	"context"
	"time"

	"github.com/campuskit/counselbook/internal/service"
	"go.uber.org/zap"
)

// Sweeper expires stale pending appointment requests in the background.
// The sweep itself is a single guarded bulk update, so overlapping or
// repeated runs are harmless.
type Sweeper struct {
	booking  *service.BookingService
	interval time.Duration
	maxAge   time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
}

func NewSweeper(booking *service.BookingService, interval, maxAge time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		booking:  booking,
		interval: interval,
		maxAge:   maxAge,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start launches the sweep loop; the first sweep runs immediately
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting request expiry sweeper",
		zap.Duration("interval", s.interval),
		zap.Duration("max_age", s.maxAge),
	)

	go s.run(ctx)
}

// Stop stops the sweep loop
func (s *Sweeper) Stop() {
	s.logger.Info("Stopping request expiry sweeper")
	close(s.stopChan)
}

func (s *Sweeper) run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.stopChan:
			s.logger.Info("Request expiry sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Request expiry sweeper cancelled")
			return
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if _, err := s.booking.ExpireStaleRequests(ctx, s.maxAge); err != nil {
		s.logger.Error("Failed to expire stale requests", zap.Error(err))
	}
}
