package bookings

import (
	"context"
	"fmt"
	"time"

	"worldtour/internal/shared/config"
	"worldtour/pkg/logger"

	"github.com/go-co-op/gocron/v2"
)

// HoldSweeper periodically expires pending bookings whose payment window
// closed, returning their capacity to the catalog.
type HoldSweeper struct {
	service   Service
	scheduler gocron.Scheduler
	cfg       config.BookingConfig
	log       *logger.Logger
}

// NewHoldSweeper creates a sweeper; Start schedules it
func NewHoldSweeper(service Service, cfg config.BookingConfig) (*HoldSweeper, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &HoldSweeper{
		service:   service,
		scheduler: scheduler,
		cfg:       cfg,
		log:       logger.GetDefault(),
	}, nil
}

func (h *HoldSweeper) Start() error {
	interval := h.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}

	_, err := h.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(h.Sweep),
		gocron.WithName("expire-booking-holds"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule hold sweeper: %w", err)
	}

	h.scheduler.Start()
	h.log.Info("✅ Booking hold sweeper started", "interval", interval.String(), "hold_ttl", h.cfg.HoldTTL.String())
	return nil
}

// Sweep runs one expiry pass
func (h *HoldSweeper) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := h.service.ExpireStaleHolds(ctx, time.Now().UTC(), h.cfg.SweepBatchSize); err != nil {
		h.log.ErrorWithContext(ctx, "hold sweep failed", err, nil)
	}
}

func (h *HoldSweeper) Stop() error {
	return h.scheduler.Shutdown()
}
