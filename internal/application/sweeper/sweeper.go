package sweeper

import (
	"context"
	"fmt"
	"time"

	"hodhod-backend/internal/application/auctions"
	"hodhod-backend/internal/application/reminders"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Sweeper drives the time-based auction transitions that have no user-facing
// caller: scheduled→active at starts_at, active→ended_* at ends_at, and
// reminder emission. Each tick is independent; a failed close is retried next
// tick through the idempotent Close path.
type Sweeper struct {
	Auctions  *auctions.Service
	Reminders *reminders.Scheduler

	cron    *cron.Cron
	baseCtx context.Context
}

func New(auctionsSvc *auctions.Service, remindersSch *reminders.Scheduler, baseCtx context.Context) *Sweeper {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Sweeper{
		Auctions:  auctionsSvc,
		Reminders: remindersSch,
		cron:      cron.New(cron.WithSeconds()),
		baseCtx:   baseCtx,
	}
}

// Start registers the sweep at the given interval and starts the cron loop.
func (s *Sweeper) Start(interval time.Duration) error {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	spec := fmt.Sprintf("@every %s", interval)
	if _, err := s.cron.AddFunc(spec, func() { s.Tick(s.baseCtx) }); err != nil {
		return err
	}
	s.cron.Start()
	log.Info().Str("interval", interval.String()).Msg("Auction sweeper started")
	return nil
}

// Stop waits for any in-flight tick to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info().Msg("Auction sweeper stopped")
}

// Tick runs one sweep: activate due auctions, close expired ones, fire
// reminders. Exported so tests and manual admin tooling can invoke it.
func (s *Sweeper) Tick(ctx context.Context) {
	if err := s.Auctions.ActivateDue(ctx); err != nil {
		log.Error().Err(err).Msg("Sweep: activating due auctions failed")
	}
	if err := s.Auctions.CloseDue(ctx); err != nil {
		log.Error().Err(err).Msg("Sweep: closing due auctions failed")
	}
	if s.Reminders != nil {
		if err := s.Reminders.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Sweep: reminder run failed")
		}
	}
}
