package reminders

import (
	"context"
	"fmt"
	"time"

	"hodhod-backend/internal/application/emails"
	"hodhod-backend/internal/application/events"
	"hodhod-backend/internal/domain"
	"hodhod-backend/internal/pkg/clock"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Scheduler emits "auction ending soon" reminders to the current top bidder
// at the configured minute offsets before ends_at. It is a pure consumer of
// auction state and never mutates it.
//
// Fired offsets are tracked in a Redis set keyed by (auction, ends_at), so an
// anti-sniping extension changes the key and reminders re-fire against the
// new deadline.
type Scheduler struct {
	DB      *gorm.DB
	Rdb     *redis.Client
	Events  *events.Publisher
	Clock   clock.Clock
	Offsets []int // minutes before ends_at

	// Mailer, when set, also emails the top bidder for each fired reminder.
	Mailer emails.Sender
}

func firedSetKey(auctionID uuid.UUID, endsAt time.Time) string {
	return fmt.Sprintf("hodhod:reminders:%s:%d", auctionID, endsAt.Unix())
}

// Run performs one reminder sweep: for every active auction inside the widest
// offset window, fire each due, not-yet-fired offset at most once.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.Offsets) == 0 {
		return nil
	}
	maxOffset := 0
	for _, o := range s.Offsets {
		if o > maxOffset {
			maxOffset = o
		}
	}
	now := s.Clock.Now()
	horizon := now.Add(time.Duration(maxOffset) * time.Minute)

	var ending []domain.Auction
	if err := s.DB.WithContext(ctx).
		Where("status = ? AND ends_at > ? AND ends_at <= ?", domain.AuctionActive, now, horizon).
		Find(&ending).Error; err != nil {
		return err
	}

	for i := range ending {
		a := &ending[i]
		if a.HighestBidderID == nil {
			continue // nobody to remind yet
		}
		remaining := a.EndsAt.Sub(now)
		key := firedSetKey(a.AuctionID, a.EndsAt)
		for _, offset := range s.Offsets {
			if remaining > time.Duration(offset)*time.Minute {
				continue
			}
			added, err := s.Rdb.SAdd(ctx, key, offset).Result()
			if err != nil {
				log.Warn().Err(err).Str("auction_id", a.AuctionID.String()).Msg("Reminder dedupe check failed")
				continue
			}
			if added == 0 {
				continue // already fired for this deadline
			}
			s.Rdb.ExpireAt(ctx, key, a.EndsAt.Add(time.Hour))
			s.Events.ReminderDue(ctx, a.AuctionID, *a.HighestBidderID, offset, a.EndsAt)
			s.mailReminder(ctx, a, offset)
		}
	}
	return nil
}

func (s *Scheduler) mailReminder(ctx context.Context, a *domain.Auction, offset int) {
	if s.Mailer == nil {
		return
	}
	var leader domain.User
	if err := s.DB.WithContext(ctx).Where("user_id = ?", *a.HighestBidderID).First(&leader).Error; err != nil {
		log.Warn().Err(err).Str("auction_id", a.AuctionID.String()).Msg("Reminder email skipped, bidder lookup failed")
		return
	}
	err := s.Mailer.SendEndingSoon(ctx, leader.Email, leader.Fullname, a.Title, offset, a.CurrentPrice.StringFixed(3))
	if err != nil {
		log.Warn().Err(err).Str("auction_id", a.AuctionID.String()).Msg("Reminder email failed")
	}
}
