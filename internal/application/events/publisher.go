package events

import (
	"context"
	"encoding/json"
	"time"

	"hodhod-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Redis channels. Subscribers (notification workers, live auction pages) get
// every event on the global channel and per-auction updates on the scoped one.
const (
	ChannelGlobal        = "hodhod:auction-events"
	channelAuctionPrefix = "hodhod:auction-events:"
)

// ChannelForAuction returns the per-auction pub/sub channel name.
func ChannelForAuction(auctionID uuid.UUID) string {
	return channelAuctionPrefix + auctionID.String()
}

// Envelope is the JSON shape published to Redis.
type Envelope struct {
	AuctionID uuid.UUID              `json:"auction_id"`
	EventType string                 `json:"event_type"`
	Data      map[string]interface{} `json:"data"`
	At        time.Time              `json:"at"`
}

// Publisher persists auction events and fans them out over Redis pub/sub.
// Delivery is best-effort: the state machine never depends on it for
// correctness, so failures are logged and swallowed.
type Publisher struct {
	DB  *gorm.DB
	Rdb *redis.Client
}

func (p *Publisher) AuctionCreated(ctx context.Context, a *domain.Auction) {
	p.emit(ctx, a.AuctionID, domain.EventCreated, &a.SellerID, map[string]interface{}{
		"title":       a.Title,
		"start_price": a.StartPrice,
		"starts_at":   a.StartsAt,
		"ends_at":     a.EndsAt,
	})
}

func (p *Publisher) AuctionActivated(ctx context.Context, auctionID uuid.UUID) {
	p.emit(ctx, auctionID, domain.EventActivated, nil, map[string]interface{}{})
}

func (p *Publisher) BidPlaced(ctx context.Context, bid *domain.Bid, newPrice decimal.Decimal) {
	p.emit(ctx, bid.AuctionID, domain.EventBidPlaced, &bid.BidderID, map[string]interface{}{
		"bid_id":     bid.BidID,
		"bidder_id":  bid.BidderID,
		"new_price":  newPrice,
		"is_buy_now": bid.IsBuyNow,
		"placed_at":  bid.PlacedAt,
	})
}

func (p *Publisher) AuctionExtended(ctx context.Context, auctionID uuid.UUID, newEndsAt time.Time, extensionCount int) {
	p.emit(ctx, auctionID, domain.EventExtended, nil, map[string]interface{}{
		"new_ends_at":     newEndsAt,
		"extension_count": extensionCount,
	})
}

func (p *Publisher) AuctionEnded(ctx context.Context, auctionID uuid.UUID, reason string, winnerID *uuid.UUID, finalPrice decimal.Decimal) {
	data := map[string]interface{}{
		"reason":      reason,
		"final_price": finalPrice,
	}
	if winnerID != nil {
		data["winner_id"] = *winnerID
	}
	p.emit(ctx, auctionID, domain.EventEnded, nil, data)
}

func (p *Publisher) AuctionCancelled(ctx context.Context, auctionID, byID uuid.UUID) {
	p.emit(ctx, auctionID, domain.EventCancelled, &byID, map[string]interface{}{})
}

func (p *Publisher) ReminderDue(ctx context.Context, auctionID, bidderID uuid.UUID, offsetMinutes int, endsAt time.Time) {
	p.emit(ctx, auctionID, domain.EventReminderDue, nil, map[string]interface{}{
		"bidder_id":      bidderID,
		"offset_minutes": offsetMinutes,
		"ends_at":        endsAt,
	})
}

func (p *Publisher) emit(ctx context.Context, auctionID uuid.UUID, eventType string, actorID *uuid.UUID, data map[string]interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("Failed to marshal auction event")
		return
	}

	if p.DB != nil {
		record := domain.AuctionEvent{
			AuctionID: auctionID,
			EventType: eventType,
			EventData: datatypes.JSON(payload),
			ActorID:   actorID,
		}
		if err := p.DB.WithContext(ctx).Create(&record).Error; err != nil {
			log.Error().Err(err).Str("event_type", eventType).Str("auction_id", auctionID.String()).Msg("Failed to persist auction event")
		}
	}

	if p.Rdb == nil {
		return
	}
	env := Envelope{
		AuctionID: auctionID,
		EventType: eventType,
		Data:      data,
		At:        time.Now().UTC(),
	}
	b, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("Failed to marshal event envelope")
		return
	}
	if err := p.Rdb.Publish(ctx, ChannelGlobal, b).Err(); err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Msg("Failed to publish auction event (global)")
	}
	if err := p.Rdb.Publish(ctx, ChannelForAuction(auctionID), b).Err(); err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Msg("Failed to publish auction event (scoped)")
	}
}
