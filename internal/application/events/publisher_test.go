package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"hodhod-backend/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupPublisher(t *testing.T) (*Publisher, *gorm.DB, *redis.Client) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.AuctionEvent{}))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return &Publisher{DB: db, Rdb: rdb}, db, rdb
}

func TestBidPlaced_PersistsAndPublishes(t *testing.T) {
	p, db, rdb := setupPublisher(t)
	ctx := context.Background()
	auctionID := uuid.New()

	sub := rdb.Subscribe(ctx, ChannelGlobal)
	t.Cleanup(func() { sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	bid := &domain.Bid{
		BidID:     uuid.New(),
		AuctionID: auctionID,
		BidderID:  uuid.New(),
		Amount:    decimal.NewFromInt(120),
		PlacedAt:  time.Now().UTC(),
	}
	p.BidPlaced(ctx, bid, bid.Amount)

	var row domain.AuctionEvent
	require.NoError(t, db.Where("auction_id = ?", auctionID).First(&row).Error)
	assert.Equal(t, domain.EventBidPlaced, row.EventType)
	assert.Equal(t, &bid.BidderID, row.ActorID)

	msg, err := sub.ReceiveTimeout(ctx, 2*time.Second)
	require.NoError(t, err)
	m, ok := msg.(*redis.Message)
	require.True(t, ok)
	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(m.Payload), &env))
	assert.Equal(t, auctionID, env.AuctionID)
	assert.Equal(t, domain.EventBidPlaced, env.EventType)
}

func TestAuctionEnded_IncludesWinner(t *testing.T) {
	p, db, _ := setupPublisher(t)
	ctx := context.Background()
	auctionID := uuid.New()
	winner := uuid.New()

	p.AuctionEnded(ctx, auctionID, domain.AuctionEndedSold, &winner, decimal.NewFromInt(500))

	var row domain.AuctionEvent
	require.NoError(t, db.Where("auction_id = ?", auctionID).First(&row).Error)
	assert.Equal(t, domain.EventEnded, row.EventType)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(row.EventData, &data))
	assert.Equal(t, domain.AuctionEndedSold, data["reason"])
	assert.Equal(t, winner.String(), data["winner_id"])
}

func TestEmit_ToleratesMissingBackends(t *testing.T) {
	p := &Publisher{} // no DB, no Redis
	assert.NotPanics(t, func() {
		p.AuctionActivated(context.Background(), uuid.New())
	})
}

func TestChannelForAuction(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, "hodhod:auction-events:"+id.String(), ChannelForAuction(id))
}
