package queries

import (
	"context"
	"testing"
	"time"

	"hodhod-backend/internal/application/ledger"
	"hodhod-backend/internal/domain"
	"hodhod-backend/internal/pkg/auctionerrors"
	"hodhod-backend/internal/pkg/clock"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var queryNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func setupQueries(t *testing.T) (*Service, *gorm.DB, *clock.Mock) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Auction{}, &domain.Bid{}))
	mock := clock.NewMock(queryNow)
	return &Service{DB: db, Bids: &ledger.BidLedger{DB: db}, Clock: mock}, db, mock
}

func TestGetSummary_NotFound(t *testing.T) {
	s, _, _ := setupQueries(t)
	_, err := s.GetSummary(context.Background(), uuid.New())
	assert.ErrorIs(t, err, auctionerrors.ErrAuctionNotFound)
}

func TestGetSummary_FreshAuction(t *testing.T) {
	s, db, _ := setupQueries(t)
	a := &domain.Auction{
		SellerID:     uuid.New(),
		Title:        "Steel rebar lot",
		StartPrice:   dec("100"),
		MinIncrement: dec("10"),
		CurrentPrice: dec("100"),
		StartsAt:     queryNow.Add(-time.Hour),
		EndsAt:       queryNow.Add(30 * time.Minute),
		Status:       domain.AuctionActive,
	}
	require.NoError(t, db.Create(a).Error)

	sum, err := s.GetSummary(context.Background(), a.AuctionID)
	require.NoError(t, err)
	assert.Equal(t, domain.AuctionActive, sum.Status)
	// no bids yet: the start price is the floor
	assert.True(t, sum.MinNextBid.Equal(dec("100")))
	assert.Equal(t, int64(30*60), sum.RemainingSeconds)
	assert.Nil(t, sum.HighestBidderID)
}

func TestGetSummary_WithBids(t *testing.T) {
	s, db, mock := setupQueries(t)
	leader := uuid.New()
	a := &domain.Auction{
		SellerID:        uuid.New(),
		Title:           "Scaffolding rental",
		StartPrice:      dec("100"),
		MinIncrement:    dec("10"),
		CurrentPrice:    dec("150"),
		HighestBidderID: &leader,
		BidCount:        3,
		StartsAt:        queryNow.Add(-time.Hour),
		EndsAt:          queryNow.Add(10 * time.Minute),
		Status:          domain.AuctionActive,
	}
	require.NoError(t, db.Create(a).Error)

	sum, err := s.GetSummary(context.Background(), a.AuctionID)
	require.NoError(t, err)
	assert.True(t, sum.MinNextBid.Equal(dec("160")))
	assert.Equal(t, &leader, sum.HighestBidderID)

	// terminal auctions report zero remaining time
	mock.Set(a.EndsAt.Add(time.Minute))
	require.NoError(t, db.Model(a).Update("status", domain.AuctionEndedSold).Error)
	sum, err = s.GetSummary(context.Background(), a.AuctionID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), sum.RemainingSeconds)
}

func TestGetHistory_PagingAndClamps(t *testing.T) {
	s, db, _ := setupQueries(t)
	a := &domain.Auction{
		SellerID:     uuid.New(),
		Title:        "Crane hire",
		StartPrice:   dec("100"),
		MinIncrement: dec("10"),
		CurrentPrice: dec("100"),
		StartsAt:     queryNow.Add(-time.Hour),
		EndsAt:       queryNow.Add(time.Hour),
		Status:       domain.AuctionActive,
	}
	require.NoError(t, db.Create(a).Error)
	for i := 0; i < 5; i++ {
		require.NoError(t, db.Create(&domain.Bid{
			AuctionID: a.AuctionID,
			BidderID:  uuid.New(),
			Amount:    dec("100").Add(decimal.NewFromInt(int64(i * 10))),
			PlacedAt:  queryNow.Add(time.Duration(i) * time.Second),
		}).Error)
	}

	page, err := s.GetHistory(context.Background(), a.AuctionID, 0, -3)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	assert.Equal(t, int64(5), page.Total)
	require.Len(t, page.Bids, 5)
	// newest first
	assert.True(t, page.Bids[0].Amount.Equal(dec("140")))

	_, err = s.GetHistory(context.Background(), uuid.New(), 1, 10)
	assert.ErrorIs(t, err, auctionerrors.ErrAuctionNotFound)
}

func TestGetAllActive_SoonestEndingFirst(t *testing.T) {
	s, db, _ := setupQueries(t)
	mk := func(ends time.Time, status string) *domain.Auction {
		a := &domain.Auction{
			SellerID:     uuid.New(),
			Title:        "Lot",
			StartPrice:   dec("10"),
			MinIncrement: dec("1"),
			CurrentPrice: dec("10"),
			StartsAt:     queryNow.Add(-time.Hour),
			EndsAt:       ends,
			Status:       status,
		}
		require.NoError(t, db.Create(a).Error)
		return a
	}
	later := mk(queryNow.Add(2*time.Hour), domain.AuctionActive)
	sooner := mk(queryNow.Add(time.Hour), domain.AuctionActive)
	mk(queryNow.Add(time.Minute), domain.AuctionEndedUnsold)

	active, err := s.GetAllActive(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, sooner.AuctionID, active[0].AuctionID)
	assert.Equal(t, later.AuctionID, active[1].AuctionID)
}

func TestGetSellerAuctions(t *testing.T) {
	s, db, _ := setupQueries(t)
	seller := uuid.New()
	for i := 0; i < 2; i++ {
		require.NoError(t, db.Create(&domain.Auction{
			SellerID:     seller,
			Title:        "Mine",
			StartPrice:   dec("10"),
			MinIncrement: dec("1"),
			CurrentPrice: dec("10"),
			StartsAt:     queryNow,
			EndsAt:       queryNow.Add(time.Hour),
			Status:       domain.AuctionScheduled,
		}).Error)
	}
	require.NoError(t, db.Create(&domain.Auction{
		SellerID:     uuid.New(),
		Title:        "Someone else's",
		StartPrice:   dec("10"),
		MinIncrement: dec("1"),
		CurrentPrice: dec("10"),
		StartsAt:     queryNow,
		EndsAt:       queryNow.Add(time.Hour),
		Status:       domain.AuctionScheduled,
	}).Error)

	mine, err := s.GetSellerAuctions(context.Background(), seller)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = s.GetSellerAuctions(context.Background(), uuid.Nil)
	assert.Error(t, err)
}
