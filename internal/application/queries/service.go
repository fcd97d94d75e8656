package queries

import (
	"context"
	"errors"
	"time"

	"hodhod-backend/internal/application/ledger"
	"hodhod-backend/internal/domain"
	"hodhod-backend/internal/pkg/auctionerrors"
	"hodhod-backend/internal/pkg/clock"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service is the read-only auction query facade: pure projections over the
// auction row and the bid ledger, no business rules. Presentation layers read
// here and nowhere else; no client-held cache is authoritative.
type Service struct {
	DB    *gorm.DB
	Bids  *ledger.BidLedger
	Clock clock.Clock
}

// Summary is the display projection of one auction.
type Summary struct {
	AuctionID        uuid.UUID           `json:"auction_id"`
	SellerID         uuid.UUID           `json:"seller_id"`
	Title            string              `json:"title"`
	Description      string              `json:"description"`
	Status           string              `json:"status"`
	CurrentPrice     decimal.Decimal     `json:"current_price"`
	MinNextBid       decimal.Decimal     `json:"min_next_bid"`
	BuyNowPrice      decimal.NullDecimal `json:"buy_now_price"`
	HighestBidderID  *uuid.UUID          `json:"highest_bidder_id"`
	BidCount         int                 `json:"bid_count"`
	StartsAt         time.Time           `json:"starts_at"`
	EndsAt           time.Time           `json:"ends_at"`
	RemainingSeconds int64               `json:"remaining_seconds"`
	RequireDeposit   bool                `json:"require_deposit"`
	DepositAmount    decimal.Decimal     `json:"deposit_amount"`
}

// HistoryPage is one reverse-chronological page of the bid ledger.
type HistoryPage struct {
	Bids     []domain.Bid `json:"bids"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
	Total    int64        `json:"total"`
}

// GetSummary returns the display projection for one auction.
func (s *Service) GetSummary(ctx context.Context, auctionID uuid.UUID) (*Summary, error) {
	auction, err := s.getAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	remaining := int64(0)
	if auction.Status == domain.AuctionActive || auction.Status == domain.AuctionScheduled {
		if d := auction.EndsAt.Sub(s.Clock.Now()); d > 0 {
			remaining = int64(d.Seconds())
		}
	}

	return &Summary{
		AuctionID:        auction.AuctionID,
		SellerID:         auction.SellerID,
		Title:            auction.Title,
		Description:      auction.Description,
		Status:           auction.Status,
		CurrentPrice:     auction.CurrentPrice,
		MinNextBid:       auction.MinAcceptableBid(),
		BuyNowPrice:      auction.BuyNowPrice,
		HighestBidderID:  auction.HighestBidderID,
		BidCount:         auction.BidCount,
		StartsAt:         auction.StartsAt,
		EndsAt:           auction.EndsAt,
		RemainingSeconds: remaining,
		RequireDeposit:   auction.RequireDeposit,
		DepositAmount:    auction.DepositAmount,
	}, nil
}

// GetHistory returns one page of bids, most recent first.
func (s *Service) GetHistory(ctx context.Context, auctionID uuid.UUID, page, pageSize int) (*HistoryPage, error) {
	if _, err := s.getAuction(ctx, auctionID); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	bids, total, err := s.Bids.HistoryPage(ctx, auctionID, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &HistoryPage{Bids: bids, Page: page, PageSize: pageSize, Total: total}, nil
}

// GetAllActive returns active auctions, soonest-ending first.
func (s *Service) GetAllActive(ctx context.Context) ([]domain.Auction, error) {
	var auctions []domain.Auction
	err := s.DB.WithContext(ctx).
		Where("status = ?", domain.AuctionActive).
		Order("ends_at ASC").
		Find(&auctions).Error
	return auctions, err
}

// GetSellerAuctions returns every auction owned by the seller, newest first.
func (s *Service) GetSellerAuctions(ctx context.Context, sellerID uuid.UUID) ([]domain.Auction, error) {
	if sellerID == uuid.Nil {
		return nil, errors.New("seller is required")
	}
	var auctions []domain.Auction
	err := s.DB.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&auctions).Error
	return auctions, err
}

func (s *Service) getAuction(ctx context.Context, auctionID uuid.UUID) (*domain.Auction, error) {
	var auction domain.Auction
	err := s.DB.WithContext(ctx).Where("auction_id = ?", auctionID).First(&auction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, auctionerrors.ErrAuctionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &auction, nil
}
