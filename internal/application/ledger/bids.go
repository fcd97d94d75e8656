package ledger

import (
	"context"
	"errors"
	"time"

	"hodhod-backend/internal/domain"
	"hodhod-backend/internal/pkg/auctionerrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BidLedger is the append-only record of admitted bids per auction. It is the
// source of truth for current price; the Auction row's derived columns are
// only ever updated in the same transaction as an Append.
type BidLedger struct {
	DB *gorm.DB
}

// Append writes a bid inside tx after re-checking the monotonic-price
// invariant against the latest ledger entry. The state machine validates
// before calling, but the ledger is the final guard.
func (l *BidLedger) Append(tx *gorm.DB, auction *domain.Auction, bid *domain.Bid) error {
	var latest domain.Bid
	err := tx.Where("auction_id = ?", auction.AuctionID).
		Order("placed_at DESC").
		First(&latest).Error
	switch {
	case err == nil:
		min := latest.Amount.Add(auction.MinIncrement)
		if bid.Amount.LessThan(min) {
			return &auctionerrors.BidTooLowError{MinAcceptable: min}
		}
		// placed_at must advance even if the server clock did not
		if !bid.PlacedAt.After(latest.PlacedAt) {
			bid.PlacedAt = latest.PlacedAt.Add(time.Millisecond)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if bid.Amount.LessThan(auction.StartPrice) {
			return &auctionerrors.BidTooLowError{MinAcceptable: auction.StartPrice}
		}
	default:
		return err
	}

	return tx.Create(bid).Error
}

// Latest returns the most recent bid for the auction, or nil when the ledger
// is empty.
func (l *BidLedger) Latest(ctx context.Context, auctionID uuid.UUID) (*domain.Bid, error) {
	var bid domain.Bid
	err := l.DB.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order("placed_at DESC").
		First(&bid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

// History returns all bids for the auction in placement order.
func (l *BidLedger) History(ctx context.Context, auctionID uuid.UUID) ([]domain.Bid, error) {
	var bids []domain.Bid
	err := l.DB.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order("placed_at ASC").
		Find(&bids).Error
	return bids, err
}

// HistoryPage returns one page of bids, most recent first, plus the total count.
func (l *BidLedger) HistoryPage(ctx context.Context, auctionID uuid.UUID, page, pageSize int) ([]domain.Bid, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	var total int64
	if err := l.DB.WithContext(ctx).Model(&domain.Bid{}).Where("auction_id = ?", auctionID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var bids []domain.Bid
	err := l.DB.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order("placed_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&bids).Error
	return bids, total, err
}

// Count returns the number of admitted bids for the auction.
func (l *BidLedger) Count(ctx context.Context, auctionID uuid.UUID) (int64, error) {
	var n int64
	err := l.DB.WithContext(ctx).Model(&domain.Bid{}).Where("auction_id = ?", auctionID).Count(&n).Error
	return n, err
}
