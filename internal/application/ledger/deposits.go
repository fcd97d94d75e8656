package ledger

import (
	"context"
	"errors"
	"fmt"

	"hodhod-backend/internal/application/payments"
	"hodhod-backend/internal/domain"
	"hodhod-backend/internal/pkg/auctionerrors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// DepositLedger tracks refundable per-bidder holds against an auction and
// mirrors them to the payment provider. Capture and Release are terminal and
// idempotent so that retried settlements are safe.
type DepositLedger struct {
	DB       *gorm.DB
	Provider payments.Provider
}

// Ensure returns the bidder's active hold for the auction, creating one via
// the provider when none exists. This is called before the per-auction
// serialization point so the provider call never happens under it. A hold
// created here but not followed by an admitted bid simply stays held and is
// released when the auction ends.
func (l *DepositLedger) Ensure(ctx context.Context, auction *domain.Auction, bidderID uuid.UUID) (*domain.DepositHold, error) {
	var hold domain.DepositHold
	err := l.DB.WithContext(ctx).
		Where("auction_id = ? AND bidder_id = ? AND state IN ?", auction.AuctionID, bidderID, []string{domain.DepositHeld, domain.DepositCaptured}).
		First(&hold).Error
	if err == nil {
		return &hold, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	ref, err := l.Provider.Hold(ctx, bidderID, auction.DepositAmount)
	if err != nil {
		log.Warn().Err(err).
			Str("auction_id", auction.AuctionID.String()).
			Str("bidder_id", bidderID.String()).
			Msg("Deposit hold declined by provider")
		return nil, fmt.Errorf("%w: %v", auctionerrors.ErrDepositRequired, err)
	}

	hold = domain.DepositHold{
		AuctionID:   auction.AuctionID,
		BidderID:    bidderID,
		Amount:      auction.DepositAmount,
		State:       domain.DepositHeld,
		ProviderRef: ref,
	}
	if err := l.DB.WithContext(ctx).Create(&hold).Error; err != nil {
		// Undo the provider hold; a dangling reservation would never be freed.
		if relErr := l.Provider.Release(ctx, ref); relErr != nil {
			log.Error().Err(relErr).Str("provider_ref", ref).Msg("Failed to release orphaned provider hold")
		}
		// A concurrent Ensure may have beaten us to the unique index on
		// (auction, bidder, active state); the bidder then already has exactly
		// one active hold, so hand that one back.
		if existing, readErr := l.ActiveHold(ctx, auction.AuctionID, bidderID); readErr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}
	return &hold, nil
}

// Capture settles a hold in the winner's favour. No-op when already captured.
func (l *DepositLedger) Capture(ctx context.Context, holdID uuid.UUID) error {
	var hold domain.DepositHold
	if err := l.DB.WithContext(ctx).Where("hold_id = ?", holdID).First(&hold).Error; err != nil {
		return err
	}
	switch hold.State {
	case domain.DepositCaptured:
		return nil
	case domain.DepositReleased:
		return fmt.Errorf("deposit hold %s already released", holdID)
	}
	if err := l.Provider.Capture(ctx, hold.ProviderRef); err != nil {
		return err
	}
	return l.DB.WithContext(ctx).Model(&hold).Update("state", domain.DepositCaptured).Error
}

// Release frees a hold back to the bidder. No-op when already released or
// captured (a captured hold belongs to the seller and must not be refunded).
func (l *DepositLedger) Release(ctx context.Context, holdID uuid.UUID) error {
	var hold domain.DepositHold
	if err := l.DB.WithContext(ctx).Where("hold_id = ?", holdID).First(&hold).Error; err != nil {
		return err
	}
	if hold.State != domain.DepositHeld {
		return nil
	}
	if err := l.Provider.Release(ctx, hold.ProviderRef); err != nil {
		return err
	}
	return l.DB.WithContext(ctx).Model(&hold).Update("state", domain.DepositReleased).Error
}

// SettleWon captures the winner's hold and releases everyone else's.
// Idempotent: retried closes skip holds that already reached a terminal state.
func (l *DepositLedger) SettleWon(ctx context.Context, auctionID, winnerID uuid.UUID) error {
	holds, err := l.activeHolds(ctx, auctionID)
	if err != nil {
		return err
	}
	for i := range holds {
		h := &holds[i]
		if h.BidderID == winnerID {
			if err := l.Capture(ctx, h.HoldID); err != nil {
				return err
			}
			continue
		}
		if err := l.Release(ctx, h.HoldID); err != nil {
			return err
		}
	}
	return nil
}

// ReleaseAll releases every held deposit for the auction (unsold, reserve not
// met, or cancellation).
func (l *DepositLedger) ReleaseAll(ctx context.Context, auctionID uuid.UUID) error {
	holds, err := l.activeHolds(ctx, auctionID)
	if err != nil {
		return err
	}
	for i := range holds {
		if err := l.Release(ctx, holds[i].HoldID); err != nil {
			return err
		}
	}
	return nil
}

// ActiveHold returns the bidder's held or captured hold, or nil.
func (l *DepositLedger) ActiveHold(ctx context.Context, auctionID, bidderID uuid.UUID) (*domain.DepositHold, error) {
	var hold domain.DepositHold
	err := l.DB.WithContext(ctx).
		Where("auction_id = ? AND bidder_id = ? AND state IN ?", auctionID, bidderID, []string{domain.DepositHeld, domain.DepositCaptured}).
		First(&hold).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &hold, nil
}

func (l *DepositLedger) activeHolds(ctx context.Context, auctionID uuid.UUID) ([]domain.DepositHold, error) {
	var holds []domain.DepositHold
	err := l.DB.WithContext(ctx).
		Where("auction_id = ? AND state = ?", auctionID, domain.DepositHeld).
		Find(&holds).Error
	return holds, err
}
