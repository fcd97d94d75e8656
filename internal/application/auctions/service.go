package auctions

import (
	"context"
	"errors"
	"time"

	"hodhod-backend/internal/application/emails"
	"hodhod-backend/internal/application/events"
	"hodhod-backend/internal/application/ledger"
	"hodhod-backend/internal/domain"
	"hodhod-backend/internal/pkg/auctionerrors"
	"hodhod-backend/internal/pkg/clock"
	"hodhod-backend/internal/pkg/constants"
	"hodhod-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service is the auction state machine: the single authority for admitting
// bids and transitioning auction status.
//
// Serialization model: every state-changing write carries a
// WHERE version = ? guard and bumps the version. A concurrent writer makes
// the guard miss (RowsAffected == 0), which surfaces as ErrConcurrencyConflict
// and is retried from a fresh read, so the losing bidder is re-validated
// against the winner's new price and gets BidTooLow instead of a silently
// out-of-order admission. Deposit provider calls happen before the guarded
// write, never under it.
type Service struct {
	DB       *gorm.DB
	Bids     *ledger.BidLedger
	Deposits *ledger.DepositLedger
	Events   *events.Publisher
	Clock    clock.Clock

	// Mailer, when set, emails bidders on outbid and win. Best effort only.
	Mailer emails.Sender

	// MaxExtensions caps cumulative anti-sniping extensions per auction so a
	// bid war inside the trigger window cannot keep an auction open forever.
	MaxExtensions int
	// RetryLimit bounds internal retries on version conflicts.
	RetryLimit int
}

// CreateAuctionInput carries seller-supplied auction parameters.
type CreateAuctionInput struct {
	Title       string
	Description string
	Params      validation.AuctionParams
}

// Create validates and persists a new auction in scheduled status.
func (s *Service) Create(ctx context.Context, sellerID uuid.UUID, in CreateAuctionInput) (*domain.Auction, error) {
	if sellerID == uuid.Nil {
		return nil, validation.NewError("seller is required")
	}
	if in.Title == "" {
		return nil, validation.NewError("title is required")
	}
	if err := validation.ValidateAuctionParams(in.Params, s.Clock.Now()); err != nil {
		return nil, err
	}

	auction := &domain.Auction{
		SellerID:             sellerID,
		Title:                in.Title,
		Description:          in.Description,
		StartPrice:           in.Params.StartPrice,
		MinIncrement:         in.Params.MinIncrement,
		ReservePrice:         in.Params.ReservePrice,
		BuyNowPrice:          in.Params.BuyNowPrice,
		StartsAt:             in.Params.StartsAt.UTC(),
		EndsAt:               in.Params.EndsAt.UTC(),
		Status:               domain.AuctionScheduled,
		AntiSniping:          in.Params.AntiSniping,
		ExtendByMinutes:      in.Params.ExtendByMinutes,
		TriggerWindowMinutes: in.Params.TriggerWindowMinutes,
		RequireDeposit:       in.Params.RequireDeposit,
		DepositAmount:        in.Params.DepositAmount,
		CurrentPrice:         in.Params.StartPrice,
	}
	if err := s.DB.WithContext(ctx).Create(auction).Error; err != nil {
		return nil, err
	}
	s.Events.AuctionCreated(ctx, auction)
	return auction, nil
}

// PlaceBid admits a bid or rejects it with one of the taxonomy errors.
// Version conflicts are retried internally up to RetryLimit; callers only see
// ErrConcurrencyConflict when the auction is pathologically contended.
func (s *Service) PlaceBid(ctx context.Context, auctionID, bidderID uuid.UUID, amount decimal.Decimal, isBuyNow bool) (*domain.Bid, error) {
	if bidderID == uuid.Nil {
		return nil, validation.NewError("bidder is required")
	}
	retries := s.RetryLimit
	if retries <= 0 {
		retries = 5
	}
	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		bid, err := s.tryPlaceBid(ctx, auctionID, bidderID, amount, isBuyNow)
		if errors.Is(err, auctionerrors.ErrConcurrencyConflict) {
			lastErr = err
			continue
		}
		return bid, err
	}
	return nil, lastErr
}

func (s *Service) tryPlaceBid(ctx context.Context, auctionID, bidderID uuid.UUID, amount decimal.Decimal, isBuyNow bool) (*domain.Bid, error) {
	auction, err := s.load(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	now := s.Clock.Now()

	if auction.Status != domain.AuctionActive || !now.Before(auction.EndsAt) {
		return nil, auctionerrors.ErrAuctionClosed
	}
	if bidderID == auction.SellerID {
		return nil, auctionerrors.ErrSelfBid
	}
	if amount.LessThan(auction.MinAcceptableBid()) {
		return nil, &auctionerrors.BidTooLowError{MinAcceptable: auction.MinAcceptableBid()}
	}

	// Deposit hold happens before the serialization point: the provider call
	// may be slow or fail, and a hold that outlives a rejected bid is simply
	// released at settlement.
	if auction.RequireDeposit {
		if _, err := s.Deposits.Ensure(ctx, auction, bidderID); err != nil {
			return nil, err
		}
	}

	buyNowHit := auction.BuyNowPrice.Valid && !amount.LessThan(auction.BuyNowPrice.Decimal)
	if isBuyNow && !buyNowHit {
		if !auction.BuyNowPrice.Valid {
			return nil, validation.NewError("Auction has no buy-now price")
		}
		return nil, &auctionerrors.BidTooLowError{MinAcceptable: auction.BuyNowPrice.Decimal}
	}

	extended := false
	newEndsAt := auction.EndsAt
	if auction.AntiSniping && !buyNowHit &&
		auction.EndsAt.Sub(now) <= time.Duration(auction.TriggerWindowMinutes)*time.Minute &&
		auction.ExtensionCount < s.maxExtensions() {
		candidate := now.Add(time.Duration(auction.ExtendByMinutes) * time.Minute)
		if candidate.After(auction.EndsAt) { // never shorten the deadline
			newEndsAt = candidate
			extended = true
		}
	}

	bid := &domain.Bid{
		AuctionID: auction.AuctionID,
		BidderID:  bidderID,
		Amount:    amount,
		PlacedAt:  now,
		IsBuyNow:  buyNowHit,
	}

	updates := map[string]interface{}{
		"current_price":     amount,
		"highest_bidder_id": bidderID,
		"bid_count":         auction.BidCount + 1,
		"version":           auction.Version + 1,
	}
	if extended {
		updates["ends_at"] = newEndsAt
		updates["extension_count"] = auction.ExtensionCount + 1
	}
	if buyNowHit {
		updates["status"] = domain.AuctionEndedSold
		updates["ends_at"] = now
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Auction{}).
			Where("auction_id = ? AND version = ? AND status = ?", auction.AuctionID, auction.Version, domain.AuctionActive).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return auctionerrors.ErrConcurrencyConflict
		}
		return s.Bids.Append(tx, auction, bid)
	})
	if err != nil {
		return nil, err
	}

	s.Events.BidPlaced(ctx, bid, amount)
	if extended {
		s.Events.AuctionExtended(ctx, auction.AuctionID, newEndsAt, auction.ExtensionCount+1)
	}
	if prev := auction.HighestBidderID; prev != nil && *prev != bidderID && !buyNowHit {
		s.mailOutbid(ctx, auction, *prev, amount.Add(auction.MinIncrement))
	}
	if buyNowHit {
		if auction.RequireDeposit {
			if err := s.Deposits.SettleWon(ctx, auction.AuctionID, bidderID); err != nil {
				// The auction is sold regardless; settlement is retried by the
				// sweeper through the idempotent Close path.
				log.Error().Err(err).Str("auction_id", auction.AuctionID.String()).Msg("Deposit settlement failed after buy-now")
			}
		}
		winner := bidderID
		s.Events.AuctionEnded(ctx, auction.AuctionID, domain.AuctionEndedSold, &winner, amount)
		s.mailWon(ctx, auction, bidderID, amount)
	}
	return bid, nil
}

// Close finalizes an auction whose deadline has passed. Idempotent: closing
// an already-terminal auction re-runs deposit settlement (itself idempotent)
// and reports success, because scheduler retries are expected.
func (s *Service) Close(ctx context.Context, auctionID uuid.UUID) error {
	retries := s.RetryLimit
	if retries <= 0 {
		retries = 5
	}
	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		err := s.tryClose(ctx, auctionID)
		if errors.Is(err, auctionerrors.ErrConcurrencyConflict) {
			lastErr = err
			continue
		}
		return err
	}
	return lastErr
}

func (s *Service) tryClose(ctx context.Context, auctionID uuid.UUID) error {
	auction, err := s.load(ctx, auctionID)
	if err != nil {
		return err
	}
	now := s.Clock.Now()

	if auction.IsTerminal() {
		return s.settleDeposits(ctx, auction)
	}
	if now.Before(auction.EndsAt) {
		return auctionerrors.ErrAuctionNotEnded
	}

	status := domain.AuctionEndedUnsold
	switch {
	case auction.BidCount == 0:
		status = domain.AuctionEndedUnsold
	case auction.ReservePrice.Valid && auction.CurrentPrice.LessThan(auction.ReservePrice.Decimal):
		status = domain.AuctionEndedReserveNotMet
	default:
		status = domain.AuctionEndedSold
	}

	res := s.DB.WithContext(ctx).Model(&domain.Auction{}).
		Where("auction_id = ? AND version = ?", auction.AuctionID, auction.Version).
		Updates(map[string]interface{}{
			"status":  status,
			"version": auction.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return auctionerrors.ErrConcurrencyConflict
	}

	auction.Status = status
	if err := s.settleDeposits(ctx, auction); err != nil {
		return err
	}

	var winner *uuid.UUID
	if status == domain.AuctionEndedSold {
		winner = auction.HighestBidderID
	}
	s.Events.AuctionEnded(ctx, auction.AuctionID, status, winner, auction.CurrentPrice)
	if winner != nil {
		s.mailWon(ctx, auction, *winner, auction.CurrentPrice)
	}
	return nil
}

func (s *Service) mailOutbid(ctx context.Context, auction *domain.Auction, to uuid.UUID, minAcceptable decimal.Decimal) {
	if s.Mailer == nil {
		return
	}
	var u domain.User
	if err := s.DB.WithContext(ctx).Where("user_id = ?", to).First(&u).Error; err != nil {
		return
	}
	if err := s.Mailer.SendOutbid(ctx, u.Email, u.Fullname, auction.Title, minAcceptable.StringFixed(3)); err != nil {
		log.Warn().Err(err).Str("auction_id", auction.AuctionID.String()).Msg("Outbid email failed")
	}
}

func (s *Service) mailWon(ctx context.Context, auction *domain.Auction, winner uuid.UUID, price decimal.Decimal) {
	if s.Mailer == nil {
		return
	}
	var u domain.User
	if err := s.DB.WithContext(ctx).Where("user_id = ?", winner).First(&u).Error; err != nil {
		return
	}
	if err := s.Mailer.SendAuctionWon(ctx, u.Email, u.Fullname, auction.Title, price.StringFixed(3)); err != nil {
		log.Warn().Err(err).Str("auction_id", auction.AuctionID.String()).Msg("Winner email failed")
	}
}

func (s *Service) settleDeposits(ctx context.Context, auction *domain.Auction) error {
	if !auction.RequireDeposit {
		return nil
	}
	if auction.Status == domain.AuctionEndedSold && auction.HighestBidderID != nil {
		return s.Deposits.SettleWon(ctx, auction.AuctionID, *auction.HighestBidderID)
	}
	// Unsold, reserve not met, or cancelled: every hold goes back. The
	// reserve-not-met leader explicitly gets a release, not a capture.
	return s.Deposits.ReleaseAll(ctx, auction.AuctionID)
}

// Cancel marks an auction cancelled. Only the seller (or an admin) may
// cancel, only while scheduled or active, and only before any bid exists.
func (s *Service) Cancel(ctx context.Context, auctionID, byID uuid.UUID, role string) error {
	auction, err := s.load(ctx, auctionID)
	if err != nil {
		return err
	}
	if byID != auction.SellerID && role != constants.Admin {
		return auctionerrors.ErrNotSeller
	}
	if auction.Status != domain.AuctionScheduled && auction.Status != domain.AuctionActive {
		return auctionerrors.ErrCancellationNotAllowed
	}
	if auction.BidCount > 0 {
		return auctionerrors.ErrCancellationNotAllowed
	}

	res := s.DB.WithContext(ctx).Model(&domain.Auction{}).
		Where("auction_id = ? AND version = ? AND bid_count = 0", auction.AuctionID, auction.Version).
		Updates(map[string]interface{}{
			"status":  domain.AuctionCancelled,
			"version": auction.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// A bid slipped in concurrently; cancellation no longer allowed.
		return auctionerrors.ErrCancellationNotAllowed
	}

	// No admitted bids means at most stray holds from rejected bidders.
	if auction.RequireDeposit {
		if err := s.Deposits.ReleaseAll(ctx, auction.AuctionID); err != nil {
			log.Error().Err(err).Str("auction_id", auction.AuctionID.String()).Msg("Deposit release failed after cancellation")
		}
	}
	s.Events.AuctionCancelled(ctx, auction.AuctionID, byID)
	return nil
}

// ActivateDue flips scheduled auctions whose start time has passed to active.
// Called by the sweeper; user actions never drive this transition.
func (s *Service) ActivateDue(ctx context.Context) error {
	now := s.Clock.Now()
	var due []domain.Auction
	if err := s.DB.WithContext(ctx).
		Where("status = ? AND starts_at <= ?", domain.AuctionScheduled, now).
		Find(&due).Error; err != nil {
		return err
	}
	for i := range due {
		a := &due[i]
		res := s.DB.WithContext(ctx).Model(&domain.Auction{}).
			Where("auction_id = ? AND version = ? AND status = ?", a.AuctionID, a.Version, domain.AuctionScheduled).
			Updates(map[string]interface{}{
				"status":  domain.AuctionActive,
				"version": a.Version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			continue // cancelled or activated concurrently
		}
		s.Events.AuctionActivated(ctx, a.AuctionID)
	}
	return nil
}

// CloseDue closes every active auction past its deadline. Failures are logged
// per auction and do not stop the sweep; the next tick retries through the
// idempotent Close.
func (s *Service) CloseDue(ctx context.Context) error {
	now := s.Clock.Now()
	var due []domain.Auction
	if err := s.DB.WithContext(ctx).
		Where("status = ? AND ends_at <= ?", domain.AuctionActive, now).
		Find(&due).Error; err != nil {
		return err
	}
	for i := range due {
		if err := s.Close(ctx, due[i].AuctionID); err != nil {
			log.Error().Err(err).Str("auction_id", due[i].AuctionID.String()).Msg("Failed to close due auction")
		}
	}
	return nil
}

// Get returns the auction row or ErrAuctionNotFound.
func (s *Service) Get(ctx context.Context, auctionID uuid.UUID) (*domain.Auction, error) {
	return s.load(ctx, auctionID)
}

func (s *Service) load(ctx context.Context, auctionID uuid.UUID) (*domain.Auction, error) {
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

func (s *Service) maxExtensions() int {
	if s.MaxExtensions <= 0 {
		return 12
	}
	return s.MaxExtensions
}
