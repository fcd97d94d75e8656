package auctionerrors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Lookup / lifecycle errors
var (
	ErrAuctionNotFound = errors.New("Auction not found")
	ErrAuctionClosed   = errors.New("Auction is not accepting bids")
)

// Bid admission errors
var (
	ErrSelfBid         = errors.New("Sellers cannot bid on their own auction")
	ErrDepositRequired = errors.New("A deposit hold is required to bid on this auction")
)

// Cancellation / settlement errors
var (
	ErrCancellationNotAllowed = errors.New("Auction cannot be cancelled")
	ErrNotSeller              = errors.New("Only the seller can perform this action")
	ErrAuctionNotEnded        = errors.New("Auction has not reached its end time")
)

// ErrConcurrencyConflict is transient: the auction row changed between read
// and write. The state machine retries internally; callers should never see it
// under normal load.
var ErrConcurrencyConflict = errors.New("auction was modified concurrently")

// BidTooLowError carries the authoritative minimum acceptable amount so the
// caller can immediately re-offer a valid bid.
type BidTooLowError struct {
	MinAcceptable decimal.Decimal
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("Bid too low: minimum acceptable bid is %s", e.MinAcceptable.StringFixed(3))
}

// AsBidTooLow returns the typed error if err is (or wraps) a BidTooLowError.
func AsBidTooLow(err error) (*BidTooLowError, bool) {
	var btl *BidTooLowError
	if errors.As(err, &btl) {
		return btl, true
	}
	return nil, false
}
