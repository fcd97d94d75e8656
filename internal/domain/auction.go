package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Auction statuses. Terminal statuses never transition further.
const (
	AuctionScheduled          = "scheduled"
	AuctionActive             = "active"
	AuctionEndedSold          = "ended_sold"
	AuctionEndedUnsold        = "ended_unsold"
	AuctionEndedReserveNotMet = "ended_reserve_not_met"
	AuctionCancelled          = "cancelled"
)

// Auction is a timed listing with proxy anti-sniping, optional reserve and
// buy-now prices, and optional refundable bidder deposits. CurrentPrice and
// HighestBidderID are derived from the bid ledger and only ever updated in the
// same transaction as a ledger append, guarded by Version.
type Auction struct {
	AuctionID   uuid.UUID `gorm:"column:auction_id;type:uuid;primaryKey" json:"auction_id"`
	SellerID    uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index" json:"seller_id"`
	Title       string    `gorm:"column:title;not null" json:"title"`
	Description string    `gorm:"column:description" json:"description"`

	StartPrice   decimal.Decimal     `gorm:"column:start_price;type:decimal(18,3);not null" json:"start_price"`
	MinIncrement decimal.Decimal     `gorm:"column:min_increment;type:decimal(18,3);not null" json:"min_increment"`
	ReservePrice decimal.NullDecimal `gorm:"column:reserve_price;type:decimal(18,3)" json:"reserve_price"`
	BuyNowPrice  decimal.NullDecimal `gorm:"column:buy_now_price;type:decimal(18,3)" json:"buy_now_price"`

	StartsAt time.Time `gorm:"column:starts_at;not null" json:"starts_at"`
	EndsAt   time.Time `gorm:"column:ends_at;not null;index" json:"ends_at"`
	Status   string    `gorm:"column:status;type:varchar(25);default:'scheduled';index" json:"status"`

	AntiSniping          bool `gorm:"column:anti_sniping;default:false" json:"anti_sniping"`
	ExtendByMinutes      int  `gorm:"column:extend_by_minutes;default:0" json:"extend_by_minutes"`
	TriggerWindowMinutes int  `gorm:"column:trigger_window_minutes;default:0" json:"trigger_window_minutes"`
	ExtensionCount       int  `gorm:"column:extension_count;default:0" json:"extension_count"`

	RequireDeposit bool            `gorm:"column:require_deposit;default:false" json:"require_deposit"`
	DepositAmount  decimal.Decimal `gorm:"column:deposit_amount;type:decimal(18,3);default:0" json:"deposit_amount"`

	CurrentPrice    decimal.Decimal `gorm:"column:current_price;type:decimal(18,3);not null" json:"current_price"`
	HighestBidderID *uuid.UUID      `gorm:"column:highest_bidder_id;type:uuid" json:"highest_bidder_id"`
	BidCount        int             `gorm:"column:bid_count;default:0" json:"bid_count"`

	// Version is the optimistic-concurrency counter: every state-changing
	// write must carry a WHERE version = ? guard and bump it.
	Version int64 `gorm:"column:version;default:0" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Auction) TableName() string {
	return "Auctions"
}

// BeforeCreate sets auction_id if not already set (DBs without default uuid).
func (a *Auction) BeforeCreate(tx *gorm.DB) error {
	if a.AuctionID == uuid.Nil {
		a.AuctionID = uuid.New()
	}
	return nil
}

// IsTerminal reports whether the auction reached a final status.
func (a *Auction) IsTerminal() bool {
	switch a.Status {
	case AuctionEndedSold, AuctionEndedUnsold, AuctionEndedReserveNotMet, AuctionCancelled:
		return true
	}
	return false
}

// MinAcceptableBid is the smallest amount a new bid must reach: the start
// price when the ledger is empty, current price plus the increment otherwise.
func (a *Auction) MinAcceptableBid() decimal.Decimal {
	if a.BidCount == 0 {
		return a.StartPrice
	}
	return a.CurrentPrice.Add(a.MinIncrement)
}
