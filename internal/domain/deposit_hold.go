package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DepositHold states. Held is the only non-terminal state; capture and
// release are terminal and idempotent.
const (
	DepositHeld     = "held"
	DepositReleased = "released"
	DepositCaptured = "captured"
)

// DepositHold is a refundable reservation of bidder funds against one
// auction. At most one active (held or captured) hold exists per
// (auction, bidder); the partial unique index is the backstop for
// concurrent Ensure calls racing past the existence check.
type DepositHold struct {
	HoldID    uuid.UUID       `gorm:"column:hold_id;type:uuid;primaryKey" json:"hold_id"`
	AuctionID uuid.UUID       `gorm:"column:auction_id;type:uuid;not null;index:idx_deposit_auction_bidder_active,unique,where:state <> 'released'" json:"auction_id"`
	BidderID  uuid.UUID       `gorm:"column:bidder_id;type:uuid;not null;index:idx_deposit_auction_bidder_active,unique,where:state <> 'released'" json:"bidder_id"`
	Amount    decimal.Decimal `gorm:"column:amount;type:decimal(18,3);not null" json:"amount"`
	State     string          `gorm:"column:state;type:varchar(10);default:'held'" json:"state"`

	// ProviderRef is the payment provider's reference for the hold, needed
	// for capture/release calls.
	ProviderRef string `gorm:"column:provider_ref;not null" json:"provider_ref"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (DepositHold) TableName() string {
	return "DepositHolds"
}

func (d *DepositHold) BeforeCreate(tx *gorm.DB) error {
	if d.HoldID == uuid.Nil {
		d.HoldID = uuid.New()
	}
	return nil
}
