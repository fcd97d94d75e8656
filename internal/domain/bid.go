package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Bid is an admitted, immutable ledger entry. PlacedAt is server-assigned and
// monotonic per auction; the ledger is append-only.
type Bid struct {
	BidID     uuid.UUID       `gorm:"column:bid_id;type:uuid;primaryKey" json:"bid_id"`
	AuctionID uuid.UUID       `gorm:"column:auction_id;type:uuid;not null;index" json:"auction_id"`
	BidderID  uuid.UUID       `gorm:"column:bidder_id;type:uuid;not null;index" json:"bidder_id"`
	Amount    decimal.Decimal `gorm:"column:amount;type:decimal(18,3);not null" json:"amount"`
	PlacedAt  time.Time       `gorm:"column:placed_at;not null;index" json:"placed_at"`
	IsBuyNow  bool            `gorm:"column:is_buy_now;default:false" json:"is_buy_now"`

	CreatedAt time.Time `json:"createdAt"`
}

func (Bid) TableName() string {
	return "Bids"
}

func (b *Bid) BeforeCreate(tx *gorm.DB) error {
	if b.BidID == uuid.Nil {
		b.BidID = uuid.New()
	}
	return nil
}
