package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Auction event types, persisted for audit and replayed to subscribers.
const (
	EventCreated     = "CREATED"
	EventActivated   = "ACTIVATED"
	EventBidPlaced   = "BID_PLACED"
	EventExtended    = "EXTENDED"
	EventEnded       = "ENDED"
	EventCancelled   = "CANCELLED"
	EventReminderDue = "REMINDER_DUE"
)

type AuctionEvent struct {
	EventID   uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	AuctionID uuid.UUID      `gorm:"column:auction_id;type:uuid;not null;index" json:"auction_id"`
	EventType string         `gorm:"column:event_type;type:varchar(30);not null" json:"event_type"`
	EventData datatypes.JSON `gorm:"column:event_data;type:jsonb;not null" json:"event_data"`
	ActorID   *uuid.UUID     `gorm:"column:actor_id;type:uuid" json:"actor_id"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (AuctionEvent) TableName() string {
	return "AuctionEvents"
}

func (e *AuctionEvent) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}
