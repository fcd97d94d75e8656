package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User backs session login. Roles are defined in pkg/constants.
type User struct {
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	Fullname     string    `gorm:"column:fullname;not null" json:"fullname"`
	Email        string    `gorm:"column:email;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;not null" json:"-"`
	Role         string    `gorm:"column:role;type:varchar(20);not null" json:"role"`
	Phone        string    `gorm:"column:phone" json:"phone"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "Users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UserID == uuid.Nil {
		u.UserID = uuid.New()
	}
	return nil
}
