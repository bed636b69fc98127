package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base is embedded by every persisted record.
type Base struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a uuid when the caller didn't set one.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// Record exposes the embedded Base so generic code can protect it.
func (b *Base) Record() *Base { return b }

// Owned is implemented by records that belong to a single user.
type Owned interface {
	OwnerID() string
	SetOwner(userID string)
	IsValid() error
	Record() *Base
}
