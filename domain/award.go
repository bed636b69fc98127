package domain

import (
	"fmt"
	"strings"
)

type Award struct {
	Base
	UserID string `gorm:"size:36;index;not null" json:"user_id"`
	Title  string `gorm:"size:255;not null" json:"title"`
	Date   string `gorm:"size:32" json:"date"`
}

func (a *Award) OwnerID() string        { return a.UserID }
func (a *Award) SetOwner(userID string) { a.UserID = userID }

func (a *Award) IsValid() error {
	if strings.TrimSpace(a.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	return nil
}
