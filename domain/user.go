package domain

import (
	"fmt"
	"time"
)

// User mirrors an identity-provider account. ID is the provider subject,
// so it is assigned by the caller instead of generated.
type User struct {
	Base
	Email           string     `gorm:"size:255;index" json:"email"`
	Name            string     `gorm:"size:255" json:"name"`
	Phone           string     `gorm:"size:64" json:"phone"`
	Citizenship     string     `gorm:"size:64" json:"citizenship"`
	VeteranStatus   string     `gorm:"size:64" json:"veteran_status"`
	FederalEmployee bool       `json:"federal_employee"`
	GradeLevel      string     `gorm:"size:16" json:"grade_level"`
	IsAdmin         bool       `gorm:"default:false" json:"is_admin"`
	LastLoginAt     *time.Time `json:"last_login_at"`
}

func (u *User) IsValid() error {
	if u.ID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return nil
}
