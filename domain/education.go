package domain

import (
	"fmt"
	"strings"
)

const (
	EducationTypeEducation     = "Education"
	EducationTypeCertification = "Certification"
)

type Education struct {
	Base
	UserID      string  `gorm:"size:36;index;not null" json:"user_id"`
	Type        string  `gorm:"size:16;default:'Education'" json:"type"`
	School      string  `gorm:"size:255;not null" json:"school"`
	SchoolCity  string  `gorm:"size:255" json:"school_city"`
	Degree      string  `gorm:"size:255" json:"degree"`
	Major       string  `gorm:"size:255" json:"major"`
	Minor       string  `gorm:"size:255" json:"minor"`
	GPA         float64 `json:"gpa"`
	DateAwarded string  `gorm:"size:32" json:"date_awarded"`
	Credits     int     `json:"credits"`
}

func (e *Education) OwnerID() string        { return e.UserID }
func (e *Education) SetOwner(userID string) { e.UserID = userID }

func (e *Education) IsValid() error {
	if strings.TrimSpace(e.School) == "" {
		return fmt.Errorf("%w: school is required", ErrInvalidInput)
	}
	if e.Type == "" {
		e.Type = EducationTypeEducation
	}
	if e.Type != EducationTypeEducation && e.Type != EducationTypeCertification {
		return fmt.Errorf("%w: unknown education type %q", ErrInvalidInput, e.Type)
	}
	if e.GPA < 0 || e.GPA > 5 {
		return fmt.Errorf("%w: gpa out of range", ErrInvalidInput)
	}
	return nil
}
