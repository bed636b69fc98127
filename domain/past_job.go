package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	PastJobTypeJob       = "PastJob"
	PastJobTypeVolunteer = "Volunteer"
)

// PastJob is a position the user held. Volunteer work is stored as a
// PastJob with Type Volunteer.
type PastJob struct {
	Base
	UserID               string          `gorm:"size:36;index;not null" json:"user_id"`
	Type                 string          `gorm:"size:16;index;default:'PastJob'" json:"type"`
	Title                string          `gorm:"size:255;not null" json:"title"`
	Organization         string          `gorm:"size:255" json:"organization"`
	OrganizationAddress  string          `gorm:"size:512" json:"organization_address"`
	StartDate            *time.Time      `json:"start_date"`
	EndDate              *time.Time      `json:"end_date"`
	Hours                int             `json:"hours"`
	GSLevel              string          `gorm:"size:16" json:"gs_level"`
	SupervisorName       string          `gorm:"size:255" json:"supervisor_name"`
	SupervisorPhone      string          `gorm:"size:64" json:"supervisor_phone"`
	MayContactSupervisor bool            `json:"may_contact_supervisor"`
	Responsibilities     string          `gorm:"type:text" json:"responsibilities"`
	Qualifications       []Qualification `gorm:"foreignKey:PastJobID;constraint:OnDelete:CASCADE" json:"qualifications,omitempty"`
}

func (p *PastJob) OwnerID() string        { return p.UserID }
func (p *PastJob) SetOwner(userID string) { p.UserID = userID }

func (p *PastJob) IsValid() error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if p.Type != PastJobTypeJob && p.Type != PastJobTypeVolunteer {
		return fmt.Errorf("%w: unknown past job type %q", ErrInvalidInput, p.Type)
	}
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return fmt.Errorf("%w: end date is before start date", ErrInvalidInput)
	}
	return nil
}

// Qualification is evidence from one PastJob for one application Topic.
type Qualification struct {
	Base
	PastJobID     string `gorm:"size:36;index;not null" json:"past_job_id"`
	TopicID       string `gorm:"size:36;index" json:"topic_id"`
	ApplicationID string `gorm:"size:36;index" json:"application_id"`
	Title         string `gorm:"size:255" json:"title"`
	Description   string `gorm:"type:text" json:"description"`
	Paragraph     string `gorm:"type:text" json:"paragraph"`
	UserConfirmed bool   `json:"user_confirmed"`
}
