package domain

import "fmt"

const (
	ApplicationStatusDraft    = "draft"
	ApplicationStatusComplete = "complete"
)

// Application ties a user to one selected Job and tracks wizard progress.
type Application struct {
	Base
	UserID   string   `gorm:"size:36;not null;uniqueIndex:idx_application_user_job" json:"user_id"`
	JobID    string   `gorm:"size:36;not null;uniqueIndex:idx_application_user_job" json:"job_id"`
	Job      *Job     `gorm:"foreignKey:JobID" json:"job,omitempty"`
	Keywords []string `gorm:"serializer:json;type:text" json:"keywords"`
	Steps    []Step   `gorm:"serializer:json;type:text" json:"steps"`
	Status   string   `gorm:"size:16;default:'draft'" json:"status"`
}

func (a *Application) OwnerID() string        { return a.UserID }
func (a *Application) SetOwner(userID string) { a.UserID = userID }

func (a *Application) IsValid() error {
	if a.UserID == "" {
		return fmt.Errorf("%w: application needs an owner", ErrInvalidInput)
	}
	if a.JobID == "" {
		return ErrNoJobSelected
	}
	return nil
}

// Topic groups job keywords into one qualification area of the posting.
type Topic struct {
	Base
	ApplicationID string   `gorm:"size:36;index;not null" json:"application_id"`
	Title         string   `gorm:"size:255;not null" json:"title"`
	Keywords      []string `gorm:"serializer:json;type:text" json:"keywords"`
	Description   string   `gorm:"type:text" json:"description"`
}
