package domain

import (
	"fmt"
	"time"
)

// Job is a federal posting saved from USAJobs. ControlNumber is the
// USAJobs position id and identifies a posting across searches.
type Job struct {
	Base
	ControlNumber         string     `gorm:"size:64;uniqueIndex;not null" json:"control_number"`
	AnnouncementNumber    string     `gorm:"size:64" json:"announcement_number"`
	Title                 string     `gorm:"size:255;not null" json:"title"`
	Department            string     `gorm:"size:255" json:"department"`
	Agency                string     `gorm:"size:255" json:"agency"`
	Location              string     `gorm:"size:512" json:"location"`
	URL                   string     `gorm:"size:512" json:"url"`
	SalaryMin             float64    `json:"salary_min"`
	SalaryMax             float64    `json:"salary_max"`
	LowGrade              string     `gorm:"size:16" json:"low_grade"`
	HighGrade             string     `gorm:"size:16" json:"high_grade"`
	CloseDate             *time.Time `json:"close_date"`
	Duties                []string   `gorm:"serializer:json;type:text" json:"duties"`
	Evaluations           string     `gorm:"type:text" json:"evaluations"`
	QualificationsSummary string     `gorm:"type:text" json:"qualifications_summary"`
	Requirements          string     `gorm:"type:text" json:"requirements"`
}

func (j *Job) IsValid() error {
	if j.ControlNumber == "" || j.Title == "" {
		return fmt.Errorf("%w: job needs a control number and title", ErrInvalidInput)
	}
	return nil
}

// Description is the text handed to the LLM when extracting keywords.
func (j *Job) Description() string {
	text := "Title: " + j.Title + "\n"
	if j.Agency != "" {
		text += "Agency: " + j.Agency + "\n"
	}
	if len(j.Duties) > 0 {
		text += "Duties:\n"
		for _, d := range j.Duties {
			text += "- " + d + "\n"
		}
	}
	if j.QualificationsSummary != "" {
		text += "Qualifications:\n" + j.QualificationsSummary + "\n"
	}
	if j.Evaluations != "" {
		text += "Evaluations:\n" + j.Evaluations + "\n"
	}
	return text
}
