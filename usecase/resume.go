package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"gorm.io/gorm"

	"govres/domain"
)

// ResumeData is everything rendered into a federal resume.
type ResumeData struct {
	User       domain.User
	Job        *domain.Job
	PastJobs   []domain.PastJob
	Volunteers []domain.PastJob
	Education  []domain.Education
	Awards     []domain.Award
}

var resumeTemplate = template.Must(template.New("resume").Funcs(template.FuncMap{
	"date":  formatMonth,
	"upper": strings.ToUpper,
}).Parse(`{{ upper .User.Name }}
{{ .User.Email }}{{ if .User.Phone }} | {{ .User.Phone }}{{ end }}
{{- if .User.Citizenship }}
Citizenship: {{ .User.Citizenship }}
{{- end }}
{{- if .User.VeteranStatus }}
Veterans' preference: {{ .User.VeteranStatus }}
{{- end }}
{{- if .User.FederalEmployee }}
Current federal employee{{ if .User.GradeLevel }}, {{ .User.GradeLevel }}{{ end }}
{{- end }}
{{ if .Job }}
TARGET POSITION
{{ .Job.Title }}{{ if .Job.ControlNumber }} ({{ .Job.ControlNumber }}){{ end }}
{{ .Job.Agency }}
{{ end }}
WORK EXPERIENCE
{{ range .PastJobs }}
{{ .Title }}{{ if .GSLevel }}, {{ .GSLevel }}{{ end }}
{{ .Organization }}{{ if .OrganizationAddress }}, {{ .OrganizationAddress }}{{ end }}
{{ date .StartDate }} - {{ date .EndDate }}{{ if .Hours }} | {{ .Hours }} hours per week{{ end }}
{{- if .SupervisorName }}
Supervisor: {{ .SupervisorName }}{{ if .SupervisorPhone }}, {{ .SupervisorPhone }}{{ end }} (may contact: {{ if .MayContactSupervisor }}yes{{ else }}no{{ end }})
{{- end }}
{{- range .Qualifications }}

{{ .Title }}: {{ .Paragraph }}
{{- end }}
{{ end }}
{{- if .Education }}
EDUCATION
{{ range .Education }}
{{ .School }}{{ if .SchoolCity }}, {{ .SchoolCity }}{{ end }}
{{ .Degree }}{{ if .Major }} in {{ .Major }}{{ end }}{{ if .Minor }}, minor in {{ .Minor }}{{ end }}{{ if .DateAwarded }} ({{ .DateAwarded }}){{ end }}
{{- if .GPA }}
GPA: {{ printf "%.2f" .GPA }}
{{- end }}
{{- if .Credits }}
Credits: {{ .Credits }}
{{- end }}
{{ end }}
{{- end }}
{{- if .Awards }}
AWARDS
{{ range .Awards }}- {{ .Title }}{{ if .Date }} ({{ .Date }}){{ end }}
{{ end }}
{{- end }}
{{- if .Volunteers }}
VOLUNTEER EXPERIENCE
{{ range .Volunteers }}
{{ .Title }}, {{ .Organization }}
{{ date .StartDate }} - {{ date .EndDate }}{{ if .Hours }} | {{ .Hours }} hours per week{{ end }}
{{ .Responsibilities }}
{{ end }}
{{- end }}`))

func formatMonth(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "Present"
	}
	return t.Format("01/2006")
}

// BuildResume renders the plain-text resume for an application and
// completes the final wizard step. Only confirmed qualifications with a
// paragraph are included.
func (a *Ally) BuildResume(ctx context.Context, userID, appID string) (string, error) {
	app, err := a.GetApplication(ctx, userID, appID)
	if err != nil {
		return "", err
	}
	data, err := a.resumeData(ctx, userID, app)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if err := resumeTemplate.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render resume: %w", err)
	}

	if err := domain.CompleteStep(app.Steps, domain.StepReturnResume); err != nil {
		return "", err
	}
	if err := saveSteps(a.db.WithContext(ctx), app); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (a *Ally) resumeData(ctx context.Context, userID string, app *domain.Application) (ResumeData, error) {
	db := a.db.WithContext(ctx)
	data := ResumeData{Job: app.Job}

	err := db.Where("id = ?", userID).First(&data.User).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return data, err
	}

	err = db.Where("user_id = ? AND type = ?", userID, domain.PastJobTypeJob).
		Preload("Qualifications", func(q *gorm.DB) *gorm.DB {
			return q.Where("application_id = ? AND user_confirmed = ? AND paragraph <> ''", app.ID, true).Order("created_at")
		}).
		Order("start_date DESC").
		Find(&data.PastJobs).Error
	if err != nil {
		return data, err
	}
	if err := db.Where("user_id = ? AND type = ?", userID, domain.PastJobTypeVolunteer).Order("start_date DESC").Find(&data.Volunteers).Error; err != nil {
		return data, err
	}
	if err := db.Where("user_id = ?", userID).Order("created_at").Find(&data.Education).Error; err != nil {
		return data, err
	}
	if err := db.Where("user_id = ?", userID).Order("created_at").Find(&data.Awards).Error; err != nil {
		return data, err
	}
	return data, nil
}
