package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"govres/domain"
	"govres/infrastructure"
)

// Ally drives the guided application wizard: pick a posting, pull its
// keywords and topics, match past jobs to topics and draft paragraphs.
type Ally struct {
	db   *gorm.DB
	llm  infrastructure.LLM
	jobs infrastructure.JobSearcher
	log  *slog.Logger
}

func NewAlly(db *gorm.DB, llm infrastructure.LLM, jobs infrastructure.JobSearcher, log *slog.Logger) *Ally {
	return &Ally{db: db, llm: llm, jobs: jobs, log: log}
}

// StepsView is the wizard state of one application.
type StepsView struct {
	Steps   []domain.Step `json:"steps"`
	Current domain.Step   `json:"current"`
	Done    bool          `json:"done"`
}

// ParagraphDraft is one turn of the paragraph conversation.
type ParagraphDraft struct {
	Message       string                `json:"message"`
	Paragraph     string                `json:"paragraph"`
	Complete      bool                  `json:"complete"`
	Qualification *domain.Qualification `json:"qualification"`
}

type keywordsReply struct {
	Keywords []string `json:"keywords" validate:"required,min=1,dive,required"`
}

type topicsReply struct {
	Topics []struct {
		Title       string   `json:"title" validate:"required"`
		Description string   `json:"description"`
		Keywords    []string `json:"keywords" validate:"required,min=1"`
	} `json:"topics" validate:"required,min=1,dive"`
}

type matchReply struct {
	Matches []struct {
		TopicID  string `json:"topic_id" validate:"required"`
		Evidence string `json:"evidence"`
	} `json:"matches" validate:"dive"`
}

type paragraphReply struct {
	Message   string `json:"message" validate:"required"`
	Paragraph string `json:"paragraph"`
	Complete  bool   `json:"complete"`
}

func (a *Ally) SearchJobs(ctx context.Context, params infrastructure.SearchParams) (infrastructure.SearchResult, error) {
	return a.jobs.Search(ctx, params)
}

// SelectJob saves the posting and returns the user's application for it.
// Both are created at most once no matter how often this is called.
func (a *Ally) SelectJob(ctx context.Context, userID, controlNumber string) (*domain.Application, error) {
	controlNumber = strings.TrimSpace(controlNumber)
	if controlNumber == "" {
		return nil, fmt.Errorf("%w: control number is required", domain.ErrInvalidInput)
	}
	posting, err := a.jobs.GetByControlNumber(ctx, controlNumber)
	if err != nil {
		return nil, err
	}
	if err := posting.IsValid(); err != nil {
		return nil, err
	}

	var app domain.Application
	err = a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		job, err := upsertJob(tx, posting)
		if err != nil {
			return err
		}

		err = tx.Where("user_id = ? AND job_id = ?", userID, job.ID).First(&app).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			app = domain.Application{
				UserID: userID,
				JobID:  job.ID,
				Steps:  domain.DefaultSteps(),
				Status: domain.ApplicationStatusDraft,
			}
		case err != nil:
			return err
		}
		if len(app.Steps) == 0 {
			app.Steps = domain.DefaultSteps()
		}
		if err := domain.CompleteStep(app.Steps, domain.StepUSAJobs); err != nil {
			return err
		}
		if err := app.IsValid(); err != nil {
			return err
		}
		if err := tx.Save(&app).Error; err != nil {
			return err
		}
		app.Job = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.log.Info("Job selected", "user_id", userID, "application_id", app.ID, "control_number", controlNumber)
	return &app, nil
}

func upsertJob(tx *gorm.DB, posting domain.Job) (domain.Job, error) {
	var existing domain.Job
	err := tx.Where("control_number = ?", posting.ControlNumber).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		posting.Base = domain.Base{}
		if err := tx.Create(&posting).Error; err != nil {
			return domain.Job{}, err
		}
		return posting, nil
	case err != nil:
		return domain.Job{}, err
	}
	posting.Base = existing.Base
	if err := tx.Save(&posting).Error; err != nil {
		return domain.Job{}, err
	}
	return posting, nil
}

func (a *Ally) GetApplication(ctx context.Context, userID, appID string) (*domain.Application, error) {
	var app domain.Application
	err := a.db.WithContext(ctx).Preload("Job").
		Where("id = ? AND user_id = ?", appID, userID).
		First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: application %s", domain.ErrNotFound, appID)
	}
	if err != nil {
		return nil, err
	}
	if len(app.Steps) == 0 {
		app.Steps = domain.DefaultSteps()
	}
	return &app, nil
}

func (a *Ally) ListApplications(ctx context.Context, userID string) ([]domain.Application, error) {
	apps := []domain.Application{}
	err := a.db.WithContext(ctx).Preload("Job").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&apps).Error
	return apps, err
}

// DeleteApplication removes the application with its topics and the
// qualifications matched for it. Saved jobs are shared and kept.
func (a *Ally) DeleteApplication(ctx context.Context, userID, appID string) error {
	if _, err := a.GetApplication(ctx, userID, appID); err != nil {
		return err
	}
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("application_id = ?", appID).Delete(&domain.Qualification{}).Error; err != nil {
			return err
		}
		if err := tx.Where("application_id = ?", appID).Delete(&domain.Topic{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", appID).Delete(&domain.Application{}).Error
	})
}

// ExtractKeywords asks the model for the posting's keywords and stores them.
func (a *Ally) ExtractKeywords(ctx context.Context, userID, appID string) ([]string, error) {
	app, err := a.GetApplication(ctx, userID, appID)
	if err != nil {
		return nil, err
	}
	if app.Job == nil {
		return nil, domain.ErrNoJobSelected
	}

	prompt, err := render(keywordsTemplate, struct{ Description string }{app.Job.Description()})
	if err != nil {
		return nil, err
	}
	reply, err := complete[keywordsReply](ctx, a.llm, prompt)
	if err != nil {
		return nil, err
	}

	app.Keywords = dedupeFold(reply.Keywords)
	if err := updateColumns(a.db.WithContext(ctx), app, "keywords"); err != nil {
		return nil, err
	}
	a.log.Info("Keywords extracted", "application_id", app.ID, "count", len(app.Keywords))
	return app.Keywords, nil
}

// CategorizeTopics groups the application's keywords into topics,
// replacing any earlier topics. Keywords are extracted first if missing.
func (a *Ally) CategorizeTopics(ctx context.Context, userID, appID string) ([]domain.Topic, error) {
	app, err := a.GetApplication(ctx, userID, appID)
	if err != nil {
		return nil, err
	}
	if app.Job == nil {
		return nil, domain.ErrNoJobSelected
	}
	if len(app.Keywords) == 0 {
		if app.Keywords, err = a.ExtractKeywords(ctx, userID, appID); err != nil {
			return nil, err
		}
	}

	prompt, err := render(topicsTemplate, struct {
		Title    string
		Keywords []string
	}{app.Job.Title, app.Keywords})
	if err != nil {
		return nil, err
	}
	reply, err := complete[topicsReply](ctx, a.llm, prompt)
	if err != nil {
		return nil, err
	}

	topics := make([]domain.Topic, 0, len(reply.Topics))
	for _, t := range reply.Topics {
		topics = append(topics, domain.Topic{
			ApplicationID: app.ID,
			Title:         strings.TrimSpace(t.Title),
			Description:   strings.TrimSpace(t.Description),
			Keywords:      dedupeFold(t.Keywords),
		})
	}

	err = a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("application_id = ?", app.ID).Delete(&domain.Qualification{}).Error; err != nil {
			return err
		}
		if err := tx.Where("application_id = ?", app.ID).Delete(&domain.Topic{}).Error; err != nil {
			return err
		}
		if err := tx.Create(&topics).Error; err != nil {
			return err
		}
		if err := domain.CompleteStep(app.Steps, domain.StepSpecializedExperience); err != nil {
			return err
		}
		// Qualifications were tied to the old topics.
		if err := domain.ResetStep(app.Steps, domain.StepPastJobs); err != nil {
			return err
		}
		if err := domain.ResetStep(app.Steps, domain.StepUserJobQualifications); err != nil {
			return err
		}
		return saveSteps(tx, app)
	})
	if err != nil {
		return nil, err
	}
	a.log.Info("Topics categorized", "application_id", app.ID, "count", len(topics))
	return topics, nil
}

func (a *Ally) Topics(ctx context.Context, userID, appID string) ([]domain.Topic, error) {
	if _, err := a.GetApplication(ctx, userID, appID); err != nil {
		return nil, err
	}
	topics := []domain.Topic{}
	err := a.db.WithContext(ctx).Where("application_id = ?", appID).Order("created_at").Find(&topics).Error
	return topics, err
}

// MatchQualifications asks the model which topics one past job shows
// evidence for and records a Qualification per matched topic. Paragraphs
// already written for a qualification are left alone.
func (a *Ally) MatchQualifications(ctx context.Context, userID, appID, pastJobID string) ([]domain.Qualification, error) {
	app, err := a.GetApplication(ctx, userID, appID)
	if err != nil {
		return nil, err
	}
	topics, err := a.Topics(ctx, userID, appID)
	if err != nil {
		return nil, err
	}
	if len(topics) == 0 {
		return nil, fmt.Errorf("%w: application has no topics yet", domain.ErrInvalidInput)
	}
	var pastJob domain.PastJob
	err = a.db.WithContext(ctx).Where("id = ? AND user_id = ?", pastJobID, userID).First(&pastJob).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: past job %s", domain.ErrNotFound, pastJobID)
	}
	if err != nil {
		return nil, err
	}

	prompt, err := render(matchTemplate, struct {
		Topics  []domain.Topic
		PastJob domain.PastJob
	}{topics, pastJob})
	if err != nil {
		return nil, err
	}
	reply, err := complete[matchReply](ctx, a.llm, prompt)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Topic, len(topics))
	for _, t := range topics {
		byID[t.ID] = t
	}

	var out []domain.Qualification
	err = a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range reply.Matches {
			topic, ok := byID[m.TopicID]
			if !ok {
				a.log.Warn("Model matched unknown topic", "application_id", app.ID, "topic_id", m.TopicID)
				continue
			}
			q, err := upsertQualification(tx, app.ID, pastJob.ID, topic, strings.TrimSpace(m.Evidence))
			if err != nil {
				return err
			}
			out = append(out, q)
		}
		if err := domain.CompleteStep(app.Steps, domain.StepPastJobs); err != nil {
			return err
		}
		return saveSteps(tx, app)
	})
	if err != nil {
		return nil, err
	}
	a.log.Info("Qualifications matched", "application_id", app.ID, "past_job_id", pastJob.ID, "matches", len(out))
	return out, nil
}

func upsertQualification(tx *gorm.DB, appID, pastJobID string, topic domain.Topic, evidence string) (domain.Qualification, error) {
	var q domain.Qualification
	err := tx.Where("past_job_id = ? AND topic_id = ?", pastJobID, topic.ID).First(&q).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		q = domain.Qualification{
			PastJobID:     pastJobID,
			TopicID:       topic.ID,
			ApplicationID: appID,
			Title:         topic.Title,
			Description:   evidence,
		}
		return q, tx.Create(&q).Error
	case err != nil:
		return q, err
	}
	if q.UserConfirmed || q.Paragraph != "" {
		return q, nil
	}
	q.Description = evidence
	return q, tx.Save(&q).Error
}

func (a *Ally) Qualifications(ctx context.Context, userID, appID string) ([]domain.Qualification, error) {
	if _, err := a.GetApplication(ctx, userID, appID); err != nil {
		return nil, err
	}
	quals := []domain.Qualification{}
	err := a.db.WithContext(ctx).Where("application_id = ?", appID).Order("created_at").Find(&quals).Error
	return quals, err
}

// PastJobQualifications lists every qualification recorded for a past job
// across all of the user's applications.
func (a *Ally) PastJobQualifications(ctx context.Context, userID, pastJobID string) ([]domain.Qualification, error) {
	var count int64
	err := a.db.WithContext(ctx).Model(&domain.PastJob{}).
		Where("id = ? AND user_id = ?", pastJobID, userID).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: past job %s", domain.ErrNotFound, pastJobID)
	}
	quals := []domain.Qualification{}
	err = a.db.WithContext(ctx).Where("past_job_id = ?", pastJobID).Order("created_at").Find(&quals).Error
	return quals, err
}

// ownedQualification loads a qualification only if its past job belongs to userID.
func (a *Ally) ownedQualification(ctx context.Context, userID, id string) (*domain.Qualification, *domain.PastJob, error) {
	var q domain.Qualification
	err := a.db.WithContext(ctx).Where("id = ?", id).First(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("%w: qualification %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, nil, err
	}
	var pj domain.PastJob
	err = a.db.WithContext(ctx).Where("id = ? AND user_id = ?", q.PastJobID, userID).First(&pj).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("%w: qualification %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, nil, err
	}
	return &q, &pj, nil
}

// DraftParagraph continues the paragraph conversation for a qualification.
// When the model marks the paragraph complete it is saved.
func (a *Ally) DraftParagraph(ctx context.Context, userID, qualificationID string, history []infrastructure.Message) (*ParagraphDraft, error) {
	q, pastJob, err := a.ownedQualification(ctx, userID, qualificationID)
	if err != nil {
		return nil, err
	}
	var topic domain.Topic
	if q.TopicID != "" {
		if err := a.db.WithContext(ctx).Where("id = ?", q.TopicID).First(&topic).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if topic.Title == "" {
		topic.Title = q.Title
	}

	system, err := render(paragraphTemplate, struct {
		Topic         domain.Topic
		PastJob       *domain.PastJob
		Qualification *domain.Qualification
	}{topic, pastJob, q})
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		history = []infrastructure.Message{{
			Role:    infrastructure.RoleUser,
			Content: "Help me write this paragraph.",
		}}
	}

	raw, err := a.llm.Complete(ctx, systemPrompt+"\n\n"+system, history)
	if err != nil {
		return nil, fmt.Errorf("%w: llm call failed: %v", domain.ErrUpstream, err)
	}
	reply, err := infrastructure.DecodeJSON[paragraphReply](raw)
	if err != nil {
		return nil, err
	}

	draft := &ParagraphDraft{
		Message:       reply.Message,
		Paragraph:     strings.TrimSpace(reply.Paragraph),
		Complete:      reply.Complete && strings.TrimSpace(reply.Paragraph) != "",
		Qualification: q,
	}
	if draft.Complete {
		q.Paragraph = draft.Paragraph
		if err := a.db.WithContext(ctx).Model(q).Update("paragraph", q.Paragraph).Error; err != nil {
			return nil, err
		}
	}
	return draft, nil
}

// ConfirmQualification records the user's decision on a qualification and
// optionally their edited paragraph. A nil confirmed keeps the stored
// decision. The qualifications step completes once every topic of the
// application has a confirmed qualification.
func (a *Ally) ConfirmQualification(ctx context.Context, userID, qualificationID string, paragraph *string, confirmed *bool) (*domain.Qualification, error) {
	q, _, err := a.ownedQualification(ctx, userID, qualificationID)
	if err != nil {
		return nil, err
	}
	if paragraph != nil {
		q.Paragraph = strings.TrimSpace(*paragraph)
	}
	if confirmed != nil {
		q.UserConfirmed = *confirmed
	}
	err = a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(q).Error; err != nil {
			return err
		}
		if q.ApplicationID == "" {
			return nil
		}
		var app domain.Application
		err := tx.Where("id = ? AND user_id = ?", q.ApplicationID, userID).First(&app).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return syncQualificationSteps(tx, &app)
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

// syncQualificationSteps recomputes the steps derived from an application's
// qualifications. The qualifications step is complete only while every topic
// has a confirmed qualification; the past-jobs step is cleared once no
// qualification is left.
func syncQualificationSteps(tx *gorm.DB, app *domain.Application) error {
	if len(app.Steps) == 0 {
		app.Steps = domain.DefaultSteps()
	}
	var topics, uncovered, matched int64
	if err := tx.Model(&domain.Topic{}).Where("application_id = ?", app.ID).Count(&topics).Error; err != nil {
		return err
	}
	err := tx.Model(&domain.Topic{}).
		Where("application_id = ?", app.ID).
		Where("id NOT IN (?)", tx.Model(&domain.Qualification{}).
			Select("topic_id").
			Where("application_id = ? AND user_confirmed = ?", app.ID, true)).
		Count(&uncovered).Error
	if err != nil {
		return err
	}
	if err := tx.Model(&domain.Qualification{}).Where("application_id = ?", app.ID).Count(&matched).Error; err != nil {
		return err
	}

	if topics > 0 && uncovered == 0 {
		err = domain.CompleteStep(app.Steps, domain.StepUserJobQualifications)
	} else {
		err = domain.ResetStep(app.Steps, domain.StepUserJobQualifications)
	}
	if err != nil {
		return err
	}
	if matched == 0 {
		if err := domain.ResetStep(app.Steps, domain.StepPastJobs); err != nil {
			return err
		}
	}
	return saveSteps(tx, app)
}

func (a *Ally) Steps(ctx context.Context, userID, appID string) (StepsView, error) {
	app, err := a.GetApplication(ctx, userID, appID)
	if err != nil {
		return StepsView{}, err
	}
	return stepsView(app.Steps), nil
}

// SetStep marks a step completed or not. Unknown step ids are invalid input.
func (a *Ally) SetStep(ctx context.Context, userID, appID, stepID string, completed bool) (StepsView, error) {
	app, err := a.GetApplication(ctx, userID, appID)
	if err != nil {
		return StepsView{}, err
	}
	if completed {
		err = domain.CompleteStep(app.Steps, stepID)
	} else {
		err = domain.ResetStep(app.Steps, stepID)
	}
	if err != nil {
		return StepsView{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := saveSteps(a.db.WithContext(ctx), app); err != nil {
		return StepsView{}, err
	}
	return stepsView(app.Steps), nil
}

// saveSteps persists app's steps together with the status they imply.
func saveSteps(db *gorm.DB, app *domain.Application) error {
	app.Status = domain.ApplicationStatusDraft
	if domain.AllCompleted(app.Steps) {
		app.Status = domain.ApplicationStatusComplete
	}
	return updateColumns(db, app, "steps", "status")
}

// updateColumns writes only the named columns of model, which keeps
// serializer fields encoded and leaves associations untouched.
func updateColumns(db *gorm.DB, model any, columns ...string) error {
	return db.Model(model).Select(columns).Omit(clause.Associations).Updates(model).Error
}

func stepsView(steps []domain.Step) StepsView {
	current, done := domain.CurrentStep(steps)
	return StepsView{Steps: steps, Current: current, Done: done}
}

// complete runs a single-prompt LLM call and decodes the JSON reply into T.
func complete[T any](ctx context.Context, llm infrastructure.LLM, prompt string) (T, error) {
	raw, err := llm.Complete(ctx, systemPrompt, []infrastructure.Message{{Role: infrastructure.RoleUser, Content: prompt}})
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%w: llm call failed: %v", domain.ErrUpstream, err)
	}
	return infrastructure.DecodeJSON[T](raw)
}

// dedupeFold trims entries and drops case-insensitive duplicates, keeping
// the first spelling.
func dedupeFold(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
