package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"govres/domain"
)

func TestProfileCRUD(t *testing.T) {
	db := newTestDB(t)
	awards := NewAwards(db)
	ctx := context.Background()

	a := &domain.Award{Base: domain.Base{ID: "chosen-by-client"}, UserID: otherID, Title: "Gold Star"}
	require.NoError(t, awards.Create(ctx, userID, a))
	assert.NotEqual(t, "chosen-by-client", a.ID)
	assert.Equal(t, userID, a.UserID)

	list, err := awards.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	updated, err := awards.Update(ctx, userID, a.ID, func(x *domain.Award) error {
		x.Title = "Silver Star"
		x.UserID = otherID
		x.ID = "hijack"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, a.ID, updated.ID)
	assert.Equal(t, userID, updated.UserID)
	assert.Equal(t, "Silver Star", updated.Title)

	got, err := awards.Get(ctx, userID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Silver Star", got.Title)

	require.NoError(t, awards.Delete(ctx, userID, a.ID))
	_, err = awards.Get(ctx, userID, a.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProfileHidesOtherUsers(t *testing.T) {
	db := newTestDB(t)
	edu := NewEducation(db)
	ctx := context.Background()

	e := &domain.Education{School: "State University"}
	require.NoError(t, edu.Create(ctx, userID, e))
	assert.Equal(t, domain.EducationTypeEducation, e.Type)

	_, err := edu.Get(ctx, otherID, e.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = edu.Update(ctx, otherID, e.ID, func(*domain.Education) error { return nil })
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, edu.Delete(ctx, otherID, e.ID), domain.ErrNotFound)

	list, err := edu.List(ctx, otherID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestProfileValidation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	jobs := NewPastJobs(db, domain.PastJobTypeJob)

	err := jobs.Create(ctx, userID, &domain.PastJob{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(-1, 0, 0)
	err = jobs.Create(ctx, userID, &domain.PastJob{Title: "Analyst", StartDate: &start, EndDate: &end})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	pj := &domain.PastJob{Title: "Analyst"}
	require.NoError(t, jobs.Create(ctx, userID, pj))
	_, err = jobs.Update(ctx, userID, pj.ID, func(*domain.PastJob) error { return errors.New("bad body") })
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewEducation(db).Update(ctx, userID, "missing", func(*domain.Education) error { return nil })
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPastJobsAndVolunteersAreSeparate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	jobs := NewPastJobs(db, domain.PastJobTypeJob)
	volunteers := NewPastJobs(db, domain.PastJobTypeVolunteer)

	pj := &domain.PastJob{Title: "Analyst", Type: domain.PastJobTypeVolunteer}
	require.NoError(t, jobs.Create(ctx, userID, pj))
	assert.Equal(t, domain.PastJobTypeJob, pj.Type)

	v := &domain.PastJob{Title: "Tutor"}
	require.NoError(t, volunteers.Create(ctx, userID, v))

	list, err := jobs.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Analyst", list[0].Title)

	_, err = volunteers.Get(ctx, userID, pj.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeletePastJobRemovesQualifications(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	jobs := NewPastJobs(db, domain.PastJobTypeJob)

	pj := &domain.PastJob{Title: "Analyst"}
	require.NoError(t, jobs.Create(ctx, userID, pj))
	require.NoError(t, db.Create(&domain.Qualification{PastJobID: pj.ID, Title: "Data"}).Error)

	require.NoError(t, jobs.Delete(ctx, userID, pj.ID))

	var count int64
	db.Model(&domain.Qualification{}).Where("past_job_id = ?", pj.ID).Count(&count)
	assert.Zero(t, count)
}
