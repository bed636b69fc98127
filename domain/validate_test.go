package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPastJobIsValid(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(-1, 0, 0)

	cases := []struct {
		name string
		job  PastJob
		ok   bool
	}{
		{"ok", PastJob{Title: "Analyst", Type: PastJobTypeJob}, true},
		{"volunteer", PastJob{Title: "Tutor", Type: PastJobTypeVolunteer}, true},
		{"missing title", PastJob{Type: PastJobTypeJob}, false},
		{"bad type", PastJob{Title: "x", Type: "Other"}, false},
		{"dates reversed", PastJob{Title: "x", Type: PastJobTypeJob, StartDate: &start, EndDate: &end}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.job.IsValid()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidInput)
			}
		})
	}
}

func TestEducationDefaultsType(t *testing.T) {
	e := Education{School: "State University"}
	assert.NoError(t, e.IsValid())
	assert.Equal(t, EducationTypeEducation, e.Type)

	e = Education{School: "x", GPA: 7}
	assert.ErrorIs(t, e.IsValid(), ErrInvalidInput)
}

func TestJobDescriptionIncludesDuties(t *testing.T) {
	j := Job{Title: "IT Specialist", Agency: "GSA", Duties: []string{"Manage systems"}, QualificationsSummary: "One year specialized experience"}
	d := j.Description()
	assert.Contains(t, d, "IT Specialist")
	assert.Contains(t, d, "- Manage systems")
	assert.Contains(t, d, "One year specialized experience")
}
