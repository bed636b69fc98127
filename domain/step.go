package domain

import "fmt"

// Wizard step ids, in the order the Ally walks through them.
const (
	StepUSAJobs               = "usa-jobs"
	StepSpecializedExperience = "specialized-experience"
	StepPastJobs              = "past-jobs"
	StepUserJobQualifications = "user-job-qualifications"
	StepEducation             = "education"
	StepAwards                = "awards"
	StepVolunteers            = "volunteers"
	StepReturnResume          = "return-resume"
)

type Step struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// DefaultSteps returns a fresh copy of the wizard sequence with nothing completed.
func DefaultSteps() []Step {
	return []Step{
		{ID: StepUSAJobs, Title: "Find a job"},
		{ID: StepSpecializedExperience, Title: "Specialized experience"},
		{ID: StepPastJobs, Title: "Past jobs"},
		{ID: StepUserJobQualifications, Title: "Qualifications"},
		{ID: StepEducation, Title: "Education"},
		{ID: StepAwards, Title: "Awards"},
		{ID: StepVolunteers, Title: "Volunteer work"},
		{ID: StepReturnResume, Title: "Review resume"},
	}
}

// CurrentStep returns the first incomplete step. When every step is
// completed it returns the last one and done is true.
func CurrentStep(steps []Step) (step Step, done bool) {
	for _, s := range steps {
		if !s.Completed {
			return s, false
		}
	}
	if len(steps) == 0 {
		return Step{}, true
	}
	return steps[len(steps)-1], true
}

// CompleteStep marks the step with the given id completed.
func CompleteStep(steps []Step, id string) error {
	return setStep(steps, id, true)
}

// ResetStep marks the step with the given id incomplete.
func ResetStep(steps []Step, id string) error {
	return setStep(steps, id, false)
}

func setStep(steps []Step, id string, completed bool) error {
	for i := range steps {
		if steps[i].ID == id {
			steps[i].Completed = completed
			return nil
		}
	}
	return fmt.Errorf("%w: step %q", ErrNotFound, id)
}

// AllCompleted reports whether nothing is left to do.
func AllCompleted(steps []Step) bool {
	_, done := CurrentStep(steps)
	return done
}
