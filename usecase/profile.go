package usecase

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"govres/domain"
)

type ownedPtr[T any] interface {
	*T
	domain.Owned
}

// ProfileOptions customizes a Profile store for one record kind.
type ProfileOptions[T any] struct {
	// Scope narrows every query, e.g. to one PastJob type.
	Scope func(*gorm.DB) *gorm.DB
	// Prepare runs before validation on create and update.
	Prepare func(*T)
	// OnDelete removes dependent rows inside the delete transaction.
	OnDelete func(tx *gorm.DB, id string) error
}

// Profile is owner-scoped CRUD for one kind of profile record. Records of
// other users behave as if they did not exist.
type Profile[T any, P ownedPtr[T]] struct {
	db   *gorm.DB
	opts ProfileOptions[T]
}

func NewProfile[T any, P ownedPtr[T]](db *gorm.DB, opts ProfileOptions[T]) *Profile[T, P] {
	return &Profile[T, P]{db: db, opts: opts}
}

func (p *Profile[T, P]) query(ctx context.Context, userID string) *gorm.DB {
	q := p.db.WithContext(ctx).Where("user_id = ?", userID)
	if p.opts.Scope != nil {
		q = p.opts.Scope(q)
	}
	return q
}

func (p *Profile[T, P]) List(ctx context.Context, userID string) ([]T, error) {
	items := []T{}
	if err := p.query(ctx, userID).Order("created_at").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (p *Profile[T, P]) Get(ctx context.Context, userID, id string) (*T, error) {
	var item T
	err := p.query(ctx, userID).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (p *Profile[T, P]) Create(ctx context.Context, userID string, item *T) error {
	rec := P(item)
	*rec.Record() = domain.Base{}
	rec.SetOwner(userID)
	if err := p.prepare(item); err != nil {
		return err
	}
	return p.db.WithContext(ctx).Create(item).Error
}

// Update loads the record, lets apply modify it, and saves it back. The
// id, owner and timestamps cannot be changed by apply.
func (p *Profile[T, P]) Update(ctx context.Context, userID, id string, apply func(*T) error) (*T, error) {
	item, err := p.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	rec := P(item)
	base := *rec.Record()
	if err := apply(item); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	*rec.Record() = base
	rec.SetOwner(userID)
	if err := p.prepare(item); err != nil {
		return nil, err
	}
	if err := p.db.WithContext(ctx).Save(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (p *Profile[T, P]) Delete(ctx context.Context, userID, id string) error {
	if _, err := p.Get(ctx, userID, id); err != nil {
		return err
	}
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if p.opts.OnDelete != nil {
			if err := p.opts.OnDelete(tx, id); err != nil {
				return err
			}
		}
		var zero T
		return tx.Where("id = ? AND user_id = ?", id, userID).Delete(&zero).Error
	})
}

func (p *Profile[T, P]) prepare(item *T) error {
	if p.opts.Prepare != nil {
		p.opts.Prepare(item)
	}
	return P(item).IsValid()
}

// NewPastJobs returns the store for PastJob or Volunteer records; kind is
// one of domain.PastJobTypeJob or domain.PastJobTypeVolunteer.
func NewPastJobs(db *gorm.DB, kind string) *Profile[domain.PastJob, *domain.PastJob] {
	return NewProfile[domain.PastJob](db, ProfileOptions[domain.PastJob]{
		Scope: func(q *gorm.DB) *gorm.DB { return q.Where("type = ?", kind) },
		Prepare: func(p *domain.PastJob) {
			p.Type = kind
			p.Qualifications = nil
		},
		OnDelete: func(tx *gorm.DB, id string) error {
			var appIDs []string
			err := tx.Model(&domain.Qualification{}).
				Where("past_job_id = ? AND application_id <> ''", id).
				Distinct().Pluck("application_id", &appIDs).Error
			if err != nil {
				return err
			}
			if err := tx.Where("past_job_id = ?", id).Delete(&domain.Qualification{}).Error; err != nil {
				return err
			}
			var apps []domain.Application
			if len(appIDs) > 0 {
				if err := tx.Where("id IN ?", appIDs).Find(&apps).Error; err != nil {
					return err
				}
			}
			for i := range apps {
				if err := syncQualificationSteps(tx, &apps[i]); err != nil {
					return err
				}
			}
			return nil
		},
	})
}

func NewEducation(db *gorm.DB) *Profile[domain.Education, *domain.Education] {
	return NewProfile[domain.Education](db, ProfileOptions[domain.Education]{})
}

func NewAwards(db *gorm.DB) *Profile[domain.Award, *domain.Award] {
	return NewProfile[domain.Award](db, ProfileOptions[domain.Award]{})
}
