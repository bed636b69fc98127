package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"

	"govres/domain"
	"govres/infrastructure"
)

// Identity keeps local User rows in sync with the identity provider.
type Identity struct {
	db          *gorm.DB
	queue       infrastructure.Publisher
	adminEmails []string
	log         *slog.Logger
}

func NewIdentity(db *gorm.DB, queue infrastructure.Publisher, adminEmails []string, log *slog.Logger) *Identity {
	return &Identity{db: db, queue: queue, adminEmails: adminEmails, log: log}
}

func (s *Identity) isAdminEmail(email string) bool {
	return slices.ContainsFunc(s.adminEmails, func(e string) bool { return strings.EqualFold(e, email) })
}

// Touch returns the user for an authenticated request, creating the row on
// first sight and recording the login time.
func (s *Identity) Touch(ctx context.Context, userID, email string) (*domain.User, error) {
	now := time.Now()
	var user domain.User
	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = domain.User{
			Base:        domain.Base{ID: userID},
			Email:       email,
			IsAdmin:     s.isAdminEmail(email),
			LastLoginAt: &now,
		}
		if err := user.IsValid(); err != nil {
			return nil, err
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	case err != nil:
		return nil, err
	}

	updates := map[string]any{"last_login_at": now}
	if user.Email == "" && email != "" {
		updates["email"] = email
		user.Email = email
	}
	if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return nil, err
	}
	user.LastLoginAt = &now
	return &user, nil
}

// UpdateProfile changes the user-editable profile fields.
func (s *Identity) UpdateProfile(ctx context.Context, userID string, apply func(*domain.User) error) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	keep := user
	if err := apply(&user); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	user.Base = keep.Base
	user.Email = keep.Email
	user.IsAdmin = keep.IsAdmin
	user.LastLoginAt = keep.LastLoginAt
	if err := s.db.WithContext(ctx).Save(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Identity) ListUsers(ctx context.Context) ([]domain.User, error) {
	users := []domain.User{}
	err := s.db.WithContext(ctx).Order("created_at").Find(&users).Error
	return users, err
}

func (s *Identity) SetAdmin(ctx context.Context, userID string, isAdmin bool) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
		}
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&user).Update("is_admin", isAdmin).Error; err != nil {
		return nil, err
	}
	user.IsAdmin = isAdmin
	return &user, nil
}

// Publish queues an identity event for the worker.
func (s *Identity) Publish(ctx context.Context, event infrastructure.IdentityEvent) error {
	if event.UserID == "" {
		return fmt.Errorf("%w: user_id is required", domain.ErrInvalidInput)
	}
	switch event.Type {
	case infrastructure.IdentityEventPostConfirmation, infrastructure.IdentityEventUserDeleted:
	default:
		return fmt.Errorf("%w: unknown identity event %q", domain.ErrInvalidInput, event.Type)
	}
	return s.queue.Publish(ctx, infrastructure.QueueIdentityEvents, event)
}

// Handle is the identity_events worker.
func (s *Identity) Handle(ctx context.Context, event infrastructure.IdentityEvent) error {
	log := s.log.With("event", event.Type, "user_id", event.UserID)
	switch event.Type {
	case infrastructure.IdentityEventPostConfirmation:
		err := s.confirm(ctx, event)
		if err == nil {
			log.Info("User confirmed")
		}
		return err
	case infrastructure.IdentityEventUserDeleted:
		err := s.DeleteUser(ctx, event.UserID)
		if err == nil {
			log.Info("User deleted")
		}
		return err
	default:
		log.Warn("Ignoring unknown identity event")
		return nil
	}
}

func (s *Identity) confirm(ctx context.Context, event infrastructure.IdentityEvent) error {
	isAdmin := s.isAdminEmail(event.Email) || slices.Contains(event.Groups, "admin")
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user domain.User
		err := tx.Where("id = ?", event.UserID).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = domain.User{Base: domain.Base{ID: event.UserID}}
		case err != nil:
			return err
		}
		user.Email = event.Email
		if event.Name != "" {
			user.Name = event.Name
		}
		user.IsAdmin = user.IsAdmin || isAdmin
		if err := user.IsValid(); err != nil {
			return err
		}
		return tx.Save(&user).Error
	})
}

// DeleteUser removes the user and every record they own.
func (s *Identity) DeleteUser(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pastJobs := tx.Model(&domain.PastJob{}).Select("id").Where("user_id = ?", userID)
		if err := tx.Where("past_job_id IN (?)", pastJobs).Delete(&domain.Qualification{}).Error; err != nil {
			return err
		}
		apps := tx.Model(&domain.Application{}).Select("id").Where("user_id = ?", userID)
		if err := tx.Where("application_id IN (?)", apps).Delete(&domain.Topic{}).Error; err != nil {
			return err
		}
		for _, model := range []any{
			&domain.Application{},
			&domain.PastJob{},
			&domain.Education{},
			&domain.Award{},
			&domain.ResumeFile{},
		} {
			if err := tx.Where("user_id = ?", userID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", userID).Delete(&domain.User{}).Error
	})
}
