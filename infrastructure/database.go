package infrastructure

import (
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"govres/domain"
)

// NewDatabase opens the configured database and migrates the schema.
func NewDatabase(cfg Config, log *slog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "mysql":
		dialector = mysql.Open(cfg.DBDSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DBDSN)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	if err := seedAdmins(db, cfg.AdminEmails); err != nil {
		return nil, err
	}

	log.Info("Connected to database and migrated schema", "driver", cfg.DBDriver)
	return db, nil
}

// Migrate creates or updates every table the service uses.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&domain.User{},
		&domain.Job{},
		&domain.Application{},
		&domain.Topic{},
		&domain.PastJob{},
		&domain.Qualification{},
		&domain.Education{},
		&domain.Award{},
		&domain.ResumeFile{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// seedAdmins promotes users that already exist with an ADMIN_EMAILS address.
// Users that sign up later are promoted by identity sync.
func seedAdmins(db *gorm.DB, emails []string) error {
	if len(emails) == 0 {
		return nil
	}
	err := db.Model(&domain.User{}).
		Where("email IN ?", emails).
		Update("is_admin", true).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to seed admins: %w", err)
	}
	return nil
}
