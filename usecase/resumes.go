package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"govres/domain"
	"govres/infrastructure"
)

// ErrFileTooLarge is returned for uploads over the configured limit.
var ErrFileTooLarge = errors.New("file too large")

const presignTTL = 15 * time.Minute

// Resumes stores uploaded resume files and extracts their text in the
// background.
type Resumes struct {
	db       *gorm.DB
	store    infrastructure.ObjectStore
	queue    infrastructure.Publisher
	maxBytes int64
	backoff  time.Duration
	log      *slog.Logger
}

func NewResumes(db *gorm.DB, store infrastructure.ObjectStore, queue infrastructure.Publisher, maxBytes int64, log *slog.Logger) *Resumes {
	return &Resumes{db: db, store: store, queue: queue, maxBytes: maxBytes, backoff: 500 * time.Millisecond, log: log}
}

// ResumeFileView is a ResumeFile plus a short-lived download link.
type ResumeFileView struct {
	domain.ResumeFile
	DownloadURL string `json:"download_url,omitempty"`
}

// Upload puts the file in object storage, records it and queues text
// extraction.
func (r *Resumes) Upload(ctx context.Context, userID, filename, contentType string, data []byte) (*domain.ResumeFile, error) {
	if int64(len(data)) > r.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, len(data), r.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", domain.ErrInvalidInput)
	}
	mime := infrastructure.DetectMIME(contentType, filename)
	switch mime {
	case infrastructure.MIMEText, infrastructure.MIMEPDF, infrastructure.MIMEDocx:
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFile, mime)
	}

	filename = path.Base(strings.ReplaceAll(filename, "\\", "/"))
	file := &domain.ResumeFile{
		Base:      domain.Base{ID: uuid.NewString()},
		UserID:    userID,
		FileName:  filename,
		MIME:      mime,
		SizeBytes: int64(len(data)),
		Status:    domain.UploadStatusUploaded,
	}
	file.ObjectKey = fmt.Sprintf("resumes/%s/%s%s", userID, file.ID, path.Ext(filename))

	if err := r.store.Put(ctx, file.ObjectKey, mime, data); err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Create(file).Error; err != nil {
		if derr := r.store.Delete(ctx, file.ObjectKey); derr != nil {
			r.log.Error("Failed to clean up orphaned object", "key", file.ObjectKey, "error", derr)
		}
		return nil, err
	}

	err := r.queue.Publish(ctx, infrastructure.QueueResumeProcessing, infrastructure.ResumeProcessingJob{
		ResumeFileID: file.ID,
		UserID:       userID,
	})
	if err != nil {
		uerr := r.db.WithContext(ctx).Model(file).Updates(map[string]any{
			"status": domain.UploadStatusFailed,
			"error":  "failed to queue processing",
		}).Error
		if uerr != nil {
			r.log.Error("Failed to mark resume failed", "resume_file_id", file.ID, "error", uerr)
		}
		return nil, fmt.Errorf("failed to queue job: %w", err)
	}

	r.log.Info("Resume uploaded", "resume_file_id", file.ID, "mime", mime, "size", file.SizeBytes)
	return file, nil
}

func (r *Resumes) List(ctx context.Context, userID string) ([]domain.ResumeFile, error) {
	files := []domain.ResumeFile{}
	err := r.db.WithContext(ctx).
		Omit("text").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&files).Error
	return files, err
}

func (r *Resumes) Get(ctx context.Context, userID, id string) (*ResumeFileView, error) {
	file, err := r.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	url, err := r.store.PresignGet(ctx, file.ObjectKey, presignTTL)
	if err != nil {
		r.log.Warn("Failed to presign resume download", "resume_file_id", id, "error", err)
	}
	return &ResumeFileView{ResumeFile: *file, DownloadURL: url}, nil
}

func (r *Resumes) Delete(ctx context.Context, userID, id string) error {
	file, err := r.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := r.store.Delete(ctx, file.ObjectKey); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(file).Error
}

func (r *Resumes) owned(ctx context.Context, userID, id string) (*domain.ResumeFile, error) {
	var file domain.ResumeFile
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: resume %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// Process is the resume_processing worker. Download and extraction
// failures are recorded on the file and not returned, so the message is
// acked; only database failures are returned.
func (r *Resumes) Process(ctx context.Context, job infrastructure.ResumeProcessingJob) error {
	log := r.log.With("resume_file_id", job.ResumeFileID)

	var file domain.ResumeFile
	err := r.db.WithContext(ctx).Where("id = ?", job.ResumeFileID).First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warn("Resume file no longer exists, skipping")
		return nil
	}
	if err != nil {
		return err
	}

	if err := r.setStatus(ctx, file.ID, domain.UploadStatusProcessing, nil); err != nil {
		return err
	}

	data, err := infrastructure.Retry(ctx, 3, r.backoff, func(ctx context.Context) ([]byte, error) {
		return r.store.Get(ctx, file.ObjectKey)
	})
	if err != nil {
		log.Error("Failed to download resume", "error", err)
		return r.setStatus(ctx, file.ID, domain.UploadStatusFailed, map[string]any{"error": "file download error: " + err.Error()})
	}

	text, err := infrastructure.ExtractText(file.MIME, data)
	if err != nil {
		log.Error("Text extraction failed", "error", err)
		return r.setStatus(ctx, file.ID, domain.UploadStatusFailed, map[string]any{"error": "text extraction error: " + err.Error()})
	}

	log.Info("Resume processed", "characters", len(text))
	return r.setStatus(ctx, file.ID, domain.UploadStatusProcessed, map[string]any{"text": text, "error": ""})
}

func (r *Resumes) setStatus(ctx context.Context, id, status string, extra map[string]any) error {
	updates := map[string]any{"status": status}
	for k, v := range extra {
		updates[k] = v
	}
	return r.db.WithContext(ctx).Model(&domain.ResumeFile{}).Where("id = ?", id).Updates(updates).Error
}
