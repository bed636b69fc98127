package domain

const (
	UploadStatusUploaded   = "uploaded"
	UploadStatusProcessing = "processing"
	UploadStatusProcessed  = "processed"
	UploadStatusFailed     = "failed"
)

// ResumeFile is an uploaded resume kept in object storage. Text is filled
// in by the resume processing worker.
type ResumeFile struct {
	Base
	UserID    string `gorm:"size:36;index;not null" json:"user_id"`
	FileName  string `gorm:"size:255" json:"file_name"`
	MIME      string `gorm:"size:128" json:"mime"`
	SizeBytes int64  `json:"size_bytes"`
	ObjectKey string `gorm:"size:512;not null" json:"object_key"`
	Status    string `gorm:"size:16;default:'uploaded'" json:"status"`
	Text      string `gorm:"type:longtext" json:"text,omitempty"`
	Error     string `gorm:"type:text" json:"error,omitempty"`
}
