package models

import (
	"time"

	"github.com/google/uuid"
)

type GeneratedImage struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	UserID      uuid.UUID  `db:"user_id" json:"user_id"`
	URL         string     `db:"url" json:"url"`
	StoragePath string     `db:"storage_path" json:"-"`
	FileName    string     `db:"file_name" json:"file_name"`
	Prompt      string     `db:"prompt" json:"prompt"`
	Style       string     `db:"style" json:"style"`
	Model       string     `db:"model" json:"model"`
	AspectRatio string     `db:"aspect_ratio" json:"aspect_ratio"`
	ContentType string     `db:"content_type" json:"content_type"`
	SizeBytes   int64      `db:"size_bytes" json:"size_bytes"`
	ParentID    *uuid.UUID `db:"parent_id" json:"parent_id,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}
