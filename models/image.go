package models

import (
	"time"

	"github.com/google/uuid"
)

// Image status
const (
	ImageStatusPending    = "pending"
	ImageStatusDownloaded = "downloaded"
	ImageStatusFailed     = "failed"
)

// ImageEntry is a queued product image waiting for the download worker.
type ImageEntry struct {
	ID          uuid.UUID `json:"id" db:"id"`
	ProductID   string    `json:"product_id" db:"product_id"`
	OriginalURL string    `json:"original_url" db:"original_url"`
	LocalPath   string    `json:"local_path" db:"local_path"`
	Status      string    `json:"status" db:"status"`
	Attempts    int       `json:"attempts" db:"attempts"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
