package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"solestash/models"
)

// ListingRef ties a listing to its owning product for recheck batches.
type ListingRef struct {
	ProductID string
	Listing   models.Listing
}

// Store is the persistence contract: get-by-key, get-all and
// put-by-key, no multi-key transactional guarantees. A product write
// replaces the product and its listings atomically, which is what makes
// batch interruption safe between identity groups.
type Store interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	GetAllProducts(ctx context.Context) ([]models.Product, error)
	PutProduct(ctx context.Context, p *models.Product) error

	// GetStaleListings returns non-ended listings last checked before
	// the staleness cutoff, oldest first.
	GetStaleListings(ctx context.Context, olderThan time.Duration, limit int) ([]ListingRef, error)

	CreateRun(ctx context.Context, run *models.IngestRun) error
	UpdateRun(ctx context.Context, run *models.IngestRun) error
	Log(ctx context.Context, runID *int64, level models.LogLevel, message, store string) error

	EnqueueImage(ctx context.Context, productID, originalURL string) (uuid.UUID, error)
	GetPendingImages(ctx context.Context, limit int) ([]models.ImageEntry, error)
	UpdateImageStatus(ctx context.Context, id uuid.UUID, status, localPath string, attempts int) error

	Close() error
}
