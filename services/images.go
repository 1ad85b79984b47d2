package services

import (
	"context"

	"github.com/google/uuid"

	"solestash/models"
	"solestash/storage"
)

const imageMaxAttempts = 3

// ImageService handles product image queueing and status updates.
type ImageService struct {
	store storage.Store
}

func NewImageService(store storage.Store) *ImageService {
	return &ImageService{store: store}
}

// Enqueue queues a product image for download. Re-enqueueing a known
// URL returns the existing entry's ID.
func (s *ImageService) Enqueue(ctx context.Context, productID, originalURL string) (uuid.UUID, error) {
	return s.store.EnqueueImage(ctx, productID, originalURL)
}

// GetPending returns pending images for the download worker.
func (s *ImageService) GetPending(ctx context.Context, limit int) ([]models.ImageEntry, error) {
	return s.store.GetPendingImages(ctx, limit)
}

// MarkDownloaded records a successful download and its local path.
func (s *ImageService) MarkDownloaded(ctx context.Context, id uuid.UUID, localPath string) error {
	return s.store.UpdateImageStatus(ctx, id, models.ImageStatusDownloaded, localPath, 0)
}

// MarkFailed increments attempts, going terminal after the cap.
func (s *ImageService) MarkFailed(ctx context.Context, id uuid.UUID, attempts int) error {
	status := models.ImageStatusPending
	if attempts >= imageMaxAttempts {
		status = models.ImageStatusFailed
	}
	return s.store.UpdateImageStatus(ctx, id, status, "", attempts)
}
