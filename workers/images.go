package workers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"solestash/models"
	"solestash/services"
)

// ImageWorker downloads queued product images to local disk. Downloads
// are best effort: a failed image never blocks the pipeline.
type ImageWorker struct {
	images     *services.ImageService
	httpClient *http.Client
	imagesDir  string
	triggerCh  chan struct{}
}

func NewImageWorker(images *services.ImageService, httpClient *http.Client, imagesDir string) *ImageWorker {
	return &ImageWorker{
		images:     images,
		httpClient: httpClient,
		imagesDir:  imagesDir,
		triggerCh:  make(chan struct{}, 1),
	}
}

// Trigger causes the worker to drain the queue immediately.
func (w *ImageWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

func (w *ImageWorker) Run(ctx context.Context, batchSize int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Image worker stopping")
			return
		case <-ticker.C:
			w.ProcessBatch(ctx, batchSize)
		case <-w.triggerCh:
			w.ProcessBatch(ctx, batchSize)
		}
	}
}

// ProcessBatch downloads up to batchSize pending images.
func (w *ImageWorker) ProcessBatch(ctx context.Context, batchSize int) {
	pending, err := w.images.GetPending(ctx, batchSize)
	if err != nil {
		log.Printf("Images: query error: %v", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	log.Printf("Images: downloading %d pending images", len(pending))
	for _, entry := range pending {
		select {
		case <-ctx.Done():
			return
		default:
		}

		localPath, err := w.download(ctx, &entry)
		if err != nil {
			log.Printf("Images: %s: %v", entry.OriginalURL, err)
			if err := w.images.MarkFailed(ctx, entry.ID, entry.Attempts+1); err != nil {
				log.Printf("Images: mark failed: %v", err)
			}
			continue
		}
		if err := w.images.MarkDownloaded(ctx, entry.ID, localPath); err != nil {
			log.Printf("Images: mark downloaded: %v", err)
		}
	}
}

func (w *ImageWorker) download(ctx context.Context, entry *models.ImageEntry) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", entry.OriginalURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "image/*,*/*")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return "", fmt.Errorf("download status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 20*1024*1024))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty body")
	}

	if err := os.MkdirAll(w.imagesDir, 0o755); err != nil {
		return "", err
	}

	// Content-addressed file name so the same image shared by multiple
	// products lands on disk exactly once.
	sum := sha256.Sum256(data)
	name := hex.EncodeToString(sum[:16]) + extFor(entry.OriginalURL, resp.Header.Get("Content-Type"))
	localPath := filepath.Join(w.imagesDir, name)

	if _, err := os.Stat(localPath); err == nil {
		return localPath, nil
	}
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return localPath, nil
}

func extFor(rawURL, contentType string) string {
	if ext := strings.ToLower(path.Ext(strings.SplitN(rawURL, "?", 2)[0])); ext != "" && len(ext) <= 5 {
		return ext
	}
	switch {
	case strings.Contains(contentType, "png"):
		return ".png"
	case strings.Contains(contentType, "webp"):
		return ".webp"
	case strings.Contains(contentType, "gif"):
		return ".gif"
	default:
		return ".jpg"
	}
}
