package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"solestash/models"
	"solestash/storage"
)

// CatalogService projects the stored products into the published
// catalog: an index file plus one JSON document per product. Rebuilding
// is a pure function of the store, so running it twice is harmless.
type CatalogService struct {
	store     storage.Store
	outputDir string
}

func NewCatalogService(store storage.Store, outputDir string) *CatalogService {
	return &CatalogService{store: store, outputDir: outputDir}
}

// RebuildIndex regenerates index.json and the per-product documents
// under <outputDir>/products/.
func (s *CatalogService) RebuildIndex(ctx context.Context) (*models.CatalogIndex, error) {
	products, err := s.store.GetAllProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	productsDir := filepath.Join(s.outputDir, "products")
	if err := os.MkdirAll(productsDir, 0o755); err != nil {
		return nil, err
	}

	index := &models.CatalogIndex{GeneratedAt: time.Now()}
	for i := range products {
		p := &products[i]
		index.Entries = append(index.Entries, indexEntry(p))

		data, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal product %s: %w", p.ID, err)
		}
		path := filepath.Join(productsDir, safeFilename(p.ID)+".json")
		if err := writeAtomic(path, data); err != nil {
			return nil, fmt.Errorf("write product %s: %w", p.ID, err)
		}
	}
	index.Count = len(index.Entries)

	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := writeAtomic(filepath.Join(s.outputDir, "index.json"), data); err != nil {
		return nil, err
	}

	log.Printf("[catalog] rebuilt index: %d products", index.Count)
	return index, nil
}

func indexEntry(p *models.Product) models.IndexEntry {
	entry := models.IndexEntry{
		ID:         p.ID,
		Name:       p.Name,
		Brand:      p.Brand,
		Category:   p.Category,
		Image:      p.Image,
		StoreCount: len(p.Listings),
		Tags:       p.Tags,
	}
	entry.BestPrice = p.BestSalePrice()
	return entry
}

// safeFilename keeps product IDs usable as file names. Identity keys
// are already slug- or code-shaped; this guards the odd stray slash.
func safeFilename(id string) string {
	out := make([]rune, 0, len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// writeAtomic writes via a temp file and rename so a reader never sees
// a half-written document.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
