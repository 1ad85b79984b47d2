package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"solestash/identity"
	"solestash/models"
	"solestash/storage"
	"solestash/stores"
)

// IngestService runs scraped batches through the full pipeline:
// per-store post-processing, duplicate grouping, merge-or-update, and
// one isolated persist per product so a mid-batch crash never leaves a
// half-written product behind.
type IngestService struct {
	store     storage.Store
	merge     *MergeService
	lifecycle *LifecycleService
	registry  *stores.Registry
}

func NewIngestService(store storage.Store, merge *MergeService, lifecycle *LifecycleService, registry *stores.Registry) *IngestService {
	return &IngestService{store: store, merge: merge, lifecycle: lifecycle, registry: registry}
}

// LoadBatch reads a JSON array of raw records from disk.
func LoadBatch(path string) ([]models.RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []models.RawRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse batch %s: %w", path, err)
	}
	return records, nil
}

type identityGroup struct {
	key  string
	recs []*models.RawRecord
}

// IngestBatch processes one batch of raw records. Individual record
// failures degrade into the report; only storage-level run bookkeeping
// errors are returned.
func (s *IngestService) IngestBatch(ctx context.Context, records []models.RawRecord) (*models.BatchReport, error) {
	now := time.Now()
	run := &models.IngestRun{Kind: models.RunKindIngest, StartedAt: now, Status: models.RunStatusRunning}
	if err := s.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	report := &models.BatchReport{RecordsSeen: len(records)}

	prepared := s.prepare(records)
	groups := groupByIdentity(prepared)
	urlIndex := s.buildURLIndex(ctx)

	for _, group := range groups {
		if err := s.processGroup(ctx, group, urlIndex, now, report); err != nil {
			report.Errors++
			log.Printf("[ingest] group %s: %v", group.key, err)
			s.store.Log(ctx, &run.ID, models.LogLevelError, fmt.Sprintf("group %s: %v", group.key, err), "")
		}
	}

	s.finishRun(ctx, run, models.RunKindIngest, report)
	log.Printf("[ingest] %s", report.Summary())
	return report, nil
}

// prepare applies each store's post-processing and drops records with
// no identity signal at all.
func (s *IngestService) prepare(records []models.RawRecord) []*models.RawRecord {
	var out []*models.RawRecord
	for i := range records {
		rec := &records[i]
		adapter := s.registry.Resolve(domainOf(rec.URL))
		adapter.PostProcess(rec)
		if rec.Empty() {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// groupByIdentity coalesces records that denote the same product.
// Direct evidence (shared URL, URL SKU, or style code) wins over the
// derived key, so two stores listing the same SKU under different
// names still land in one group.
func groupByIdentity(records []*models.RawRecord) []*identityGroup {
	var groups []*identityGroup
	byKey := map[string]*identityGroup{}

	for _, rec := range records {
		var target *identityGroup
		for _, g := range groups {
			for _, member := range g.recs {
				if identity.SameProduct(rec, member) {
					target = g
					break
				}
			}
			if target != nil {
				break
			}
		}
		if target == nil {
			key := identity.Key(rec)
			target = byKey[key]
			if target == nil {
				target = &identityGroup{key: key}
				byKey[key] = target
				groups = append(groups, target)
			}
		}
		target.recs = append(target.recs, rec)

		// A member with an explicit style code upgrades a slug key.
		if code := strings.TrimSpace(rec.StyleCode); code != "" {
			upgraded := strings.ToUpper(code)
			if target.key != upgraded {
				delete(byKey, target.key)
				target.key = upgraded
				byKey[upgraded] = target
			}
		}
	}
	return groups
}

// buildURLIndex maps each known listing's normalized URL and URL SKU to
// its product, so a re-scrape of a known page updates the existing
// product even when its derived key drifted.
func (s *IngestService) buildURLIndex(ctx context.Context) map[string]string {
	index := map[string]string{}
	products, err := s.store.GetAllProducts(ctx)
	if err != nil {
		log.Printf("[ingest] url index unavailable: %v", err)
		return index
	}
	for i := range products {
		for _, l := range products[i].Listings {
			index[identity.NormalizeURL(l.URL)] = products[i].ID
			if sku := identity.SKUFromURL(l.URL); sku != "" {
				index["sku:"+sku] = products[i].ID
			}
		}
	}
	return index
}

func (s *IngestService) processGroup(ctx context.Context, group *identityGroup, urlIndex map[string]string, now time.Time, report *models.BatchReport) error {
	id := group.key
	for _, rec := range group.recs {
		if pid, ok := urlIndex[identity.NormalizeURL(rec.URL)]; ok {
			id = pid
			break
		}
		if sku := identity.SKUFromURL(rec.URL); sku != "" {
			if pid, ok := urlIndex["sku:"+sku]; ok {
				id = pid
				break
			}
		}
	}

	existing, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}

	var product *models.Product
	if existing == nil {
		product = s.merge.Merge(id, group.recs, now, report)
		report.ProductsNew++
		report.ListingsNew += len(product.Listings)
	} else {
		product = s.mergeInto(existing, group.recs, now, report)
		report.ProductsMerged++
	}

	if err := s.store.PutProduct(ctx, product); err != nil {
		return fmt.Errorf("put product: %w", err)
	}

	if product.Image != "" {
		if _, err := s.store.EnqueueImage(ctx, product.ID, product.Image); err != nil {
			log.Printf("[ingest] enqueue image for %s: %v", product.ID, err)
		}
	}
	return nil
}

// mergeInto folds a group of fresh records into an existing product.
// The ID and CreatedAt never change; listing histories are carried
// through the lifecycle rules instead of being rebuilt.
func (s *IngestService) mergeInto(existing *models.Product, group []*models.RawRecord, now time.Time, report *models.BatchReport) *models.Product {
	fresh := s.merge.Merge(existing.ID, group, now, report)

	if len(fresh.Name) > len(existing.Name) {
		existing.Name = fresh.Name
	}
	if existing.Brand == "" {
		existing.Brand = fresh.Brand
	}
	if existing.Colorway == "" {
		existing.Colorway = fresh.Colorway
	}
	if existing.Image == "" {
		existing.Image = fresh.Image
	}
	if existing.Description == "" {
		existing.Description = fresh.Description
	}
	existing.Tags = mergeTags(existing.Tags, fresh.Tags)
	existing.UpdatedAt = now

	for _, rec := range group {
		storeID := s.merge.storeIDFor(rec)
		target := findListing(existing, storeID, rec.URL)
		if target == nil {
			listing := s.merge.BuildListing(rec, now, report)
			existing.Listings = append(existing.Listings, *listing)
			report.ListingsNew++
			continue
		}
		tr := s.lifecycle.Apply(target, rec, now)
		countTransition(tr, target.URL, report)
	}
	return existing
}

// findListing matches on store plus normalized URL, so tracking-query
// variants of a known page hit the same listing.
func findListing(p *models.Product, store, url string) *models.Listing {
	norm := identity.NormalizeURL(url)
	for i := range p.Listings {
		if p.Listings[i].Store == store && identity.NormalizeURL(p.Listings[i].URL) == norm {
			return &p.Listings[i]
		}
	}
	return nil
}

func countTransition(tr Transition, url string, report *models.BatchReport) {
	switch {
	case tr.Ended:
		report.Ended = append(report.Ended, url)
	case tr.SoldOut:
		report.SoldOut++
	case tr.PriceChanged:
		report.PriceChanges++
	}
}

func mergeTags(existing, fresh []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range append(existing, fresh...) {
		k := strings.ToLower(t)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, t)
	}
	return out
}

func (s *IngestService) finishRun(ctx context.Context, run *models.IngestRun, kind models.RunKind, report *models.BatchReport) {
	finished := time.Now()
	run.Kind = kind
	run.FinishedAt = &finished
	run.Status = models.RunStatusCompleted
	run.RecordsSeen = report.RecordsSeen
	run.ProductsNew = report.ProductsNew
	run.ListingsNew = report.ListingsNew
	run.PriceChanges = report.PriceChanges
	run.SoldOut = report.SoldOut
	run.Ended = len(report.Ended)
	run.ErrorsCount = report.Errors
	if report.Errors > 0 && report.ProductsNew == 0 && report.ProductsMerged == 0 {
		run.Status = models.RunStatusFailed
	}
	if err := s.store.UpdateRun(ctx, run); err != nil {
		log.Printf("[ingest] update run %d: %v", run.ID, err)
	}
}
