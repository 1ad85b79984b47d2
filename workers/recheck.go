package workers

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"solestash/fetch"
	"solestash/models"
	"solestash/services"
	"solestash/storage"
	"solestash/stores"
)

// RecheckWorker re-fetches stale listings and runs them through the
// lifecycle rules: price moves, sell-outs and dead pages all surface
// here rather than in the ingest path.
type RecheckWorker struct {
	store     storage.Store
	registry  *stores.Registry
	fetcher   fetch.Fetcher
	lifecycle *services.LifecycleService
	delay     time.Duration
	triggerCh chan struct{}
	logFunc   LogFunc
}

func NewRecheckWorker(store storage.Store, registry *stores.Registry, fetcher fetch.Fetcher, lifecycle *services.LifecycleService, delay time.Duration) *RecheckWorker {
	return &RecheckWorker{
		store:     store,
		registry:  registry,
		fetcher:   fetcher,
		lifecycle: lifecycle,
		delay:     delay,
		triggerCh: make(chan struct{}, 1),
		logFunc:   NoOpLogger,
	}
}

func (w *RecheckWorker) SetLogger(fn LogFunc) {
	w.logFunc = fn
}

// Trigger causes the worker to run a batch immediately.
func (w *RecheckWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

func (w *RecheckWorker) Run(ctx context.Context, staleDuration time.Duration, batchSize int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Recheck worker stopping")
			return
		case <-ticker.C:
			w.ProcessBatch(ctx, staleDuration, batchSize)
		case <-w.triggerCh:
			log.Println("Recheck worker triggered manually")
			w.ProcessBatch(ctx, staleDuration, batchSize)
		}
	}
}

// ProcessBatch checks one batch of stale listings. Each product is
// persisted on its own so one broken page never blocks the rest.
func (w *RecheckWorker) ProcessBatch(ctx context.Context, staleDuration time.Duration, batchSize int) *models.BatchReport {
	report := &models.BatchReport{}

	refs, err := w.store.GetStaleListings(ctx, staleDuration, batchSize)
	if err != nil {
		log.Printf("Recheck: query error: %v", err)
		return report
	}
	if len(refs) == 0 {
		return report
	}

	now := time.Now()
	run := &models.IngestRun{Kind: models.RunKindRecheck, StartedAt: now, Status: models.RunStatusRunning}
	if err := w.store.CreateRun(ctx, run); err != nil {
		log.Printf("Recheck: create run: %v", err)
	}

	log.Printf("Recheck: checking %d stale listings", len(refs))
	report.RecordsSeen = len(refs)

	for _, ref := range refs {
		select {
		case <-ctx.Done():
			w.finishRun(ctx, run, report)
			return report
		default:
		}

		if err := w.checkListing(ctx, ref, report); err != nil {
			report.Errors++
			log.Printf("Recheck: %s: %v", ref.Listing.URL, err)
			w.logFunc(models.LogLevelError, "recheck", fmt.Sprintf("%s: %v", ref.Listing.URL, err))
		}

		if w.delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(w.delay):
			}
		}
	}

	w.finishRun(ctx, run, report)
	log.Printf("Recheck: %s", report.Summary())
	return report
}

func (w *RecheckWorker) checkListing(ctx context.Context, ref storage.ListingRef, report *models.BatchReport) error {
	product, err := w.store.GetProduct(ctx, ref.ProductID)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return fmt.Errorf("product %s missing", ref.ProductID)
	}
	listing := product.FindListing(ref.Listing.Store, ref.Listing.URL)
	if listing == nil {
		return fmt.Errorf("listing %s/%s missing", ref.Listing.Store, ref.Listing.URL)
	}

	adapter := w.registry.Resolve(hostOf(listing.URL))
	now := time.Now()

	rec, err := w.fetcher.Fetch(ctx, listing.URL, adapter)
	var tr services.Transition
	if err != nil {
		report.FetchFailures = append(report.FetchFailures, fmt.Sprintf("%s: %v", listing.URL, err))
		tr = w.lifecycle.ApplyFailure(listing, now)
	} else {
		// The listing's store id wins over the adapter default so
		// sizing config keeps resolving the same way it did at ingest.
		rec.Store = listing.Store
		if rec.URL == "" {
			rec.URL = listing.URL
		}
		tr = w.lifecycle.Apply(listing, rec, now)
	}

	switch {
	case tr.Ended:
		report.Ended = append(report.Ended, listing.URL)
	case tr.SoldOut:
		report.SoldOut++
	case tr.PriceChanged:
		report.PriceChanges++
	}

	product.UpdatedAt = now
	if err := w.store.PutProduct(ctx, product); err != nil {
		return fmt.Errorf("put product: %w", err)
	}
	return nil
}

func (w *RecheckWorker) finishRun(ctx context.Context, run *models.IngestRun, report *models.BatchReport) {
	if run.ID == 0 {
		return
	}
	finished := time.Now()
	run.FinishedAt = &finished
	run.Status = models.RunStatusCompleted
	run.RecordsSeen = report.RecordsSeen
	run.PriceChanges = report.PriceChanges
	run.SoldOut = report.SoldOut
	run.Ended = len(report.Ended)
	run.ErrorsCount = report.Errors
	if err := w.store.UpdateRun(ctx, run); err != nil {
		log.Printf("Recheck: update run %d: %v", run.ID, err)
	}
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}
