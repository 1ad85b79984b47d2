package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"solestash/config"
	"solestash/services"
)

// Triggerable allows workers to be triggered manually.
type Triggerable interface {
	Trigger()
}

// Scheduler drives the daemon's periodic work: recheck batches on a
// cron or interval schedule, with a catalog rebuild after each cycle so
// the published index tracks state changes.
type Scheduler struct {
	cfg     *config.Config
	catalog *services.CatalogService
	cron    *cron.Cron
	ticker  *time.Ticker
	stopCh  chan struct{}

	recheckWorker Triggerable
	imageWorker   Triggerable
}

func New(cfg *config.Config, catalog *services.CatalogService) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		catalog: catalog,
		cron:    cron.New(),
		stopCh:  make(chan struct{}),
	}
}

// SetWorkers registers background workers for scheduled triggering.
func (s *Scheduler) SetWorkers(recheck, images Triggerable) {
	s.recheckWorker = recheck
	s.imageWorker = images
}

func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Scheduler.Cron != "" {
		log.Printf("Starting scheduler with cron: %s", s.cfg.Scheduler.Cron)
		_, err := s.cron.AddFunc(s.cfg.Scheduler.Cron, func() {
			s.runCycle(ctx)
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
		return nil
	}

	if s.cfg.Scheduler.Interval > 0 {
		log.Printf("Starting scheduler with interval: %s", s.cfg.Scheduler.Interval)
		s.ticker = time.NewTicker(s.cfg.Scheduler.Interval)
		go func() {
			for {
				select {
				case <-s.ticker.C:
					s.runCycle(ctx)
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
		return nil
	}

	log.Println("No schedule configured, workers run on their own tickers only")
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
}

// runCycle kicks the workers and refreshes the published catalog. The
// rebuild runs on a short delay so a triggered recheck batch has a
// chance to land first.
func (s *Scheduler) runCycle(ctx context.Context) {
	if s.recheckWorker != nil {
		s.recheckWorker.Trigger()
	}
	if s.imageWorker != nil {
		s.imageWorker.Trigger()
	}

	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Minute):
		}
		if _, err := s.catalog.RebuildIndex(ctx); err != nil {
			log.Printf("Scheduled catalog rebuild error: %v", err)
		}
	}()
}

// TriggerNow runs one full cycle immediately.
func (s *Scheduler) TriggerNow(ctx context.Context) {
	s.runCycle(ctx)
}
