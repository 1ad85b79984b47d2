package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"solestash/config"
	"solestash/fetch"
	"solestash/httputil"
	"solestash/logging"
	"solestash/models"
	"solestash/scheduler"
	"solestash/services"
	"solestash/storage"
	"solestash/stores"
	"solestash/workers"
)

var (
	ingestFile   = flag.String("ingest", "", "Ingest a JSON batch file and exit")
	recheckNow   = flag.Bool("recheck", false, "Run one recheck batch and exit")
	rebuildIndex = flag.Bool("rebuild-index", false, "Rebuild the catalog index and exit")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	logFile, err := logging.Setup("daemon.log")
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting solestash...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Loaded %d store configs", len(cfg.Stores))
	for id, store := range cfg.Stores {
		log.Printf("  - %s (%s)", store.Name, id)
	}

	clients := httputil.NewClients(&cfg.Proxy)
	if cfg.Proxy.URL != "" {
		log.Printf("Proxy: %s", cfg.Proxy.URL)
	}

	ctx := context.Background()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	registry := stores.NewRegistry()
	mergeService := services.NewMergeService(cfg, registry)
	lifecycleService := services.NewLifecycleService(mergeService)
	ingestService := services.NewIngestService(store, mergeService, lifecycleService, registry)
	catalogService := services.NewCatalogService(store, cfg.OutputDir)
	imageService := services.NewImageService(store)
	fetcher := fetch.NewHTTPFetcher(clients)

	log.Println("Services initialized")

	recheckWorker := workers.NewRecheckWorker(store, registry, fetcher, lifecycleService,
		time.Duration(cfg.Recheck.DelayMS)*time.Millisecond)
	recheckWorker.SetLogger(func(level models.LogLevel, source, message string) {
		store.Log(ctx, nil, level, message, source)
	})
	imageWorker := workers.NewImageWorker(imageService, clients.Plain, cfg.ImagesDir)

	// One-shot commands.
	switch {
	case *ingestFile != "":
		records, err := services.LoadBatch(*ingestFile)
		if err != nil {
			log.Fatalf("Failed to read batch: %v", err)
		}
		report, err := ingestService.IngestBatch(ctx, records)
		if err != nil {
			log.Fatalf("Ingest failed: %v", err)
		}
		imageWorker.ProcessBatch(ctx, 50)
		if _, err := catalogService.RebuildIndex(ctx); err != nil {
			log.Fatalf("Catalog rebuild failed: %v", err)
		}
		log.Printf("Ingest complete: %s", report.Summary())
		return
	case *recheckNow:
		report := recheckWorker.ProcessBatch(ctx, cfg.Recheck.Stale, cfg.Recheck.BatchSize)
		if _, err := catalogService.RebuildIndex(ctx); err != nil {
			log.Fatalf("Catalog rebuild failed: %v", err)
		}
		log.Printf("Recheck complete: %s", report.Summary())
		return
	case *rebuildIndex:
		index, err := catalogService.RebuildIndex(ctx)
		if err != nil {
			log.Fatalf("Catalog rebuild failed: %v", err)
		}
		log.Printf("Index rebuilt: %d products", index.Count)
		return
	}

	// Daemon mode.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sched := scheduler.New(cfg, catalogService)
	sched.SetWorkers(recheckWorker, imageWorker)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	go recheckWorker.Run(ctx, cfg.Recheck.Stale, cfg.Recheck.BatchSize, 30*time.Minute)
	log.Println("Recheck worker started")

	go imageWorker.Run(ctx, 20, 2*time.Minute)
	log.Println("Image worker started")

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	sched.Stop()
	cancel()
}

// openStore picks Postgres when DATABASE_URL is set, SQLite otherwise.
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.DatabaseURL != "" {
		store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.DatabaseURL))
		return store, nil
	}
	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	log.Printf("SQLite database: %s", cfg.DBPath)
	return store, nil
}

// maskConnectionString hides the password in a connection string for logs.
func maskConnectionString(conn string) string {
	at := strings.LastIndex(conn, "@")
	if at < 0 {
		return conn
	}
	head := conn[:at]
	if colon := strings.LastIndex(head, ":"); colon > strings.Index(head, "//")+1 {
		head = head[:colon+1] + "****"
	}
	return head + conn[at:]
}
