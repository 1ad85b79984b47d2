package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

type RunKind string

const (
	RunKindIngest  RunKind = "ingest"
	RunKindRecheck RunKind = "recheck"
)

// IngestRun records one batch execution (ingest or recheck).
type IngestRun struct {
	ID           int64      `json:"id" db:"id"`
	Kind         RunKind    `json:"kind" db:"kind"`
	StartedAt    time.Time  `json:"started_at" db:"started_at"`
	FinishedAt   *time.Time `json:"finished_at" db:"finished_at"`
	Status       RunStatus  `json:"status" db:"status"`
	RecordsSeen  int        `json:"records_seen" db:"records_seen"`
	ProductsNew  int        `json:"products_new" db:"products_new"`
	ListingsNew  int        `json:"listings_new" db:"listings_new"`
	PriceChanges int        `json:"price_changes" db:"price_changes"`
	SoldOut      int        `json:"sold_out" db:"sold_out"`
	Ended        int        `json:"ended" db:"ended"`
	ErrorsCount  int        `json:"errors_count" db:"errors_count"`
	ErrorMessage string     `json:"error_message" db:"error_message"`
}
