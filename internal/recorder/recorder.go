package recorder

import (
	"context"
	"time"
)

// CycleRecord summarises one fetch-and-persist cycle
type CycleRecord struct {
	CycleID     string
	StartedAt   time.Time
	FinishedAt  time.Time
	Entries     int
	FailedPages []int
	// PersistError is empty when the snapshot was written
	PersistError string
}

// Recorder keeps a history of cycles for later analysis.
type Recorder interface {
	RecordCycle(ctx context.Context, rec *CycleRecord) error
	Close() error
}
