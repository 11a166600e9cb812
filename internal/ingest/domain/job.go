package ingest

import (
	"context"
	"time"
)

// JobStatus is the lifecycle state of an import.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobDone       JobStatus = "done"
	JobFailed     JobStatus = "failed"
)

// MaxJobHistory caps the retained import history.
const MaxJobHistory = 100

// ImportJob records one uploaded file.
type ImportJob struct {
	ID              string    `json:"id"`
	FileName        string    `json:"filename"`
	Dataset         string    `json:"dataset"`
	SystemID        string    `json:"system_id"`
	Status          JobStatus `json:"status"`
	Rows            int       `json:"rows"`
	IntervalMinutes int       `json:"interval_minutes,omitempty"`
	Message         string    `json:"message,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// JobStore keeps the import history, newest first.
type JobStore interface {
	Save(ctx context.Context, job ImportJob) error
	List(ctx context.Context, limit int) ([]ImportJob, error)
}
