package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	ingest "energy-dashboard/internal/ingest/domain"
)

// ErrEmptyID is returned when saving a job without id.
var ErrEmptyID = errors.New("jobs: empty id")

// FileStore keeps the history in a JSON file.
type FileStore struct {
	mu   sync.Mutex
	path string
	max  int
}

// NewFileStore uses path for persistence; the file is created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, max: ingest.MaxJobHistory}
}

// Save upserts the job by id.
func (s *FileStore) Save(_ context.Context, job ingest.ImportJob) error {
	if job.ID == "" {
		return ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs, err := s.load()
	if err != nil {
		return err
	}
	replaced := false
	for i := range jobs {
		if jobs[i].ID == job.ID {
			jobs[i] = job
			replaced = true
			break
		}
	}
	if !replaced {
		jobs = append(jobs, job)
	}
	sortNewest(jobs)
	if len(jobs) > s.max {
		jobs = jobs[:s.max]
	}
	return s.write(jobs)
}

// List returns up to limit jobs, newest first.
func (s *FileStore) List(_ context.Context, limit int) ([]ingest.ImportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs, err := s.load()
	if err != nil {
		return nil, err
	}
	sortNewest(jobs)
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (s *FileStore) load() ([]ingest.ImportJob, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []ingest.ImportJob{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("jobs: read %s: %w", s.path, err)
	}
	var jobs []ingest.ImportJob
	if err := json.Unmarshal(data, &jobs); err != nil {
		return []ingest.ImportJob{}, nil
	}
	return jobs, nil
}

func (s *FileStore) write(jobs []ingest.ImportJob) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("jobs: mkdir: %w", err)
	}
	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("jobs: write: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func sortNewest(jobs []ingest.ImportJob) {
	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
}
