package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	ingest "energy-dashboard/internal/ingest/domain"
	"energy-dashboard/internal/ingest/parser"
	"energy-dashboard/internal/observability/metrics"
)

const (
	// DefaultSystemID is used when neither the request nor the token names a system.
	DefaultSystemID = "default"

	headerSampleRows = 20
	previewBuckets   = 10
)

// ReadingWriter persists a batch atomically.
type ReadingWriter interface {
	UpsertReadings(ctx context.Context, readings []ingest.BucketedReading) (int, error)
}

// Request describes one file to import.
type Request struct {
	FileName string
	Body     io.Reader
	Dataset  Dataset
	SystemID string
	Source   string
	Sheet    string
	Mapping  ingest.ColumnMapping
}

// Batch is a parsed and bucketized file ready to be written.
type Batch struct {
	Kind            ingest.SourceKind
	Source          string
	SystemID        string
	Sheet           string
	IntervalMinutes int
	Parsed          int
	Skipped         int
	Readings        []ingest.BucketedReading
}

// Summary is returned per imported file.
type Summary struct {
	JobID           string `json:"job_id,omitempty"`
	FileName        string `json:"filename"`
	Dataset         string `json:"dataset"`
	Source          string `json:"source"`
	SystemID        string `json:"system_id"`
	Sheet           string `json:"sheet,omitempty"`
	IntervalMinutes int    `json:"interval_minutes"`
	Parsed          int    `json:"parsed_rows"`
	Skipped         int    `json:"skipped_rows"`
	Written         int    `json:"written_buckets"`
}

// PreviewBucket is one bucket shown before committing an import.
type PreviewBucket struct {
	Timestamp time.Time          `json:"timestamp"`
	Kind      ingest.SourceKind  `json:"kind"`
	Values    map[string]float64 `json:"values"`
}

// Preview is the dry-run result of an import.
type Preview struct {
	Summary
	Buckets []PreviewBucket `json:"buckets"`
}

// Service runs the parse → bucketize → upsert pipeline.
type Service struct {
	writer          ReadingWriter
	jobs            ingest.JobStore
	logger          logrus.FieldLogger
	now             func() time.Time
	newID           func() string
	defaultSystemID string
}

// Option configures the service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDefaultSystemID sets the system used when a request names none.
func WithDefaultSystemID(id string) Option {
	return func(s *Service) {
		if id != "" {
			s.defaultSystemID = id
		}
	}
}

// NewService constructs an import service. jobs may be nil.
func NewService(writer ReadingWriter, jobs ingest.JobStore, logger logrus.FieldLogger, opts ...Option) (*Service, error) {
	if writer == nil {
		return nil, errors.New("import: nil writer")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Service{
		writer:          writer,
		jobs:            jobs,
		logger:          logger,
		now:             time.Now,
		newID:           func() string { return uuid.NewString() },
		defaultSystemID: DefaultSystemID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Prepare parses and bucketizes a file without writing it.
func (s *Service) Prepare(req Request) (Batch, error) {
	if req.Body == nil {
		return Batch{}, parser.ErrEmptyFile
	}
	kind := req.Dataset.Kind()
	source := req.Source
	if source == "" {
		source = req.Dataset.DefaultSource(req.FileName)
	}
	systemID := req.SystemID
	if systemID == "" {
		systemID = s.defaultSystemID
	}

	table, err := parser.Read(req.FileName, req.Body, parser.Options{Sheet: req.Sheet})
	if err != nil {
		return Batch{}, err
	}

	header, body := splitHeader(table.Rows)
	aliases, err := ingest.AliasesFor(kind)
	if err != nil {
		return Batch{}, err
	}
	sample := body
	if len(sample) > headerSampleRows {
		sample = sample[:headerSampleRows]
	}
	columns, err := ingest.ResolveColumns(header, sample, aliases.WithMapping(req.Mapping))
	if err != nil {
		return Batch{}, err
	}

	mapped, err := ingest.MapRows(kind, columns, body)
	if err != nil {
		return Batch{}, err
	}
	samples := mapped.Samples()
	if len(samples) == 0 {
		return Batch{}, ingest.ErrNoValidData
	}

	interval := ingest.InferInterval(ingest.SortedInstants(samples))
	readings, err := ingest.Bucketize(samples, interval, source)
	if err != nil {
		return Batch{}, err
	}
	if kind == ingest.KindMeasurement {
		extra, err := optimizerTotals(mapped.Rows, interval, source)
		if err != nil {
			return Batch{}, err
		}
		readings = append(readings, extra...)
	}
	for i := range readings {
		readings[i].SystemID = systemID
	}

	return Batch{
		Kind:            kind,
		Source:          source,
		SystemID:        systemID,
		Sheet:           table.Sheet,
		IntervalMinutes: interval,
		Parsed:          len(mapped.Rows),
		Skipped:         mapped.Skipped,
		Readings:        readings,
	}, nil
}

// Import parses a file and upserts its buckets in one transaction.
func (s *Service) Import(ctx context.Context, req Request) (Summary, error) {
	start := s.now()
	job := ingest.ImportJob{
		ID:        s.newID(),
		FileName:  req.FileName,
		Dataset:   string(req.Dataset),
		SystemID:  req.SystemID,
		Status:    ingest.JobProcessing,
		CreatedAt: start,
		UpdatedAt: start,
	}
	s.saveJob(ctx, job)

	log := s.logger.WithFields(logrus.Fields{"file": req.FileName, "dataset": req.Dataset, "job_id": job.ID})

	summary, err := s.importBatch(ctx, req)
	summary.JobID = job.ID
	job.SystemID = summary.SystemID
	job.UpdatedAt = s.now()
	if err != nil {
		job.Status = ingest.JobFailed
		job.Message = err.Error()
		s.saveJob(ctx, job)
		metrics.ObserveImport(string(req.Dataset), metrics.ResultError, s.now().Sub(start), 0, summary.Skipped)
		log.WithError(err).Warn("import failed")
		return summary, err
	}

	job.Status = ingest.JobDone
	job.Rows = summary.Written
	job.IntervalMinutes = summary.IntervalMinutes
	job.Message = fmt.Sprintf("%d buckets written", summary.Written)
	s.saveJob(ctx, job)
	metrics.ObserveImport(string(req.Dataset), metrics.ResultSuccess, s.now().Sub(start), summary.Written, summary.Skipped)
	log.WithFields(logrus.Fields{
		"rows":             summary.Written,
		"skipped":          summary.Skipped,
		"interval_minutes": summary.IntervalMinutes,
		"system_id":        summary.SystemID,
	}).Info("import completed")
	return summary, nil
}

func (s *Service) importBatch(ctx context.Context, req Request) (Summary, error) {
	batch, err := s.Prepare(req)
	summary := summarize(req, batch)
	if err != nil {
		return summary, err
	}
	written, err := s.writer.UpsertReadings(ctx, batch.Readings)
	if err != nil {
		return summary, err
	}
	summary.Written = written
	return summary, nil
}

// Preview parses and bucketizes a file, returning the first buckets.
func (s *Service) Preview(req Request) (Preview, error) {
	batch, err := s.Prepare(req)
	if err != nil {
		return Preview{}, err
	}
	preview := Preview{Summary: summarize(req, batch)}
	for _, r := range batch.Readings {
		if len(preview.Buckets) == previewBuckets {
			break
		}
		values := make(map[string]float64, len(r.Energy)+len(r.State))
		for c, v := range r.Energy {
			values[string(c)] = v
		}
		for c, v := range r.State {
			values[string(c)] = v
		}
		preview.Buckets = append(preview.Buckets, PreviewBucket{Timestamp: r.Timestamp, Kind: r.Kind, Values: values})
	}
	return preview, nil
}

// History lists recent imports, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]ingest.ImportJob, error) {
	if s.jobs == nil {
		return []ingest.ImportJob{}, nil
	}
	return s.jobs.List(ctx, limit)
}

func (s *Service) saveJob(ctx context.Context, job ingest.ImportJob) {
	if s.jobs == nil {
		return
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		s.logger.WithError(err).WithField("job_id", job.ID).Warn("import history save failed")
	}
}

func summarize(req Request, batch Batch) Summary {
	return Summary{
		FileName:        req.FileName,
		Dataset:         string(req.Dataset),
		Source:          batch.Source,
		SystemID:        batch.SystemID,
		Sheet:           batch.Sheet,
		IntervalMinutes: batch.IntervalMinutes,
		Parsed:          batch.Parsed,
		Skipped:         batch.Skipped,
	}
}

func splitHeader(rows [][]string) (header []string, body [][]string) {
	idx, headerless := ingest.LocateHeader(rows)
	if headerless {
		return nil, rows
	}
	return ingest.HeaderNames(rows[idx]), rows[idx+1:]
}

// optimizerTotals turns the optimizer column of combined measurement files
// into optimizer buckets.
func optimizerTotals(rows []ingest.ParsedRow, interval int, source string) ([]ingest.BucketedReading, error) {
	var samples []ingest.RawSample
	for _, row := range rows {
		m, ok := row.(ingest.MeasurementRow)
		if !ok || m.Tigo == nil {
			continue
		}
		samples = append(samples, ingest.RawSample{
			Timestamp:  m.Timestamp,
			Kind:       ingest.KindOptimizer,
			Quantities: map[ingest.Channel]float64{ingest.ChannelTigoKWh: *m.Tigo},
		})
	}
	if len(samples) == 0 {
		return nil, nil
	}
	return ingest.Bucketize(samples, interval, source)
}
