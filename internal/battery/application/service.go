package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	battery "energy-dashboard/internal/battery/domain"
	dashboard "energy-dashboard/internal/dashboard/domain"
	history "energy-dashboard/internal/history/domain"
	"energy-dashboard/internal/observability/metrics"
)

const defaultIntervalMinutes = 15

var (
	// ErrNoData means the range holds no usable samples.
	ErrNoData = errors.New("battery: no data for simulation")
	// ErrInvalidRequest wraps filter and parameter errors.
	ErrInvalidRequest = errors.New("battery: invalid request")
)

// SeriesLoader reconciles stored readings into one series.
type SeriesLoader interface {
	Reconcile(ctx context.Context, q history.Query) (history.Series, error)
}

// Request selects the window and the pricing of a run.
type Request struct {
	Filters     dashboard.Filters
	PricePerKWh *float64
	MaxCapacity *int
}

// Recommendation is the best scenario in brief.
type Recommendation struct {
	CapacityKWh     int      `json:"capacityKwh"`
	SavingsKc       float64  `json:"savingsKc"`
	SelfSufficiency float64  `json:"selfSufficiency"`
	PaybackYears    *float64 `json:"paybackYears"`
}

// Report is the result of one scenario run.
type Report struct {
	Filters         dashboard.Filters  `json:"filters"`
	From            time.Time          `json:"from"`
	To              time.Time          `json:"to"`
	IntervalMinutes int                `json:"intervalMinutes"`
	Samples         int                `json:"samples"`
	Options         battery.Options    `json:"-"`
	Scenarios       []battery.Scenario `json:"scenarios"`
	Recommendation  Recommendation     `json:"recommendation"`
}

// Service loads a series and runs the capacity sweep over it.
type Service struct {
	loader          SeriesLoader
	defaults        battery.Options
	defaultSystemID string
	logger          logrus.FieldLogger
	now             func() time.Time
}

// Option configures the service.
type Option func(*Service)

// WithClock overrides the clock used to resolve ranges.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDefaultSystemID sets the system used when the filters carry none.
func WithDefaultSystemID(id string) Option {
	return func(s *Service) {
		s.defaultSystemID = id
	}
}

// NewService constructs the scenario service.
func NewService(loader SeriesLoader, defaults battery.Options, logger logrus.FieldLogger, opts ...Option) (*Service, error) {
	if loader == nil {
		return nil, errors.New("battery service: nil loader")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Service{loader: loader, defaults: defaults, defaultSystemID: "default", logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run reconciles the window and simulates every capacity.
func (s *Service) Run(ctx context.Context, req Request) (Report, error) {
	start := time.Now()
	report, err := s.run(ctx, req)
	switch {
	case err == nil:
		metrics.ObserveScenarioRun(metrics.ResultSuccess, time.Since(start))
	case errors.Is(err, ErrNoData):
		metrics.ObserveScenarioRun(metrics.ResultSkipped, time.Since(start))
	default:
		metrics.ObserveScenarioRun(metrics.ResultError, time.Since(start))
	}
	return report, err
}

func (s *Service) run(ctx context.Context, req Request) (Report, error) {
	f := req.Filters
	from, to, err := f.Bounds(s.now())
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	interval := defaultIntervalMinutes
	if f.Interval != "" {
		interval = f.Interval.Minutes()
	}
	opts := s.defaults
	if req.PricePerKWh != nil {
		if *req.PricePerKWh < 0 {
			return Report{}, fmt.Errorf("%w: negative price", ErrInvalidRequest)
		}
		opts.PricePerKWh = *req.PricePerKWh
	}
	if req.MaxCapacity != nil {
		opts.MaxCapacity = *req.MaxCapacity
	}
	systemID := f.SystemID
	if systemID == "" {
		systemID = s.defaultSystemID
	}

	series, err := s.loader.Reconcile(ctx, history.Query{
		SystemID:        systemID,
		From:            from,
		To:              to,
		IntervalMinutes: interval,
	})
	if errors.Is(err, history.ErrNoDataInRange) {
		return Report{}, ErrNoData
	}
	if err != nil {
		return Report{}, err
	}

	samples := make([]battery.Sample, 0, len(series.Points))
	for _, p := range series.Points {
		samples = append(samples, battery.Sample{ProductionKWh: p.ProductionKWh, ConsumptionKWh: p.ConsumptionKWh})
	}
	scenarios := battery.RunScenarios(samples, opts)
	best, ok := battery.Recommend(scenarios)
	if !ok {
		return Report{}, ErrNoData
	}

	s.logger.WithFields(logrus.Fields{
		"system_id":        systemID,
		"samples":          len(samples),
		"interval_minutes": interval,
		"best_capacity":    best.CapacityKWh,
	}).Debug("battery scenarios computed")

	return Report{
		Filters:         f,
		From:            from,
		To:              to,
		IntervalMinutes: interval,
		Samples:         len(battery.ActiveSamples(samples)),
		Options:         opts,
		Scenarios:       scenarios,
		Recommendation: Recommendation{
			CapacityKWh:     best.CapacityKWh,
			SavingsKc:       best.SavingsKc,
			SelfSufficiency: best.SelfSufficiency,
			PaybackYears:    best.PaybackYears,
		},
	}, nil
}
