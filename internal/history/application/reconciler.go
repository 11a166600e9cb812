package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	history "energy-dashboard/internal/history/domain"
	"energy-dashboard/internal/observability/metrics"
)

const (
	defaultSystemID = "default"
	defaultInterval = 60
)

// Reconciler builds one series from the overlapping reading tables.
type Reconciler struct {
	source history.BucketSource
	policy history.ZeroFillPolicy
	logger logrus.FieldLogger
}

// Option configures the reconciler.
type Option func(*Reconciler)

// WithZeroFillPolicy sets how optimizer-only buckets are handled.
func WithZeroFillPolicy(policy history.ZeroFillPolicy) Option {
	return func(r *Reconciler) {
		r.policy = policy
	}
}

// NewReconciler constructs a reconciler over a bucket source.
func NewReconciler(source history.BucketSource, logger logrus.FieldLogger, opts ...Option) (*Reconciler, error) {
	if source == nil {
		return nil, errors.New("reconciler: nil source")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	r := &Reconciler{source: source, policy: history.ZeroFillMissing, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Reconcile selects the primary flow table, merges optimizer totals and sums
// the result. It returns ErrNoDataInRange when nothing matches.
func (r *Reconciler) Reconcile(ctx context.Context, q history.Query) (history.Series, error) {
	if q.From.IsZero() || q.To.IsZero() || !q.To.After(q.From) {
		return history.Series{}, history.ErrInvalidQuery
	}
	if q.SystemID == "" {
		q.SystemID = defaultSystemID
	}
	if q.IntervalMinutes <= 0 {
		q.IntervalMinutes = defaultInterval
	}

	var (
		flows    []history.FlowBucket
		strategy history.Strategy
		err      error
	)
	if q.Preferred != history.PreferInverter {
		flows, err = r.source.MeasurementBuckets(ctx, q)
		if err != nil {
			return history.Series{}, fmt.Errorf("reconciler: measurements: %w", err)
		}
		strategy = history.StrategyMeasured
	}
	if len(flows) == 0 {
		flows, err = r.source.InverterBuckets(ctx, q)
		if err != nil {
			return history.Series{}, fmt.Errorf("reconciler: inverter readings: %w", err)
		}
		strategy = history.StrategyDerived
	}
	optimizer, err := r.source.OptimizerBuckets(ctx, q)
	if err != nil {
		return history.Series{}, fmt.Errorf("reconciler: optimizer readings: %w", err)
	}
	if len(flows) == 0 {
		strategy = history.StrategyOptimizerOnly
	}

	points := history.Merge(flows, strategy == history.StrategyDerived, optimizer, r.policy)
	if len(points) == 0 {
		return history.Series{}, history.ErrNoDataInRange
	}

	metrics.IncReconcile(string(strategy))
	r.logger.WithFields(logrus.Fields{
		"system_id":        q.SystemID,
		"strategy":         strategy,
		"points":           len(points),
		"interval_minutes": q.IntervalMinutes,
	}).Debug("series reconciled")

	return history.Series{
		Points:   points,
		Totals:   history.ComputeTotals(points),
		Strategy: strategy,
	}, nil
}
