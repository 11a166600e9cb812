package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	history "energy-dashboard/internal/history/domain"
)

type stubSource struct {
	measurements []history.FlowBucket
	inverter     []history.FlowBucket
	optimizer    []history.OptimizerBucket
	err          error
	calls        []string
	lastQuery    history.Query
}

func (s *stubSource) MeasurementBuckets(_ context.Context, q history.Query) ([]history.FlowBucket, error) {
	s.calls = append(s.calls, "measurements")
	s.lastQuery = q
	return s.measurements, s.err
}

func (s *stubSource) InverterBuckets(_ context.Context, q history.Query) ([]history.FlowBucket, error) {
	s.calls = append(s.calls, "inverter")
	s.lastQuery = q
	return s.inverter, s.err
}

func (s *stubSource) OptimizerBuckets(context.Context, history.Query) ([]history.OptimizerBucket, error) {
	s.calls = append(s.calls, "optimizer")
	return s.optimizer, nil
}

var (
	t0 = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
)

func query() history.Query {
	return history.Query{From: t0, To: t0.Add(24 * time.Hour)}
}

func TestReconcilePrefersMeasurements(t *testing.T) {
	source := &stubSource{
		measurements: []history.FlowBucket{{Timestamp: t1, Production: 4, Consumption: 2, HasConsumption: true}, {Timestamp: t0, Production: 1, Consumption: 1, HasConsumption: true}},
		inverter:     []history.FlowBucket{{Timestamp: t0, Production: 100}},
	}
	r, err := NewReconciler(source, nil)
	require.NoError(t, err)

	series, err := r.Reconcile(context.Background(), query())
	require.NoError(t, err)
	assert.Equal(t, history.StrategyMeasured, series.Strategy)
	assert.Equal(t, []string{"measurements", "optimizer"}, source.calls)
	require.Len(t, series.Points, 2)
	assert.True(t, series.Points[0].Timestamp.Equal(t0))
	assert.Equal(t, 5.0, series.Totals.ProductionKWh)
	assert.Equal(t, 2.0, series.Totals.BalanceKWh)
	assert.Equal(t, "default", source.lastQuery.SystemID)
	assert.Equal(t, 60, source.lastQuery.IntervalMinutes)
}

func TestReconcileFallsBackToInverterAndDerives(t *testing.T) {
	source := &stubSource{
		inverter:  []history.FlowBucket{{Timestamp: t0, Production: 10, GridExport: 3, GridImport: 1}},
		optimizer: []history.OptimizerBucket{{Timestamp: t0, TotalKWh: 9}, {Timestamp: t1, TotalKWh: 2}},
	}
	r, err := NewReconciler(source, nil)
	require.NoError(t, err)

	series, err := r.Reconcile(context.Background(), query())
	require.NoError(t, err)
	assert.Equal(t, history.StrategyDerived, series.Strategy)
	require.Len(t, series.Points, 2)
	assert.Equal(t, 8.0, series.Points[0].ConsumptionKWh)
	assert.Equal(t, 9.0, *series.Points[0].TigoKWh)
	assert.Equal(t, 0.0, series.Points[1].ProductionKWh)
	assert.Equal(t, 11.0, series.Totals.TigoKWh)
}

func TestReconcileInverterPreferenceSkipsMeasurements(t *testing.T) {
	source := &stubSource{
		measurements: []history.FlowBucket{{Timestamp: t0, Production: 1}},
		inverter:     []history.FlowBucket{{Timestamp: t0, Production: 2}},
	}
	r, err := NewReconciler(source, nil)
	require.NoError(t, err)

	q := query()
	q.Preferred = history.PreferInverter
	series, err := r.Reconcile(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []string{"inverter", "optimizer"}, source.calls)
	assert.Equal(t, 2.0, series.Points[0].ProductionKWh)
}

func TestReconcileSkipPolicyAndEmpty(t *testing.T) {
	source := &stubSource{optimizer: []history.OptimizerBucket{{Timestamp: t0, TotalKWh: 1}}}
	r, err := NewReconciler(source, nil, WithZeroFillPolicy(history.SkipMissing))
	require.NoError(t, err)
	_, err = r.Reconcile(context.Background(), query())
	assert.ErrorIs(t, err, history.ErrNoDataInRange)

	r, err = NewReconciler(source, nil)
	require.NoError(t, err)
	series, err := r.Reconcile(context.Background(), query())
	require.NoError(t, err)
	assert.Equal(t, history.StrategyOptimizerOnly, series.Strategy)
}

func TestReconcileErrors(t *testing.T) {
	boom := errors.New("connection reset")
	r, err := NewReconciler(&stubSource{err: boom}, nil)
	require.NoError(t, err)
	_, err = r.Reconcile(context.Background(), query())
	assert.ErrorIs(t, err, boom)

	_, err = r.Reconcile(context.Background(), history.Query{From: t1, To: t0})
	assert.ErrorIs(t, err, history.ErrInvalidQuery)

	_, err = NewReconciler(nil, nil)
	assert.Error(t, err)
}
