package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	history "energy-dashboard/internal/history/domain"
	"energy-dashboard/internal/store"
)

const bucketExpr = "to_timestamp(floor(extract(epoch FROM ts)::double precision / $4::double precision) * $4::double precision)"

// BucketQuery groups the reading tables into query buckets.
type BucketQuery struct {
	db   *sql.DB
	caps store.Capabilities
}

// NewBucketQuery constructs a query selecting only columns present in caps.
func NewBucketQuery(db *sql.DB, caps store.Capabilities) *BucketQuery {
	return &BucketQuery{db: db, caps: caps}
}

func (q *BucketQuery) sum(table, column string) string {
	if q.caps.Has(table, column) {
		return fmt.Sprintf("SUM(%s)", column)
	}
	return "NULL::double precision"
}

// MeasurementBuckets sums measurements per bucket.
func (q *BucketQuery) MeasurementBuckets(ctx context.Context, hq history.Query) ([]history.FlowBucket, error) {
	if !q.caps.HasTable(store.TableMeasurements) {
		return nil, nil
	}
	t := store.TableMeasurements
	query := fmt.Sprintf(`
SELECT %s AS bucket,
	%s,
	%s,
	%s,
	%s
FROM %s
WHERE system_id = $1
	AND ts >= $2
	AND ts < $3
GROUP BY bucket
ORDER BY bucket ASC`, bucketExpr,
		q.sum(t, "production_kwh"), q.sum(t, "consumption_kwh"), q.sum(t, "grid_import_kwh"), q.sum(t, "grid_export_kwh"), t)
	return q.flows(ctx, query, hq)
}

// InverterBuckets sums inverter readings per bucket. Consumption is left to the reconciler.
func (q *BucketQuery) InverterBuckets(ctx context.Context, hq history.Query) ([]history.FlowBucket, error) {
	if !q.caps.HasTable(store.TableInverter) {
		return nil, nil
	}
	t := store.TableInverter
	query := fmt.Sprintf(`
SELECT %s AS bucket,
	%s,
	NULL::double precision,
	%s,
	%s
FROM %s
WHERE system_id = $1
	AND ts >= $2
	AND ts < $3
GROUP BY bucket
ORDER BY bucket ASC`, bucketExpr,
		q.sum(t, "pv_output_kwh"), q.sum(t, "grid_import_kwh"), q.sum(t, "grid_feed_in_kwh"), t)
	return q.flows(ctx, query, hq)
}

// OptimizerBuckets sums optimizer totals per bucket.
func (q *BucketQuery) OptimizerBuckets(ctx context.Context, hq history.Query) ([]history.OptimizerBucket, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("bucket query: nil db")
	}
	if !q.caps.HasTable(store.TableOptimizer) {
		return nil, nil
	}
	query := fmt.Sprintf(`
SELECT %s AS bucket, %s
FROM %s
WHERE system_id = $1
	AND ts >= $2
	AND ts < $3
GROUP BY bucket
ORDER BY bucket ASC`, bucketExpr, q.sum(store.TableOptimizer, "total_kwh"), store.TableOptimizer)

	rows, err := q.db.QueryContext(ctx, query, hq.SystemID, hq.From, hq.To, hq.IntervalMinutes*60)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []history.OptimizerBucket
	for rows.Next() {
		var ts time.Time
		var total sql.NullFloat64
		if err := rows.Scan(&ts, &total); err != nil {
			return nil, err
		}
		if !total.Valid {
			continue
		}
		out = append(out, history.OptimizerBucket{Timestamp: ts.UTC(), TotalKWh: total.Float64})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (q *BucketQuery) flows(ctx context.Context, query string, hq history.Query) ([]history.FlowBucket, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("bucket query: nil db")
	}
	if hq.SystemID == "" || hq.IntervalMinutes <= 0 {
		return nil, errors.New("bucket query: invalid arguments")
	}
	rows, err := q.db.QueryContext(ctx, query, hq.SystemID, hq.From, hq.To, hq.IntervalMinutes*60)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []history.FlowBucket
	for rows.Next() {
		var ts time.Time
		var production, consumption, imported, exported sql.NullFloat64
		if err := rows.Scan(&ts, &production, &consumption, &imported, &exported); err != nil {
			return nil, err
		}
		out = append(out, history.FlowBucket{
			Timestamp:      ts.UTC(),
			Production:     production.Float64,
			Consumption:    consumption.Float64,
			HasConsumption: consumption.Valid,
			GridImport:     imported.Float64,
			GridExport:     exported.Float64,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}
