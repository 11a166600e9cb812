package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	history "energy-dashboard/internal/history/domain"
	"energy-dashboard/internal/store"
)

func testQuery() history.Query {
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return history.Query{SystemID: "default", From: from, To: from.Add(24 * time.Hour), IntervalMinutes: 60}
}

func TestMeasurementBucketsSelectsNullForMissingColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	caps := store.NewCapabilities(map[string][]string{
		store.TableMeasurements: {"system_id", "ts", "production_kwh", "consumption_kwh"},
	})
	q := testQuery()
	t1 := q.From.Add(time.Hour)
	mock.ExpectQuery(`SUM\(production_kwh\),\s+SUM\(consumption_kwh\),\s+NULL::double precision,\s+NULL::double precision\s+FROM measurements`).
		WithArgs("default", q.From, q.To, 3600).
		WillReturnRows(sqlmock.NewRows([]string{"bucket", "p", "c", "i", "e"}).
			AddRow(t1, 2.0, 1.0, nil, nil).
			AddRow(q.From, 1.0, nil, nil, nil))

	buckets, err := NewBucketQuery(db, caps).MeasurementBuckets(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assert.True(t, buckets[0].Timestamp.Equal(q.From))
	assert.False(t, buckets[0].HasConsumption)
	assert.Equal(t, 2.0, buckets[1].Production)
	assert.True(t, buckets[1].HasConsumption)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInverterAndOptimizerBuckets(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	q := testQuery()
	mock.ExpectQuery(`FROM inverter_readings`).
		WithArgs("default", q.From, q.To, 3600).
		WillReturnRows(sqlmock.NewRows([]string{"bucket", "p", "c", "i", "e"}).AddRow(q.From, 10.0, nil, 1.0, 3.0))
	mock.ExpectQuery(`SUM\(total_kwh\)\s+FROM optimizer_readings`).
		WithArgs("default", q.From, q.To, 3600).
		WillReturnRows(sqlmock.NewRows([]string{"bucket", "t"}).AddRow(q.From, 4.0).AddRow(q.From.Add(time.Hour), nil))

	bq := NewBucketQuery(db, store.FullCapabilities())
	flows, err := bq.InverterBuckets(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, 3.0, flows[0].GridExport)
	assert.Equal(t, 1.0, flows[0].GridImport)

	opt, err := bq.OptimizerBuckets(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, opt, 1)
	assert.Equal(t, 4.0, opt[0].TotalKWh)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMissingTablesReturnNothing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	bq := NewBucketQuery(db, store.NewCapabilities(nil))
	flows, err := bq.MeasurementBuckets(context.Background(), testQuery())
	require.NoError(t, err)
	assert.Empty(t, flows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
