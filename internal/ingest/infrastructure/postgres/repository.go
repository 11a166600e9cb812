package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	ingest "energy-dashboard/internal/ingest/domain"
	"energy-dashboard/internal/store"
)

// ErrInvalidReading is returned for readings without key fields.
var ErrInvalidReading = errors.New("reading repo: invalid reading")

type column struct {
	name    string
	channel ingest.Channel
}

var inverterColumns = []column{
	{name: "pv_output_kwh", channel: ingest.ChannelPVOutputW},
	{name: "battery_soc_pct", channel: ingest.ChannelBatterySoC},
	{name: "battery_power_kwh", channel: ingest.ChannelBatteryPowerW},
	{name: "grid_feed_in_kwh", channel: ingest.ChannelGridFeedInW},
	{name: "grid_import_kwh", channel: ingest.ChannelGridImportW},
}

var optimizerColumns = []column{
	{name: "string_a_kwh", channel: ingest.ChannelStringA},
	{name: "string_b_kwh", channel: ingest.ChannelStringB},
	{name: "string_c_kwh", channel: ingest.ChannelStringC},
	{name: "string_d_kwh", channel: ingest.ChannelStringD},
}

// ReadingRepository upserts bucketed readings into the reading tables.
type ReadingRepository struct {
	db   *sql.DB
	caps store.Capabilities
}

// NewReadingRepository constructs a repository writing the columns present in caps.
func NewReadingRepository(db *sql.DB, caps store.Capabilities) *ReadingRepository {
	return &ReadingRepository{db: db, caps: caps}
}

// UpsertReadings writes all readings in one transaction. Existing rows with
// the same natural key are updated in place.
func (r *ReadingRepository) UpsertReadings(ctx context.Context, readings []ingest.BucketedReading) (int, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("reading repo: nil db")
	}
	if len(readings) == 0 {
		return 0, nil
	}
	for _, reading := range readings {
		if reading.SystemID == "" || reading.Timestamp.IsZero() || reading.IntervalMinutes <= 0 {
			return 0, ErrInvalidReading
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %v", store.ErrStoreUnavailable, err)
	}

	stmts := make(map[ingest.SourceKind]*sql.Stmt)
	defer func() {
		for _, stmt := range stmts {
			stmt.Close()
		}
	}()

	written := 0
	for _, reading := range readings {
		stmt, ok := stmts[reading.Kind]
		if !ok {
			query, err := r.upsertQuery(reading.Kind)
			if err != nil {
				_ = tx.Rollback()
				return 0, err
			}
			stmt, err = tx.PrepareContext(ctx, query)
			if err != nil {
				_ = tx.Rollback()
				return 0, fmt.Errorf("%w: prepare: %v", store.ErrStoreUnavailable, err)
			}
			stmts[reading.Kind] = stmt
		}
		if _, err := stmt.ExecContext(ctx, r.args(reading)...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("%w: upsert %s: %v", store.ErrStoreUnavailable, reading.Kind, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %v", store.ErrStoreUnavailable, err)
	}
	return written, nil
}

func (r *ReadingRepository) measurementOptional() []string {
	var cols []string
	for _, c := range []string{"grid_import_kwh", "grid_export_kwh", "source"} {
		if r.caps.Has(store.TableMeasurements, c) {
			cols = append(cols, c)
		}
	}
	return cols
}

func (r *ReadingRepository) upsertQuery(kind ingest.SourceKind) (string, error) {
	switch kind {
	case ingest.KindMeasurement:
		cols := append([]string{"system_id", "ts", "production_kwh", "consumption_kwh"}, r.measurementOptional()...)
		updates := make([]string, 0, len(cols))
		for _, c := range cols[2:] {
			updates = append(updates, fmt.Sprintf("%[1]s = COALESCE(EXCLUDED.%[1]s, %[2]s.%[1]s)", c, store.TableMeasurements))
		}
		return buildUpsert(store.TableMeasurements, cols, []string{"system_id", "ts"}, updates), nil
	case ingest.KindInverter:
		cols := []string{"system_id", "ts", "interval_minutes", "source"}
		for _, c := range inverterColumns {
			cols = append(cols, c.name)
		}
		return buildUpsert(store.TableInverter, cols, cols[:4], overwrite(cols[4:])), nil
	case ingest.KindOptimizer:
		cols := []string{"system_id", "ts", "interval_minutes"}
		for _, c := range optimizerColumns {
			cols = append(cols, c.name)
		}
		cols = append(cols, "total_kwh")
		return buildUpsert(store.TableOptimizer, cols, cols[:3], overwrite(cols[3:])), nil
	default:
		return "", fmt.Errorf("%w: %s", ingest.ErrUnknownKind, kind)
	}
}

func (r *ReadingRepository) args(reading ingest.BucketedReading) []any {
	switch reading.Kind {
	case ingest.KindMeasurement:
		args := []any{
			reading.SystemID,
			reading.Timestamp,
			nullable(reading, ingest.ChannelProductionKWh),
			nullable(reading, ingest.ChannelConsumptionKWh),
		}
		for _, c := range r.measurementOptional() {
			switch c {
			case "grid_import_kwh":
				args = append(args, nullable(reading, ingest.ChannelGridImportKWh))
			case "grid_export_kwh":
				args = append(args, nullable(reading, ingest.ChannelGridExportKWh))
			case "source":
				args = append(args, sql.NullString{String: reading.Source, Valid: reading.Source != ""})
			}
		}
		return args
	case ingest.KindInverter:
		args := []any{reading.SystemID, reading.Timestamp, reading.IntervalMinutes, reading.Source}
		for _, c := range inverterColumns {
			args = append(args, nullable(reading, c.channel))
		}
		return args
	default:
		args := []any{reading.SystemID, reading.Timestamp, reading.IntervalMinutes}
		total, present := 0.0, false
		for _, c := range optimizerColumns {
			v := nullable(reading, c.channel)
			if v.Valid {
				total += v.Float64
				present = true
			}
			args = append(args, v)
		}
		if tigo, ok := reading.Value(ingest.ChannelTigoKWh); ok {
			total, present = tigo, true
		}
		return append(args, sql.NullFloat64{Float64: total, Valid: present})
	}
}

func nullable(reading ingest.BucketedReading, c ingest.Channel) sql.NullFloat64 {
	v, ok := reading.Value(c)
	return sql.NullFloat64{Float64: v, Valid: ok}
}

func overwrite(cols []string) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		out = append(out, fmt.Sprintf("%[1]s = EXCLUDED.%[1]s", c))
	}
	return out
}

func buildUpsert(table string, cols, keys, updates []string) string {
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	updates = append(updates, "updated_at = NOW()")
	return fmt.Sprintf(`
INSERT INTO %s (
	%s
) VALUES (
	%s
)
ON CONFLICT (%s)
DO UPDATE SET
	%s`, table, strings.Join(cols, ",\n\t"), strings.Join(placeholders, ", "), strings.Join(keys, ", "), strings.Join(updates, ",\n\t"))
}
