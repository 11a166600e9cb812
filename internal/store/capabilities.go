package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Reading tables probed at startup.
const (
	TableMeasurements = "measurements"
	TableInverter     = "inverter_readings"
	TableOptimizer    = "optimizer_readings"
)

// Capabilities records which tables and columns exist. It is built once and
// never mutated.
type Capabilities struct {
	columns map[string]map[string]struct{}
}

// NewCapabilities builds a value from table → columns, mainly for tests.
func NewCapabilities(tables map[string][]string) Capabilities {
	caps := Capabilities{columns: make(map[string]map[string]struct{}, len(tables))}
	for table, cols := range tables {
		set := make(map[string]struct{}, len(cols))
		for _, c := range cols {
			set[c] = struct{}{}
		}
		caps.columns[table] = set
	}
	return caps
}

// FullCapabilities describes the current schema.
func FullCapabilities() Capabilities {
	return NewCapabilities(map[string][]string{
		TableMeasurements: {"system_id", "ts", "production_kwh", "consumption_kwh", "grid_import_kwh", "grid_export_kwh", "source"},
		TableInverter:     {"system_id", "ts", "interval_minutes", "source", "pv_output_kwh", "battery_soc_pct", "battery_power_kwh", "grid_feed_in_kwh", "grid_import_kwh"},
		TableOptimizer:    {"system_id", "ts", "interval_minutes", "string_a_kwh", "string_b_kwh", "string_c_kwh", "string_d_kwh", "total_kwh"},
	})
}

// HasTable reports whether the table exists.
func (c Capabilities) HasTable(table string) bool {
	_, ok := c.columns[table]
	return ok
}

// Has reports whether the column exists on the table.
func (c Capabilities) Has(table, column string) bool {
	cols, ok := c.columns[table]
	if !ok {
		return false
	}
	_, ok = cols[column]
	return ok
}

// ProbeCapabilities reads the reading tables' columns from information_schema.
func ProbeCapabilities(ctx context.Context, db *sql.DB) (Capabilities, error) {
	rows, err := db.QueryContext(ctx, `
SELECT table_name, column_name
FROM information_schema.columns
WHERE table_schema = current_schema()
  AND table_name IN ($1, $2, $3)`, TableMeasurements, TableInverter, TableOptimizer)
	if err != nil {
		return Capabilities{}, fmt.Errorf("%w: probe: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	tables := make(map[string][]string)
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return Capabilities{}, err
		}
		tables[table] = append(tables[table], column)
	}
	if err := rows.Err(); err != nil {
		return Capabilities{}, err
	}
	return NewCapabilities(tables), nil
}
