package ingest

import (
	"strings"
	"time"
)

// MappedRows is the outcome of mapping a table body.
type MappedRows struct {
	Rows []ParsedRow
	// Skipped counts rows dropped for a bad timestamp or no usable values.
	Skipped int
}

// Samples converts the rows into raw samples.
func (m MappedRows) Samples() []RawSample {
	out := make([]RawSample, 0, len(m.Rows))
	for _, r := range m.Rows {
		out = append(out, r.Sample())
	}
	return out
}

// MapRows turns body rows into typed rows of the given kind.
func MapRows(kind SourceKind, cm ColumnMap, body [][]string) (MappedRows, error) {
	var mapRow func(cm ColumnMap, cells []string) (ParsedRow, bool)
	switch kind {
	case KindMeasurement:
		mapRow = mapMeasurement
	case KindInverter:
		mapRow = mapInverter
	case KindOptimizer:
		mapRow = mapOptimizer
	default:
		return MappedRows{}, ErrUnknownKind
	}

	var out MappedRows
	for _, cells := range body {
		if blank(cells) {
			continue
		}
		row, ok := mapRow(cm, cells)
		if !ok {
			out.Skipped++
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

func mapMeasurement(cm ColumnMap, cells []string) (ParsedRow, bool) {
	ts, ok := rowTime(cm, cells)
	if !ok {
		return nil, false
	}
	production := valueOrZero(cm, cells, FieldProduction)
	gridImport := optional(cm, cells, FieldGridImport)
	tigo := optional(cm, cells, FieldTigo)

	var consumption float64
	if _, ok := cm.Index(FieldConsumption); ok {
		consumption = valueOrZero(cm, cells, FieldConsumption)
		if _, hasImport := cm.Index(FieldGridImport); !hasImport {
			c := consumption
			gridImport = &c
		}
	} else {
		consumption = deref(gridImport) + valueOrZero(cm, cells, FieldBatteryDischarge) + deref(tigo)
	}
	if production == 0 && consumption == 0 {
		return nil, false
	}
	return MeasurementRow{
		Timestamp:   ts,
		Production:  production,
		Consumption: consumption,
		GridImport:  gridImport,
		GridExport:  optional(cm, cells, FieldGridExport),
		Tigo:        tigo,
	}, true
}

func mapInverter(cm ColumnMap, cells []string) (ParsedRow, bool) {
	ts, ok := rowTime(cm, cells)
	if !ok {
		return nil, false
	}
	row := InverterRow{
		Timestamp:    ts,
		PVOutput:     optional(cm, cells, FieldPVPower),
		BatterySoC:   optional(cm, cells, FieldBatterySoC),
		BatteryPower: optional(cm, cells, FieldBatteryPower),
		GridPower:    optional(cm, cells, FieldGridPower),
	}
	if row.PVOutput == nil && row.BatterySoC == nil && row.BatteryPower == nil && row.GridPower == nil {
		return nil, false
	}
	return row, true
}

func mapOptimizer(cm ColumnMap, cells []string) (ParsedRow, bool) {
	ts, ok := rowTime(cm, cells)
	if !ok {
		return nil, false
	}
	row := OptimizerRow{Timestamp: ts}
	found := false
	for s, cols := range cm.Strings {
		for _, c := range cols {
			if v, ok := ParseNumber(cell(cells, c)); ok {
				row.Strings[s] += v
				found = true
			}
		}
	}
	if !found {
		return nil, false
	}
	return row, true
}

func rowTime(cm ColumnMap, cells []string) (time.Time, bool) {
	if cm.Timestamp < 0 {
		return time.Time{}, false
	}
	return Normalize(cell(cells, cm.Timestamp))
}

func optional(cm ColumnMap, cells []string, f Field) *float64 {
	i, ok := cm.Index(f)
	if !ok {
		return nil
	}
	v, ok := ParseNumber(cell(cells, i))
	if !ok {
		return nil
	}
	return &v
}

func valueOrZero(cm ColumnMap, cells []string, f Field) float64 {
	return deref(optional(cm, cells, f))
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func cell(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return cells[i]
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
