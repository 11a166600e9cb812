package ingest

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Field is a logical column of an export.
type Field string

const (
	FieldTimestamp        Field = "timestamp"
	FieldProduction       Field = "production"
	FieldConsumption      Field = "consumption"
	FieldGridImport       Field = "grid_import"
	FieldGridExport       Field = "grid_export"
	FieldBatteryDischarge Field = "battery_discharge"
	FieldTigo             Field = "tigo"
	FieldPVPower          Field = "pv_power"
	FieldBatterySoC       Field = "battery_soc"
	FieldBatteryPower     Field = "battery_power"
	FieldGridPower        Field = "grid_power"
)

// TimestampAliases are matched in order against normalized header text.
var TimestampAliases = []string{
	"update time",
	"aktualizovat cas",
	"datetime_15min",
	"datetime",
	"date/time",
	"date time",
	"timestamp",
	"time",
}

const dateSampleSize = 5

// FieldAliases lists header fragments for one field, strongest first.
type FieldAliases struct {
	Field   Field
	Aliases []string
}

// ColumnMapping pins fields to header names chosen by the user.
type ColumnMapping map[Field]string

// AliasSet describes how to resolve the columns of one source kind.
type AliasSet struct {
	Kind SourceKind
	// Fields are resolved in order; a column is assigned at most once.
	Fields []FieldAliases
	// Required groups are satisfied when any field of the group resolves.
	Required [][]Field
	// StringPrefixes collects optimizer string columns named A.. through D...
	StringPrefixes bool
	Mapping        ColumnMapping
}

// WithMapping returns a copy of the set using the given overrides.
func (a AliasSet) WithMapping(m ColumnMapping) AliasSet {
	a.Mapping = m
	return a
}

// MeasurementAliases resolves aggregated energy exports.
func MeasurementAliases() AliasSet {
	return AliasSet{
		Kind: KindMeasurement,
		Fields: []FieldAliases{
			{Field: FieldTigo, Aliases: []string{"vyroba tigo", "tigo"}},
			{Field: FieldBatteryDischarge, Aliases: []string{"vybiti baterie", "battery discharge"}},
			{Field: FieldConsumption, Aliases: []string{"odber + dokup", "consumption", "spotreba", "load"}},
			{Field: FieldProduction, Aliases: []string{"vyroba fve", "production", "vyroba", "generation"}},
			{Field: FieldGridImport, Aliases: []string{"dokup elektriny", "grid import", "nakup", "import"}},
			{Field: FieldGridExport, Aliases: []string{"prodej elektriny", "dodavka", "grid export", "export"}},
		},
		Required: [][]Field{
			{FieldTimestamp},
			{FieldProduction},
			{FieldConsumption, FieldGridImport},
		},
	}
}

// InverterAliases resolves per-sample inverter telemetry.
func InverterAliases() AliasSet {
	return AliasSet{
		Kind: KindInverter,
		Fields: []FieldAliases{
			{Field: FieldPVPower, Aliases: []string{"total pv power", "pv power"}},
			{Field: FieldBatterySoC, Aliases: []string{"total battery soc", "battery soc"}},
			{Field: FieldBatteryPower, Aliases: []string{"total battery power", "battery power"}},
			{Field: FieldGridPower, Aliases: []string{"grid power"}},
		},
		Required: [][]Field{
			{FieldTimestamp},
			{FieldPVPower, FieldGridPower},
		},
	}
}

// OptimizerAliases resolves per-string optimizer exports.
func OptimizerAliases() AliasSet {
	return AliasSet{
		Kind:           KindOptimizer,
		Required:       [][]Field{{FieldTimestamp}},
		StringPrefixes: true,
	}
}

// AliasesFor returns the alias set of a source kind.
func AliasesFor(kind SourceKind) (AliasSet, error) {
	switch kind {
	case KindMeasurement:
		return MeasurementAliases(), nil
	case KindInverter:
		return InverterAliases(), nil
	case KindOptimizer:
		return OptimizerAliases(), nil
	default:
		return AliasSet{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}

// ColumnMap holds resolved column indexes.
type ColumnMap struct {
	Timestamp int
	Fields    map[Field]int
	// Strings lists the columns summed into optimizer strings A..D.
	Strings [4][]int
}

// Index returns the column of a field.
func (m ColumnMap) Index(f Field) (int, bool) {
	if f == FieldTimestamp {
		return m.Timestamp, m.Timestamp >= 0
	}
	i, ok := m.Fields[f]
	return i, ok
}

var foldHeader = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeHeader folds diacritics, case and surrounding space.
func NormalizeHeader(s string) string {
	out, _, err := transform.String(foldHeader, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// HeaderNames returns the header cells, naming blank ones col_N.
func HeaderNames(row []string) []string {
	names := make([]string, len(row))
	for i, cell := range row {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			cell = fmt.Sprintf("col_%d", i)
		}
		names[i] = cell
	}
	return names
}

// LocateHeader finds the header row. It returns the first row holding a
// timestamp alias, row 0 when nothing matches, or headerless when the first
// cell of row 0 is already a date.
func LocateHeader(rows [][]string) (index int, headerless bool) {
	for i, row := range rows {
		for _, cell := range row {
			if matchAlias(NormalizeHeader(cell), TimestampAliases) {
				return i, false
			}
		}
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		if _, ok := Normalize(rows[0][0]); ok {
			return 0, true
		}
	}
	return 0, false
}

// ResolveColumns maps logical fields to column indexes. A nil header marks a
// headerless file. Sample rows are used for the positional timestamp fallback.
func ResolveColumns(header []string, sample [][]string, aliases AliasSet) (ColumnMap, error) {
	cm := ColumnMap{Timestamp: -1, Fields: make(map[Field]int)}
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = NormalizeHeader(h)
	}
	used := make(map[int]bool)

	if i, ok := mappedColumn(normalized, aliases.Mapping, FieldTimestamp); ok {
		cm.Timestamp = i
	} else if i, ok := firstAliasMatch(normalized, TimestampAliases, used); ok {
		cm.Timestamp = i
	} else if i, ok := dateLikeColumn(sample, width(header, sample)); ok {
		cm.Timestamp = i
	} else if header == nil {
		cm.Timestamp = 0
	}
	if cm.Timestamp >= 0 {
		used[cm.Timestamp] = true
	}

	for _, fa := range aliases.Fields {
		if i, ok := mappedColumn(normalized, aliases.Mapping, fa.Field); ok {
			cm.Fields[fa.Field] = i
			used[i] = true
			continue
		}
		if i, ok := firstAliasMatch(normalized, fa.Aliases, used); ok {
			cm.Fields[fa.Field] = i
			used[i] = true
		}
	}

	if aliases.StringPrefixes {
		for i, h := range normalized {
			if used[i] {
				continue
			}
			if s, ok := stringIndex(h); ok {
				cm.Strings[s] = append(cm.Strings[s], i)
			}
		}
	}

	var missing []string
	for _, group := range aliases.Required {
		satisfied := false
		names := make([]string, 0, len(group))
		for _, f := range group {
			if _, ok := cm.Index(f); ok {
				satisfied = true
				break
			}
			names = append(names, string(f))
		}
		if !satisfied {
			missing = append(missing, strings.Join(names, " or "))
		}
	}
	if aliases.StringPrefixes && !cm.hasStrings() {
		missing = append(missing, "string columns A-D")
	}
	if len(missing) > 0 {
		return cm, &MissingColumnsError{Columns: missing}
	}
	return cm, nil
}

func (m ColumnMap) hasStrings() bool {
	for _, cols := range m.Strings {
		if len(cols) > 0 {
			return true
		}
	}
	return false
}

func mappedColumn(normalized []string, mapping ColumnMapping, f Field) (int, bool) {
	name, ok := mapping[f]
	if !ok || strings.TrimSpace(name) == "" {
		return -1, false
	}
	want := NormalizeHeader(name)
	for i, h := range normalized {
		if h == want {
			return i, true
		}
	}
	return -1, false
}

func firstAliasMatch(normalized []string, aliases []string, used map[int]bool) (int, bool) {
	for _, alias := range aliases {
		for i, h := range normalized {
			if used[i] {
				continue
			}
			if strings.Contains(h, alias) {
				return i, true
			}
		}
	}
	return -1, false
}

func matchAlias(h string, aliases []string) bool {
	if h == "" {
		return false
	}
	for _, alias := range aliases {
		if strings.Contains(h, alias) {
			return true
		}
	}
	return false
}

func dateLikeColumn(sample [][]string, cols int) (int, bool) {
	for c := 0; c < cols; c++ {
		seen := 0
		valid := true
		for _, row := range sample {
			if c >= len(row) || strings.TrimSpace(row[c]) == "" {
				continue
			}
			if _, ok := Normalize(row[c]); !ok {
				valid = false
				break
			}
			seen++
			if seen == dateSampleSize {
				break
			}
		}
		if valid && seen > 0 {
			return c, true
		}
	}
	return -1, false
}

func width(header []string, sample [][]string) int {
	n := len(header)
	for _, row := range sample {
		if len(row) > n {
			n = len(row)
		}
	}
	return n
}

// stringIndex matches optimizer headers such as "A1", "b-2" or "C".
func stringIndex(h string) (int, bool) {
	if h == "" || h[0] < 'a' || h[0] > 'd' {
		return 0, false
	}
	if len(h) > 1 {
		next := rune(h[1])
		if unicode.IsLetter(next) {
			return 0, false
		}
	}
	return int(h[0] - 'a'), true
}
