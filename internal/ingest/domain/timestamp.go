package ingest

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	minYear = 2000
	maxYear = 2030
)

// Spreadsheet serial day zero. Using 1899-12-30 absorbs the 1900 leap-year bug.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-1-2T15:04:05",
	"2006-1-2T15:04",
	"2006-1-2",
}

var dottedLayouts = []string{
	"2.1.2006 15:04:05",
	"2.1.2006 15:04",
	"2.1.2006",
}

// Normalize converts a cell value into a UTC instant truncated to the second.
// It returns false for values it cannot read or whose year is outside the
// accepted window.
func Normalize(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return accept(v)
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return accept(*v)
	case float64:
		return fromSerial(v)
	case float32:
		return fromSerial(float64(v))
	case int:
		return fromSerial(float64(v))
	case int64:
		return fromSerial(float64(v))
	case string:
		return parseString(v)
	default:
		return time.Time{}, false
	}
}

func parseString(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	if f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64); err == nil {
		return fromSerial(f)
	}
	if isDotted(s) {
		for _, layout := range dottedLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return accept(t)
			}
		}
		return time.Time{}, false
	}
	iso := strings.ReplaceAll(s, "/", "-")
	iso = strings.Replace(iso, " ", "T", 1)
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, iso); err == nil {
			return accept(t)
		}
	}
	return time.Time{}, false
}

func isDotted(s string) bool {
	head := s
	if i := strings.IndexByte(s, ' '); i >= 0 {
		head = s[:i]
	}
	return strings.Count(head, ".") == 2
}

func fromSerial(days float64) (time.Time, bool) {
	if math.IsNaN(days) || math.IsInf(days, 0) || days <= 0 {
		return time.Time{}, false
	}
	secs := math.Round(days * 86400)
	return accept(serialEpoch.Add(time.Duration(secs) * time.Second))
}

func accept(t time.Time) (time.Time, bool) {
	if t.IsZero() {
		return time.Time{}, false
	}
	t = t.UTC()
	if y := t.Year(); y < minYear || y > maxYear {
		return time.Time{}, false
	}
	return t.Truncate(time.Second), true
}
