package application

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	ingest "energy-dashboard/internal/ingest/domain"
)

// ErrUnsupportedDataset is returned for unknown dataset names.
var ErrUnsupportedDataset = errors.New("import: unsupported dataset")

// Dataset names an upload type.
type Dataset string

const (
	DatasetMeasurements Dataset = "measurements"
	DatasetSolax        Dataset = "solax"
	DatasetTigo         Dataset = "tigo"
)

// ParseDataset validates a dataset name.
func ParseDataset(raw string) (Dataset, error) {
	switch d := Dataset(strings.ToLower(strings.TrimSpace(raw))); d {
	case DatasetMeasurements, DatasetSolax, DatasetTigo:
		return d, nil
	case "jan_fait", "measurement":
		return DatasetMeasurements, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDataset, raw)
	}
}

// Kind maps the dataset onto a source kind.
func (d Dataset) Kind() ingest.SourceKind {
	switch d {
	case DatasetSolax:
		return ingest.KindInverter
	case DatasetTigo:
		return ingest.KindOptimizer
	default:
		return ingest.KindMeasurement
	}
}

// DefaultSource is the provenance tag used when the caller gives none.
func (d Dataset) DefaultSource(fileName string) string {
	if d != DatasetMeasurements {
		return string(d)
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
	switch ext {
	case "xlsx", "xlsm":
		return "jan_fait_xlsx"
	default:
		return "jan_fait_csv"
	}
}
