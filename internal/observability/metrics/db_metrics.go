package metrics

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var readingTables = []string{"measurements", "inverter_readings", "optimizer_readings"}

func registerDBMetrics(db *sql.DB, logger logrus.FieldLogger) {
	for _, table := range readingTables {
		table := table
		prometheus.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name:        metricPrefix + "reading_rows",
				Help:        "Rows stored per reading table",
				ConstLabels: prometheus.Labels{"table": table},
			},
			func() float64 {
				return queryCount(db, logger, "SELECT COUNT(*) FROM "+table)
			},
		))
	}
}

func queryCount(db *sql.DB, logger logrus.FieldLogger, query string) float64 {
	if db == nil {
		return 0
	}
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if logger != nil {
			logger.WithError(err).Debug("metrics query failed")
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}
