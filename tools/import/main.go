package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"energy-dashboard/internal/config"
	ingestapp "energy-dashboard/internal/ingest/application"
	ingest "energy-dashboard/internal/ingest/domain"
	"energy-dashboard/internal/ingest/infrastructure/jobs"
	ingestrepo "energy-dashboard/internal/ingest/infrastructure/postgres"
	"energy-dashboard/internal/store"
)

type options struct {
	file     string
	dataset  string
	systemID string
	sheet    string
	source   string
	mapping  string
	dbURL    string
	dryRun   bool
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	cfg, cfgErr := config.Load()
	logger := cfg.Log.NewLogger()
	if opts.dbURL == "" {
		opts.dbURL = cfg.DatabaseURL
	}

	dataset, err := ingestapp.ParseDataset(opts.dataset)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	var mapping ingest.ColumnMapping
	if opts.mapping != "" {
		if err := json.Unmarshal([]byte(opts.mapping), &mapping); err != nil {
			fmt.Fprintln(os.Stderr, "mapping:", err)
			os.Exit(2)
		}
	}

	f, err := os.Open(opts.file)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open file:", err)
		os.Exit(2)
	}
	defer f.Close()

	req := ingestapp.Request{
		FileName: filepath.Base(opts.file),
		Body:     f,
		Dataset:  dataset,
		SystemID: opts.systemID,
		Source:   opts.source,
		Sheet:    opts.sheet,
		Mapping:  mapping,
	}

	if opts.dryRun {
		svc, err := ingestapp.NewService(discardWriter{}, nil, logger, ingestapp.WithDefaultSystemID(cfg.SystemID))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		preview, err := svc.Preview(req)
		if err != nil {
			fmt.Fprintln(os.Stderr, "preview:", err)
			os.Exit(1)
		}
		printJSON(preview)
		return
	}

	if opts.dbURL == "" {
		if cfgErr != nil {
			fmt.Fprintln(os.Stderr, cfgErr)
		}
		fmt.Fprintln(os.Stderr, "-db or DATABASE_URL is required")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	db, err := store.Open(ctx, opts.dbURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "db open:", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := store.Migrate(db, logger); err != nil {
		fmt.Fprintln(os.Stderr, "db migrate:", err)
		os.Exit(1)
	}
	caps, err := store.ProbeCapabilities(ctx, db)
	if err != nil {
		fmt.Fprintln(os.Stderr, "schema probe:", err)
		os.Exit(1)
	}

	svc, err := ingestapp.NewService(
		ingestrepo.NewReadingRepository(db, caps),
		jobs.NewFileStore(cfg.Import.LogPath),
		logger,
		ingestapp.WithDefaultSystemID(cfg.SystemID),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	summary, err := svc.Import(ctx, req)
	if err != nil {
		var missing *ingest.MissingColumnsError
		if errors.As(err, &missing) {
			fmt.Fprintln(os.Stderr, "missing columns:", missing.Columns)
		} else {
			fmt.Fprintln(os.Stderr, "import:", err)
		}
		os.Exit(1)
	}
	printJSON(summary)
}

func parseFlags() (options, error) {
	var opts options
	flag.StringVar(&opts.file, "file", "", "path to a csv/txt/tsv/xlsx/xlsm export")
	flag.StringVar(&opts.dataset, "dataset", "measurements", "dataset: measurements, solax or tigo")
	flag.StringVar(&opts.systemID, "system", "", "system id (defaults to SYSTEM_ID)")
	flag.StringVar(&opts.sheet, "sheet", "", "workbook sheet name")
	flag.StringVar(&opts.source, "source", "", "source tag stored with the readings")
	flag.StringVar(&opts.mapping, "mapping", "", `column mapping as JSON, e.g. {"timestamp":"Time"}`)
	flag.StringVar(&opts.dbURL, "db", "", "Postgres DSN (defaults to DATABASE_URL)")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "parse and print a preview without writing")
	flag.Parse()

	if opts.file == "" {
		return opts, errors.New("-file is required")
	}
	return opts, nil
}

type discardWriter struct{}

func (discardWriter) UpsertReadings(_ context.Context, readings []ingest.BucketedReading) (int, error) {
	return len(readings), nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
