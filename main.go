package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"energy-dashboard/internal/auth"
	batteryapp "energy-dashboard/internal/battery/application"
	battery "energy-dashboard/internal/battery/domain"
	batteryhttp "energy-dashboard/internal/battery/interfaces/http"
	"energy-dashboard/internal/config"
	dashboardapp "energy-dashboard/internal/dashboard/application"
	dashboardhttp "energy-dashboard/internal/dashboard/interfaces/http"
	"energy-dashboard/internal/dashboard/providers"
	historyapp "energy-dashboard/internal/history/application"
	history "energy-dashboard/internal/history/domain"
	historyrepo "energy-dashboard/internal/history/infrastructure/postgres"
	historyhttp "energy-dashboard/internal/history/interfaces/http"
	ingestapp "energy-dashboard/internal/ingest/application"
	ingest "energy-dashboard/internal/ingest/domain"
	"energy-dashboard/internal/ingest/infrastructure/jobs"
	ingestrepo "energy-dashboard/internal/ingest/infrastructure/postgres"
	ingesthttp "energy-dashboard/internal/ingest/interfaces/http"
	"energy-dashboard/internal/observability/metrics"
	"energy-dashboard/internal/solax"
	"energy-dashboard/internal/store"
)

func main() {
	cfg, err := config.Load()
	logger := cfg.Log.NewLogger()
	if err != nil {
		logger.WithError(err).Fatal("config error")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	db, err := store.Open(openCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		logger.WithError(err).Fatal("db open error")
	}
	defer db.Close()

	if err := store.Migrate(db, logger); err != nil {
		logger.WithError(err).Fatal("db migrate error")
	}
	caps, err := store.ProbeCapabilities(ctx, db)
	if err != nil {
		logger.WithError(err).Fatal("schema probe error")
	}
	metrics.Init(db, logger)

	importService, err := ingestapp.NewService(
		ingestrepo.NewReadingRepository(db, caps),
		buildJobStore(cfg.Import, logger),
		logger,
		ingestapp.WithDefaultSystemID(cfg.SystemID),
	)
	if err != nil {
		logger.WithError(err).Fatal("import service error")
	}
	importHandler, err := ingesthttp.NewHandler(importService, cfg.Import.MaxBytes)
	if err != nil {
		logger.WithError(err).Fatal("import handler error")
	}

	reconciler, err := historyapp.NewReconciler(
		historyrepo.NewBucketQuery(db, caps),
		logger,
		historyapp.WithZeroFillPolicy(history.ParseZeroFillPolicy(cfg.OptimizerZeroFill)),
	)
	if err != nil {
		logger.WithError(err).Fatal("reconciler error")
	}
	historyHandler, err := historyhttp.NewHandler(reconciler, cfg.SystemID, logger)
	if err != nil {
		logger.WithError(err).Fatal("history handler error")
	}

	solaxClient, err := solax.NewClient(solax.Config{
		BaseURL:       cfg.Solax.BaseURL,
		TokenID:       cfg.Solax.TokenID,
		WifiSN:        cfg.Solax.WifiSN,
		Timeout:       cfg.Solax.Timeout,
		RatePerMinute: cfg.Solax.RatePerMinute,
	})
	if err != nil {
		logger.WithError(err).Fatal("solax client error")
	}
	storeProvider, err := providers.NewStore(reconciler, cfg.SystemID, nil)
	if err != nil {
		logger.WithError(err).Fatal("store provider error")
	}
	resolver, err := dashboardapp.NewResolver(dashboardapp.Chain{
		Live:   providers.NewLive(solaxClient, nil),
		Remote: providers.NewRemote(cfg.Backend.URL, cfg.Backend.Timeout),
		Script: providers.NewScript(providers.ScriptConfig{
			Path:        cfg.Script.Path,
			Interpreter: cfg.Script.Python,
			WorkDir:     cfg.Script.WorkDir,
			Timeout:     cfg.Script.Timeout,
		}),
		Store: storeProvider,
		Demo:  providers.NewDemo(nil),
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("dashboard resolver error")
	}
	dashboardHandler, err := dashboardhttp.NewHandler(resolver)
	if err != nil {
		logger.WithError(err).Fatal("dashboard handler error")
	}

	batteryService, err := batteryapp.NewService(reconciler, battery.Options{
		MaxCapacity: battery.MaxCapacityKWh,
		PricePerKWh: cfg.Battery.PricePerKWh,
		ImportPrice: cfg.Battery.ImportPrice,
		FeedInPrice: cfg.Battery.FeedInPrice,
	}, logger, batteryapp.WithDefaultSystemID(cfg.SystemID))
	if err != nil {
		logger.WithError(err).Fatal("battery service error")
	}
	batteryHandler, err := batteryhttp.NewHandler(batteryService, logger)
	if err != nil {
		logger.WithError(err).Fatal("battery handler error")
	}

	mux := http.NewServeMux()
	mux.Handle("/api/v1/imports", importHandler)
	mux.Handle("/api/v1/imports/preview", importHandler)
	mux.Handle("/api/v1/history", historyHandler)
	mux.Handle("/api/v1/dashboard", dashboardHandler)
	mux.Handle("/api/v1/analysis/battery", batteryHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	var handler http.Handler = mux
	if cfg.AuthJWTSecret != "" {
		policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
		handler = auth.NewMiddleware([]byte(cfg.AuthJWTSecret), policy).Wrap(mux)
	} else {
		logger.Warn("AUTH_JWT_SECRET not set, api is unauthenticated")
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           loggingMiddleware(handler, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.WithField("addr", cfg.HTTPAddr).Info("http listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("http server error")
	}
}

func buildJobStore(cfg config.ImportConfig, logger logrus.FieldLogger) ingest.JobStore {
	file := jobs.NewFileStore(cfg.LogPath)
	if cfg.RedisURL == "" {
		return file
	}
	redisStore, err := jobs.NewRedisStoreFromURL(cfg.RedisURL)
	if err != nil {
		logger.WithError(err).Warn("import history redis disabled")
		return file
	}
	return jobs.NewFallbackStore(redisStore, file, logger)
}

func loggingMiddleware(next http.Handler, logger logrus.FieldLogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   resp.status,
			"duration": time.Since(start).String(),
		}).Info("http request")
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
