package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orgconsole/internal/adapters/backend"
	web "orgconsole/internal/adapters/http"
	"orgconsole/internal/adapters/http/perf"
	"orgconsole/internal/adapters/storage"
	auditStore "orgconsole/internal/adapters/storage/audit"
	"orgconsole/internal/application/orchestrators"
	"orgconsole/internal/config"
	"orgconsole/internal/domain/academicyear"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	slog.SetDefault(config.NewLogger(os.Stderr, cfg.LogLevel))

	// Audit trail database (WAL mode, schema applied on open)
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// Performance instrumentation: wrap DB with timing, share collector with the backend client
	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector, cfg.SlowQuery)

	httpCfg := backend.DefaultHTTPConfig()
	httpCfg.Timeout = cfg.BackendTimeout
	client := backend.NewClient(cfg.BackendURL, cfg.BackendToken, backend.NewHTTPClient(httpCfg), collector)

	operator, err := backend.InspectToken(cfg.BackendToken)
	if err != nil {
		slog.Warn("token_unreadable", "error", err.Error(), "hint", "bulk payments stay disabled")
	} else if operator.Expired(time.Now()) {
		slog.Warn("token_expired", "subject", operator.Subject, "expired_at", operator.ExpiresAt)
	}

	reports := orchestrators.NewSendReportDeps(cfg.ResendAPIKey, cfg.ReportFrom, cfg.ReportTo)

	var csrfKey []byte
	if cfg.CSRFKey != "" {
		if csrfKey, err = cfg.CSRFKeyBytes(); err != nil {
			log.Fatalf("invalid config: %v", err)
		}
	}

	handler := web.NewMux(web.Deps{
		Backend:     client,
		AuditStore:  auditStore.NewSQLiteStore(timedDB),
		Reports:     reports,
		Operator:    operator,
		CurrentYear: func() academicyear.Range { return cfg.CurrentAcademicYear(time.Now()) },
		IDAliases:   cfg.IDAliases,
	}, web.Options{
		CSRFKey:       csrfKey,
		SecureCookies: cfg.IsProduction(),
		RateLimit:     cfg.RateLimit,
		SlowRequest:   cfg.SlowRequest,
	}, collector)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server_start",
			"addr", cfg.Addr,
			"version", version,
			"env", cfg.AppEnv,
			"operator", operator.Actor(),
			"academic_year", cfg.CurrentAcademicYear(time.Now()).String(),
			"reports", cfg.ReportsEnabled(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("server_stopping")

	// Let an in-flight bulk submission finish before the process exits
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.BackendTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server_shutdown_failed", "error", err.Error())
	}
}
