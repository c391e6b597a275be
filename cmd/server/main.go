package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	httpadapter "impactboard/internal/adapters/http"
	pg "impactboard/internal/adapters/postgres"
	"impactboard/internal/config"
	"impactboard/internal/ports"
	analyticssvc "impactboard/internal/services/analytics"
	compliancesvc "impactboard/internal/services/compliance"
	overridesvc "impactboard/internal/services/overrides"
	settingssvc "impactboard/internal/services/settings"
)

func main() {
	log := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		log.Warnf("config: %v", err)
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required for Postgres adapters")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	defer db.Close()

	// Wire repositories to services (ports)
	var _ ports.ReadRepository = db
	var _ ports.WriteRepository = db
	var _ ports.PermissionChecker = db
	var _ ports.AuditSink = db

	settings := settingssvc.New(db, db, db, cfg.Debounce(), log)
	analytics := analyticssvc.New(db, db, settings, log)
	compliance := compliancesvc.New(db, db, db, db, settings, log)
	overrides := overridesvc.New(db, db, db, db, log)

	go settings.Run(ctx)

	srv := httpadapter.New(analytics, compliance, overrides, settings, log)
	r := chi.NewRouter()
	r.Mount("/", srv.Routes())

	errCh := make(chan error, 1)
	go func() { errCh <- http.ListenAndServe(cfg.ListenAddr, r) }()
	log.Infof("listening on %s", cfg.ListenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Infof("shutting down on %s", sig)
		cancel()
		// Give the debounce worker a moment to drain pending writes.
		time.Sleep(300 * time.Millisecond)
	case err := <-errCh:
		log.Fatalf("server error: %v", err)
	}
}
