package main

import (
	"context"
	"database/sql"
	"encoding/json"
	stdlog "log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	_ "github.com/lib/pq"

	"civreg/internal/citizen"
	"civreg/internal/coordinator"
	"civreg/internal/household"
	"civreg/internal/outbox"
	"civreg/internal/platform/config"
	"civreg/internal/platform/httpserver"
	"civreg/internal/platform/logger"
	"civreg/internal/platform/metrics"
	"civreg/internal/registry/schema"
	"civreg/internal/registry/txrunner"
	"civreg/internal/residency"
	"civreg/internal/vitalevent"
	dErrors "civreg/pkg/domain-errors"
)

// main wires the stores, services, and coordinator over one PostgreSQL
// pool and exposes the ops surface (health, metrics). The registry's public
// API lives in the caller layer, not here.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("ping database: %v", err)
	}
	if err := schema.Apply(ctx, db); err != nil {
		log.Fatalf("apply schema: %v", err)
	}

	m := metrics.New()

	citizenStore := citizen.NewPostgres(db)
	householdStore := household.NewPostgres(db)
	residencyStore := residency.NewPostgres(db)
	certificateStore := vitalevent.NewPostgres(db)

	householdSvc := household.NewService(householdStore, citizenStore)
	citizenSvc := citizen.NewService(citizenStore, householdSvc, certificateStore)
	residencySvc := residency.NewService(residencyStore, citizenStore)
	vitalSvc := vitalevent.NewService(certificateStore, citizenSvc, householdSvc, log, vitalevent.WithMetrics(m))

	runner := txrunner.NewPostgres(db, txrunner.WithTimeout(cfg.TxTimeout))
	engine := coordinator.New(runner, citizenSvc, householdSvc, residencySvc, vitalSvc,
		outbox.NewPostgres(db), coordinator.WithMetrics(m))

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())

	// Snapshot reads for the audit sink: full entity state before/after a
	// mutation is captured by the caller layer through these.
	router.Get("/snapshots/citizens/{id}", snapshotHandler(log, func(ctx context.Context, id uuid.UUID) (any, error) {
		return engine.CitizenSnapshot(ctx, id)
	}))
	router.Get("/snapshots/households/{id}", snapshotHandler(log, func(ctx context.Context, id uuid.UUID) (any, error) {
		return engine.HouseholdSnapshot(ctx, id)
	}))

	srv := httpserver.New(cfg.Addr, router)

	log.Printf("starting civreg registry on %s", cfg.Addr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		// Periodic sweep closing temporary residences past their end date.
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				n, err := engine.ExpireOverdueResidences(gctx)
				if err != nil {
					log.Printf("residence sweep: %v", err)
					continue
				}
				if n > 0 {
					log.Printf("residence sweep: expired %d registrations", n)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func snapshotHandler(log *stdlog.Logger, fetch func(ctx context.Context, id uuid.UUID) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}
		snapshot, err := fetch(r.Context(), id)
		if err != nil {
			switch dErrors.CodeOf(err) {
			case dErrors.CodeNotFound:
				http.Error(w, err.Error(), http.StatusNotFound)
			default:
				log.Printf("snapshot %s: %v", id, err)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snapshot); err != nil {
			log.Printf("encode snapshot %s: %v", id, err)
		}
	}
}
