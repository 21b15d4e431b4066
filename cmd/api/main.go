package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cimillas/license-store/internal/app"
	"github.com/cimillas/license-store/internal/clock"
	"github.com/cimillas/license-store/internal/config"
	"github.com/cimillas/license-store/internal/metrics"
	"github.com/cimillas/license-store/internal/storage/postgres"
	transporthttp "github.com/cimillas/license-store/internal/transport/http"
	"github.com/cimillas/license-store/migrations"
)

func main() {
	logger := log.Default()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), cfg.StartupTimeout)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to db: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	serverMetrics := metrics.NewServerMetrics(prometheus.DefaultRegisterer)
	checkoutMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)

	gameRepo := postgres.NewGameRepository(pool)
	catalogSvc := app.NewCatalogService(gameRepo, clock.NewSystem())
	ledgerRepo := postgres.NewLedgerRepository(pool)
	ledgerSvc := app.NewLedgerService(ledgerRepo)
	txRepo := postgres.NewTransactionRepository(pool)
	txSvc := app.NewTransactionService(txRepo)
	checkoutSvc := app.NewCheckoutService(gameRepo, ledgerSvc, txRepo, clock.NewSystem(),
		app.WithLogger(logger))

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler)
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/games", transporthttp.HandleGames(catalogSvc))
	mux.Handle("/games/", transporthttp.HandleGameByID(catalogSvc))
	mux.Handle("/admin/low-stock", transporthttp.HandleLowStock(catalogSvc))
	mux.Handle("/cart/calculate", transporthttp.HandleCalculateCart(checkoutSvc))
	mux.Handle("/cart/checkout", transporthttp.HandleCheckout(checkoutSvc, checkoutMetrics))
	mux.Handle("/transactions", transporthttp.HandleListTransactions(txSvc))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestLogger(
		transporthttp.Instrument(
			transporthttp.CORS(cfg.CORSOrigins, mux),
			serverMetrics,
		),
		logger,
	)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	log.Printf("api listening on :%s", cfg.Port)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
		}
	case <-stopCtx.Done():
		log.Printf("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server shutdown error: %v", err)
	}
	log.Printf("server stopped")
}
