package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/till/internal/catalog"
	catalogStore "github.com/MrJamesThe3rd/till/internal/catalog/store"
	"github.com/MrJamesThe3rd/till/internal/clock"
	"github.com/MrJamesThe3rd/till/internal/config"
	"github.com/MrJamesThe3rd/till/internal/database"
	tillHttp "github.com/MrJamesThe3rd/till/internal/http"
	importHandler "github.com/MrJamesThe3rd/till/internal/http/importcsv"
	productHandler "github.com/MrJamesThe3rd/till/internal/http/product"
	registerHandler "github.com/MrJamesThe3rd/till/internal/http/register"
	reportHandler "github.com/MrJamesThe3rd/till/internal/http/report"
	txHandler "github.com/MrJamesThe3rd/till/internal/http/transaction"
	"github.com/MrJamesThe3rd/till/internal/id"
	"github.com/MrJamesThe3rd/till/internal/importer"
	"github.com/MrJamesThe3rd/till/internal/notify"
	"github.com/MrJamesThe3rd/till/internal/register"
	"github.com/MrJamesThe3rd/till/internal/report"
	"github.com/MrJamesThe3rd/till/internal/transaction"
	txStore "github.com/MrJamesThe3rd/till/internal/transaction/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := database.New(cfg.DB.Driver, cfg.DB.DSN, cfg.DB.MaxOpenConns)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	products, err := catalogStore.New(ctx, db, cfg.App.Currency)
	if err != nil {
		return fmt.Errorf("prepare catalog store: %w", err)
	}
	defer products.Close()

	ledger, err := txStore.New(ctx, db, cfg.App.Currency)
	if err != nil {
		return fmt.Errorf("prepare transaction store: %w", err)
	}
	defer ledger.Close()

	broker := notify.NewBroker()

	var (
		catalogService     = catalog.NewService(products, broker, id.UUID{}, cfg.App.Currency)
		transactionService = transaction.NewService(ledger, broker, clock.System{}, id.UUID{}, cfg.App.Currency)
		session            = register.NewSession(catalogService, transactionService, cfg.App.Currency)
		reportService      = report.NewService(transactionService, cfg.App.Currency, time.Local)
		importService      = importer.NewService(cfg.App.Currency)
	)

	var (
		productH     = productHandler.NewHandler(catalogService, cfg.App.Currency)
		transactionH = txHandler.NewHandler(transactionService, cfg.App.Currency)
		registerH    = registerHandler.NewHandler(session)
		reportH      = reportHandler.NewHandler(reportService)
		importH      = importHandler.NewHandler(importService, catalogService)
	)

	router := tillHttp.New(tillHttp.Options{
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		Timeout:        cfg.Server.Timeout,
	}, productH, transactionH, registerH, reportH, importH)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.Timeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("starting server", "app", cfg.App.Name, "port", srv.Addr, "driver", cfg.DB.Driver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
