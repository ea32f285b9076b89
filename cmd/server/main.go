package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"news-intel/internal/adapter/newshttp"
	"news-intel/internal/adapter/repository"
	"news-intel/internal/di"
	"news-intel/internal/infra"
	"news-intel/internal/infra/config"
	"news-intel/internal/infra/logger"
	"news-intel/internal/infra/telemetry"
)

func main() {
	cfg := config.Load()

	ctx := context.Background()

	// Telemetry first so the logger can bridge into it
	otelCfg := telemetry.ConfigFromEnv()
	otelShutdown, err := telemetry.InitProvider(ctx, otelCfg)
	if err != nil {
		slog.Error("failed to init telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Error("telemetry shutdown failed", "error", err)
		}
	}()

	log := logger.NewWithOTel(otelCfg.Enabled)
	slog.SetDefault(log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	dbPool, err := infra.NewPostgresDB(ctx, dsn, infra.PoolConfig{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		log.Error("failed to connect to db", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := repository.InitSchema(ctx, dbPool); err != nil {
		log.Error("failed to init schema", "error", err)
		os.Exit(1)
	}

	components, err := di.NewApplicationComponents(cfg, dbPool, log)
	if err != nil {
		log.Error("failed to wire application", "error", err)
		os.Exit(1)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	handler := newshttp.NewHandler(
		components.ProcessUsecase,
		components.QueryUsecase,
		components.ArticleRepo,
		components.Index,
		func(c echo.Context) error {
			return dbPool.Ping(c.Request().Context())
		},
	)
	handler.RegisterRoutes(e)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Info("starting server", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := components.Consumer.Start(gCtx); err != nil {
			return fmt.Errorf("failed to start consumer: %w", err)
		}
		<-gCtx.Done()
		components.Consumer.Stop()
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
