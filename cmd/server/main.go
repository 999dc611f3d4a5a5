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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"finqa-orchestrator/internal/adapter/httpapi"
	"finqa-orchestrator/internal/di"
	"finqa-orchestrator/internal/infra"
	"finqa-orchestrator/internal/infra/config"
	"finqa-orchestrator/internal/infra/logger"
)

func main() {
	cfg := config.Load()

	log := logger.New()
	slog.SetDefault(log)

	var pool *pgxpool.Pool
	if cfg.IndexBackend == config.BackendPostgres {
		var err error
		pool, err = infra.NewPostgresDB(context.Background(), cfg.DSN()+"?sslmode=disable")
		if err != nil {
			log.Error("failed to connect to db", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
	} else {
		log.Info("using in-memory index", "backend", cfg.IndexBackend)
	}

	components := di.NewApplicationComponents(cfg, pool, log)

	if components.Worker != nil {
		components.Worker.Start()
		defer components.Worker.Stop()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	handler := httpapi.NewHandler(components.Orchestrator, components.IndexUsecase, components.JobRepo)
	handler.Register(e)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/readyz", func(c echo.Context) error {
		if pool != nil {
			if err := pool.Ping(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "db down", "error": err.Error()})
			}
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
	})

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Info("starting server", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
}
