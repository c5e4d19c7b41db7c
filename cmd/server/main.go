package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/merchantops/gridview/internal/access"
	"github.com/merchantops/gridview/internal/config"
	"github.com/merchantops/gridview/internal/db"
	"github.com/merchantops/gridview/internal/listing"
	"github.com/merchantops/gridview/internal/middleware"
	"github.com/merchantops/gridview/internal/repository"
	"github.com/merchantops/gridview/internal/schema"
	"github.com/merchantops/gridview/internal/views"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(".")
	if err != nil {
		logger.Fatal("load configuration", zap.Error(err))
	}

	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connect to database", zap.Error(err))
	}
	defer conn.Close()

	if err := db.RunMigrations(cfg.Database); err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}

	registry := schema.DefaultRegistry()

	principalRepo := repository.NewPrincipalRepository(conn.Pool)
	viewRepo := repository.NewViewRepository(conn)
	gridRepo := repository.NewGridRepository(conn.Pool, registry)
	categoryRepo := repository.NewCategoryRepository(conn.Pool)

	resolver := access.NewResolver(principalRepo, access.NewCache(cfg.CacheSize, cfg.CacheTTL), logger)
	viewService := views.NewService(viewRepo, registry, logger)
	loader := listing.NewCategoryLoader(categoryRepo)
	listService := listing.NewService(registry, resolver, gridRepo, viewService, loader, logger, listing.Options{
		DefaultPageSize: cfg.DefaultPageSize,
		MaxPageSize:     cfg.MaxPageSize,
	})

	mux := http.NewServeMux()
	mux.Handle("POST /api/resources/{resource}/list", listing.NewHTTPHandler(listService, logger))
	views.NewHTTPHandler(viewService, logger).Register(mux)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	handler := corsHandler.Handler(
		middleware.Logging(logger)(
			middleware.Authenticate(mux),
		),
	)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("addr", cfg.ServerAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}
