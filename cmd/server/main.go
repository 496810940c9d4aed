package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mbelozerov/storefront/internal/audit"
	"github.com/mbelozerov/storefront/internal/config"
	"github.com/mbelozerov/storefront/internal/db"
	"github.com/mbelozerov/storefront/internal/events"
	"github.com/mbelozerov/storefront/internal/gate"
	"github.com/mbelozerov/storefront/internal/handlers"
	"github.com/mbelozerov/storefront/internal/httpserver"
	"github.com/mbelozerov/storefront/internal/logging"
	loggingmw "github.com/mbelozerov/storefront/internal/middleware/logging"
	"github.com/mbelozerov/storefront/internal/repo"
	"github.com/mbelozerov/storefront/internal/service"
	"github.com/mbelozerov/storefront/internal/verification"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	database, err := db.Shared(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db init: %v", err)
	}

	producer := events.NewProducer(cfg.KafkaBrokers, "auth_events")

	var indexer *audit.Indexer
	if cfg.ESURL != "" {
		esClient, err := audit.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			log.Fatalf("es init: %v", err)
		}
		indexer = &audit.Indexer{ES: esClient, Index: "auth_events"}
	}

	var mailer verification.Mailer = verification.NopMailer{}
	if cfg.SMTPAddr != "" {
		mailer = verification.NewSMTPMailer(cfg.SMTPAddr, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	}

	authSvc := &service.AuthService{
		Repo:      &repo.GormRepo{DB: database},
		JWTSecret: cfg.JWTSecret,
		Mailer:    mailer,
		Producer:  producer,
		Audit:     indexer,
	}

	authHandler := &handlers.AuthHandler{Svc: authSvc, Secure: cfg.Production()}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), middleware.Secure())
	e.Use(loggingmw.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		Gate:         gate.Default(cfg.JWTSecret),
		AuthHandler:  authHandler,
		AdminHandler: &handlers.AdminHandler{Auth: authHandler, Audit: indexer},
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := database.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := producer.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
