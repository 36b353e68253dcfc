package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"maternal-care-agent/internal/adapter/httpapi"
	"maternal-care-agent/internal/app"
	"maternal-care-agent/internal/config"
	"maternal-care-agent/internal/logger"
)

func main() {
	cfg, err := config.Load(".env")
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to build services")
	}

	h := httpapi.NewHandler(a.Chat, a.Triage, a.Finder, a.Geocoder, a.Patients, cfg.CORSOrigins, log)
	e := httpapi.NewServer(h, cfg.CORSOrigins, log)

	go func() {
		log.WithField("port", cfg.Port).Info("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server stopped")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	if err := a.Close(shutdownCtx); err != nil {
		log.WithError(err).Warn("close storage")
	}
}
