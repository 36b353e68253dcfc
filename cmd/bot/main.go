package main

import (
	"context"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"maternal-care-agent/internal/adapter/telegram"
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
	if cfg.TelegramToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to build services")
	}
	defer a.Close(context.Background())

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.WithError(err).Fatal("failed to init telegram bot")
	}
	log.WithField("username", api.Self.UserName).Info("authorized on telegram")

	bot := telegram.NewBot(api, cfg, a.Chat, a.Triage, log)
	if err := bot.Run(ctx, api); err != nil {
		if ctx.Err() != nil {
			log.WithError(err).Info("shutdown")
			return
		}
		log.WithError(err).Error("bot stopped with error")
	}
}
