package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/segyhp/fatura-engine/internal/app"
	"github.com/segyhp/fatura-engine/internal/bot"
	"github.com/segyhp/fatura-engine/internal/config"
	"github.com/segyhp/fatura-engine/internal/logging"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Bot.Token == "" {
		log.Fatal("BOT_TOKEN is required")
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ledger, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "failed to initialize ledger", "error", err)
		os.Exit(1)
	}
	defer ledger.Close()

	botAPI, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		logger.Error(ctx, "bot init failed", "error", err)
		os.Exit(1)
	}
	botAPI.Debug = cfg.IsDevelopment() && cfg.Logging.Level == "debug"

	h := bot.NewHandler(botAPI, ledger.Billing, cfg.Bot.AdminID, cfg.Bot.MessageMaxChars, logger.With("component", "bot"))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = cfg.Bot.PollTimeout
	updates := botAPI.GetUpdatesChan(u)

	logger.Info(ctx, "bot started", "username", botAPI.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			botAPI.StopReceivingUpdates()
			logger.Info(context.Background(), "bot stopped")
			return
		case upd := <-updates:
			h.HandleUpdate(ctx, upd)
		}
	}
}
