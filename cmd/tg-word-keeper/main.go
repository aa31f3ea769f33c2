package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/smith3v/tg-word-keeper/pkg/bot/broadcast"
	"github.com/smith3v/tg-word-keeper/pkg/bot/handlers"
	"github.com/smith3v/tg-word-keeper/pkg/bot/pending"
	"github.com/smith3v/tg-word-keeper/pkg/config"
	"github.com/smith3v/tg-word-keeper/pkg/db"
	"github.com/smith3v/tg-word-keeper/pkg/explain"
	"github.com/smith3v/tg-word-keeper/pkg/health"
	"github.com/smith3v/tg-word-keeper/pkg/logger"
)

const defaultConfigFile = "config.json"

func main() {
	if err := run(); err != nil {
		logger.Error("bot stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadConfig(configFile()); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := config.AppConfig
	if err := logger.Configure(logger.Options{
		Level:  cfg.Logging.Level,
		File:   cfg.Logging.File,
		Format: cfg.Logging.Format,
	}); err != nil {
		logger.Error("failed to configure logger", "error", err)
	}
	defer logger.Close()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if !logger.Enabled(logger.DEBUG) {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	explainer := explain.NewGeminiClient(cfg.Gemini.APIKey, explain.WithModel(cfg.Gemini.Model))
	offers := pending.NewStore(pending.DefaultTTL, nil)
	h := handlers.New(store, explainer, offers)

	b, err := bot.New(cfg.Telegram.Token, bot.WithDefaultHandler(h.DefaultHandler))
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}
	h.Register(b)
	if _, err := b.SetMyCommands(ctx, &bot.SetMyCommandsParams{Commands: handlers.Commands()}); err != nil {
		logger.Warn("failed to publish bot commands", "error", err)
	}

	scheduler, err := broadcast.NewScheduler(
		broadcast.NewJob(store, explainer, offers, b, cfg.Broadcast.Pause),
		cfg.Broadcast.Schedule,
	)
	if err != nil {
		return fmt.Errorf("broadcast schedule: %w", err)
	}

	webhookPath := "/" + cfg.Telegram.Token
	var router *gin.Engine
	if cfg.WebhookMode() {
		router = health.NewRouter(store, webhookPath, b.WebhookHandler())
	} else {
		router = health.NewRouter(store, webhookPath, nil)
	}
	server := health.NewServer(fmt.Sprintf(":%d", cfg.HTTP.Port), router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	g.Go(func() error {
		return scheduler.Run(gctx)
	})
	g.Go(func() error {
		offers.StartSweeper(gctx, pending.SweeperInterval)
		return nil
	})
	g.Go(func() error {
		return runBot(gctx, b, cfg)
	})

	logger.Info("bot started", "dialect", store.Dialect(), "webhook", cfg.WebhookMode())
	return g.Wait()
}

// runBot receives updates until ctx is cancelled, through the webhook when
// one is configured and by long polling otherwise.
func runBot(ctx context.Context, b *bot.Bot, cfg config.Config) error {
	if !cfg.WebhookMode() {
		if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{}); err != nil {
			logger.Warn("failed to delete webhook", "error", err)
		}
		logger.Info("starting long polling")
		b.Start(ctx)
		return nil
	}

	url := strings.TrimRight(cfg.Telegram.WebhookURL, "/") + "/" + cfg.Telegram.Token
	if _, err := b.SetWebhook(ctx, &bot.SetWebhookParams{URL: url}); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	logger.Info("webhook registered")
	b.StartWebhook(ctx)
	return nil
}

func configFile() string {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile
	}
	return ""
}
