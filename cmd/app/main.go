// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"telegram-phone-sales/internal/application"
	"telegram-phone-sales/internal/config"
	"telegram-phone-sales/internal/domain/catalog"
	"telegram-phone-sales/internal/domain/ports/adapter"
	"telegram-phone-sales/internal/domain/ports/repository"
	aiAdapters "telegram-phone-sales/internal/infra/adapters/ai"
	orderAdapters "telegram-phone-sales/internal/infra/adapters/order"
	tele "telegram-phone-sales/internal/infra/adapters/telegram"
	"telegram-phone-sales/internal/infra/api"
	pg "telegram-phone-sales/internal/infra/db/postgres"
	"telegram-phone-sales/internal/infra/i18n"
	"telegram-phone-sales/internal/infra/logging"
	"telegram-phone-sales/internal/infra/memory"
	"telegram-phone-sales/internal/infra/metrics"
	red "telegram-phone-sales/internal/infra/redis"
	"telegram-phone-sales/internal/infra/sched"
	"telegram-phone-sales/internal/infra/worker"
	"telegram-phone-sales/internal/usecase"
)

// Set with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("bot stopped")
	}
	logger.Info().Msg("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) error {
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("dev mode enabled")
	}

	tr, err := i18n.NewTranslator(i18n.LocalesFS, "ru")
	if err != nil {
		return fmt.Errorf("i18n: %w", err)
	}

	// ---- Order journal: Postgres when configured, in-memory otherwise ----
	var (
		journal repository.OrderRepository
		tm      repository.TransactionManager
	)
	if cfg.Database.URL != "" {
		pool, err := openPostgres(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		journal = pg.NewOrderRepo(pool)
		tm = pg.NewTxManager(pool)
		go pg.ReportPoolStats(ctx, pool, 15*time.Second)
	} else {
		logger.Warn().Msg("database.url not set; order journal is kept in memory")
		journal = memory.NewOrderJournal(logger)
	}

	// ---- Redis rate limiting (optional) ----
	var limiter tele.RateLimiter
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer redisClient.Close()
		limiter = red.NewRateLimiter(redisClient)
	}

	// ---- Text generator: gateway -> Gemini -> OpenAI ----
	ai, primaryModel, err := buildAI(ctx, cfg, tr, logger)
	if err != nil {
		return err
	}

	// ---- Order endpoint ----
	submitter, err := orderAdapters.NewHTTPSubmitter(cfg.Order.Endpoint, cfg.Order.Timeout, logger)
	if err != nil {
		return fmt.Errorf("order submitter: %w", err)
	}
	defer submitter.Close()

	// ---- Use cases + facade ----
	store := memory.NewDialogStateStore()
	dialogUC := usecase.NewDialogUseCase(store, logger)
	assistantUC := usecase.NewAssistantUseCase(ai, primaryModel, tr.T("system_prompt", catalog.BrandNames()), cfg.AI.MaxPromptTokens, logger)
	orderUC := usecase.NewOrderUseCase(submitter, journal, tm, usecase.OrderSettings{
		PlatformID: cfg.Order.PlatformID,
		RoleID:     cfg.Order.RoleID,
		Timeout:    cfg.Order.Timeout,
		Dev:        cfg.Runtime.Dev,
	}, logger)
	facade := application.NewBotFacade(dialogUC, assistantUC, orderUC, tr, logger)

	sweeper := sched.NewDialogSweeper(cfg.Bot.SweepInterval, cfg.Bot.SessionTTL, store, orderUC, logger)
	go func() { _ = sweeper.Run(ctx) }()

	// ---- Admin HTTP ----
	adminSrv := api.NewServer(orderUC, api.NewAuthManager(cfg.Security.AdminJWTSecret), logger)
	go func() {
		if err := adminSrv.Start(cfg.Admin.Port); err != nil {
			logger.Error().Err(err).Msg("admin http server stopped")
		}
	}()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = adminSrv.Shutdown(sctx)
	}()

	// ---- Telegram ----
	if cfg.Console() {
		logger.Info().Msg("console mode: reading messages from stdin")
		return tele.RunConsole(ctx, os.Stdin, tele.ConsoleOptions{
			Conversation: facade,
			Translator:   tr,
			Out:          tele.NewNoopBotAdapter(os.Stdout, logger),
			UserID:       1,
			Logger:       logger,
		})
	}

	bot, err := tele.NewRealTelegramBotAdapter(&cfg.Bot, tele.Options{
		Conversation: facade,
		Translator:   tr,
		Limiter:      limiter,
		RateLimit:    cfg.Redis.RateLimit,
		RateWindow:   cfg.Redis.RateWindow,
		Pool:         worker.NewKeyedPool(cfg.Bot.Workers, cfg.Bot.QueueSize, logger),
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	logger.Info().Int("workers", cfg.Bot.Workers).Msg("polling started")
	return bot.StartPolling(ctx)
}

func openPostgres(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	if err := pg.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

const maxReplyTokens = 512

// buildAI assembles the configured providers in priority order behind one adapter.
func buildAI(ctx context.Context, cfg *config.Config, tr *i18n.Translator, logger *zerolog.Logger) (adapter.AIServiceAdapter, string, error) {
	var providers []aiAdapters.Provider

	if config.KeySet(cfg.AI.GatewayKey) {
		gw, err := aiAdapters.NewOpenAIAdapter(aiAdapters.OpenAIOptions{
			Name:    "gateway",
			APIKey:  cfg.AI.GatewayKey,
			BaseURL: cfg.AI.GatewayBaseURL,
			Model:   cfg.AI.DefaultModel,
			MaxOut:  maxReplyTokens,
			Timeout: cfg.AI.Timeout,
		})
		if err != nil {
			return nil, "", fmt.Errorf("gateway adapter: %w", err)
		}
		providers = append(providers, aiAdapters.Provider{Adapter: gw, Model: cfg.AI.DefaultModel})
	}
	if config.KeySet(cfg.AI.GeminiKey) {
		gm, err := aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, "", cfg.AI.GeminiModel, maxReplyTokens)
		if err != nil {
			return nil, "", fmt.Errorf("gemini adapter: %w", err)
		}
		providers = append(providers, aiAdapters.Provider{Adapter: gm, Model: cfg.AI.GeminiModel})
	}
	if config.KeySet(cfg.AI.OpenAIKey) {
		oa, err := aiAdapters.NewOpenAIAdapter(aiAdapters.OpenAIOptions{
			APIKey:  cfg.AI.OpenAIKey,
			BaseURL: cfg.AI.OpenAIBaseURL,
			Model:   cfg.AI.DefaultModel,
			MaxOut:  maxReplyTokens,
			Timeout: cfg.AI.Timeout,
		})
		if err != nil {
			return nil, "", fmt.Errorf("openai adapter: %w", err)
		}
		providers = append(providers, aiAdapters.Provider{Adapter: oa, Model: cfg.AI.DefaultModel})
	}

	if len(providers) == 0 {
		// only reachable in dev mode; Validate requires a provider otherwise
		logger.Warn().Msg("no AI provider configured; using canned replies")
		return aiAdapters.NewNoopAIAdapter(tr.T("fallback_prompt", catalog.BrandNames()), logger), "noop", nil
	}

	chain, err := aiAdapters.NewFallbackAdapter(logger, providers...)
	if err != nil {
		return nil, "", err
	}
	logger.Info().Str("providers", chain.Name()).Msg("text generator ready")
	return aiAdapters.NewLimitedAI(chain, cfg.AI.ConcurrentLimit), chain.PrimaryModel(), nil
}
