// Package app инициализирует все компоненты приложения.
// app.go - точка сборки: создаёт БД-пул, каталог файлов, сервисы, обработчики,
// фильтры и собирает всё в один объект Bot.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mymmrac/telego"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"melbot/internal/assets"
	"melbot/internal/bot"
	"melbot/internal/bot/filters"
	"melbot/internal/config"
	"melbot/internal/db/postgres"
	"melbot/internal/features/activity"
	"melbot/internal/features/admin"
	"melbot/internal/features/blackjack"
	"melbot/internal/features/gacha"
	"melbot/internal/features/gamble"
	"melbot/internal/features/ledger"
	"melbot/internal/features/members"
	"melbot/internal/features/shop"
	"melbot/internal/jobs"
	"melbot/internal/server"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	Server    *server.Server // nil, если HTTP_ADDR пуст
	DB        *pgxpool.Pool
	BotAPI    *telego.Bot

	redis    *redis.Client
	throttle *activity.Throttle
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен - компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Telegram Bot API ===
	var botOpts []telego.BotOption
	if cfg.AppEnv == "development" {
		botOpts = append(botOpts, telego.WithDefaultDebugLogger())
	}
	botAPI, err := telego.NewBot(cfg.TelegramBotToken, botOpts...)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	me, err := botAPI.GetMe(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка авторизации в Telegram: %w", err)
	}
	log.Infof("Авторизован как @%s", me.Username)
	gateway := bot.NewGateway(botAPI)

	// === 3. Каталог файлов ===
	dir, rdb, err := newAssetDirectory(ctx, cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	// === 4. Репозитории ===
	memberRepo := members.NewRepository(pool)
	ledgerRepo := ledger.NewRepository(pool)
	shopRepo := shop.NewRepository(pool)
	gachaRepo := gacha.NewRepository(pool)
	adminRepo := admin.NewRepository(pool)

	// === 5. Сервисы ===
	memberService := members.NewService(memberRepo)
	ledgerService := ledger.NewService(ledgerRepo, cfg)
	aggregator := ledger.NewAggregator(ledgerRepo, cfg.LedgerAggregationLag)
	throttle := activity.NewThrottle(cfg.EconomyMessageCooldown)
	activityService := activity.NewService(ledgerService, throttle, cfg)
	shopService := shop.NewService(shopRepo, ledgerService, dir)
	gambleService := gamble.NewService(ledgerService, cfg)
	gachaService := gacha.NewService(gachaRepo, ledgerService, dir, gacha.RatesFromConfig(cfg))
	adminService := admin.NewService(adminRepo, ledgerService, cfg)
	blackjackService, err := blackjack.NewService(ledgerService, cfg, gateway.Notify)
	if err != nil {
		throttle.Close()
		pool.Close()
		return nil, err
	}

	// === 6. Обработчики ===
	shopHandler := shop.NewHandler(shopService, botAPI)
	handlers := bot.Handlers{
		Members:   members.NewHandler(memberService),
		Ledger:    ledger.NewHandler(ledgerService, memberService, botAPI, cfg.Location()),
		Shop:      shopHandler,
		Gamble:    gamble.NewHandler(gambleService, botAPI),
		Blackjack: blackjack.NewHandler(blackjackService, botAPI),
		Gacha:     gacha.NewHandler(gachaService, botAPI),
		Admin:     admin.NewHandler(adminService, memberService, shopHandler, botAPI),
	}

	// === 7. Фильтры и бот ===
	chatFilter := filters.NewChatFilter(cfg.EconomyChatID, memberService, gateway)
	b := bot.New(botAPI, cfg, gateway, chatFilter, memberService, activityService, handlers)

	// === 8. Планировщик задач ===
	scheduler := jobs.NewScheduler(aggregator, blackjackService, jobs.Schedule{
		Aggregation: cfg.LedgerAggregationSchedule,
		Sweep:       cfg.BlackjackSweepSchedule,
	}, cfg.Location())

	// === 9. Служебный HTTP ===
	var srv *server.Server
	if cfg.HTTPAddr != "" {
		srv = server.New(cfg.HTTPAddr, pool)
	}

	return &App{
		Bot:       b,
		Scheduler: scheduler,
		Server:    srv,
		DB:        pool,
		BotAPI:    botAPI,
		redis:     rdb,
		throttle:  throttle,
	}, nil
}

// newAssetDirectory выбирает каталог: Google Drive (с кэшем в Redis, если задан
// REDIS_ADDR) или пустой каталог в памяти.
func newAssetDirectory(ctx context.Context, cfg *config.Config) (assets.Directory, *redis.Client, error) {
	if cfg.GDriveFolderID == "" || cfg.GoogleServiceAccount == "" {
		log.Warn("Google Drive не настроен, награды и товары будут без файлов")
		return assets.NewStatic(), nil, nil
	}

	driveDir, err := assets.NewDriveDirectory(ctx, cfg.GoogleServiceAccount, cfg.GDriveFolderID)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка подключения к Google Drive: %w", err)
	}
	if cfg.RedisAddr == "" {
		return driveDir, nil, nil
	}

	rdb, err := assets.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.WithError(err).Warn("Redis недоступен, листинг Drive без кэша")
		return driveDir, nil, nil
	}
	log.WithField("ttl", cfg.AssetCacheTTL).Info("Листинг Drive кэшируется в Redis")
	return assets.NewCachedDirectory(driveDir, rdb, cfg.AssetCacheTTL), rdb, nil
}

// Close освобождает ресурсы после остановки бота и планировщика.
func (a *App) Close() {
	a.Bot.Close()
	a.throttle.Close()
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.WithError(err).Warn("Ошибка закрытия Redis")
		}
	}
	a.DB.Close()
}
