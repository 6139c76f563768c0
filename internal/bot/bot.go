// Package bot - приём апдейтов Telegram и маршрутизация команд.
// bot.go запускает long polling, ограничивает параллелизм и вызывает обработчики фич.
package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"

	"melbot/internal/bot/filters"
	"melbot/internal/bot/middleware"
	"melbot/internal/config"
	"melbot/internal/features/activity"
	"melbot/internal/features/admin"
	"melbot/internal/features/blackjack"
	"melbot/internal/features/gacha"
	"melbot/internal/features/gamble"
	"melbot/internal/features/ledger"
	"melbot/internal/features/members"
	"melbot/internal/features/shop"
	"melbot/internal/metrics"
)

// Handlers - обработчики фич, которые вызывает роутер.
type Handlers struct {
	Members   *members.Handler
	Ledger    *ledger.Handler
	Shop      *shop.Handler
	Gamble    *gamble.Handler
	Blackjack *blackjack.Handler
	Gacha     *gacha.Handler
	Admin     *admin.Handler
}

// Bot - главная структура бота, объединяющая все компоненты.
type Bot struct {
	api     *telego.Bot
	cfg     *config.Config
	gateway *Gateway

	chatFilter  *filters.ChatFilter
	rateLimiter *middleware.RateLimiter

	handlers        Handlers
	memberService   *members.Service
	activityService *activity.Service

	parser *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
	wg       sync.WaitGroup
}

// New создаёт бота со всеми зависимостями.
func New(
	api *telego.Bot,
	cfg *config.Config,
	gateway *Gateway,
	chatFilter *filters.ChatFilter,
	memberService *members.Service,
	activityService *activity.Service,
	handlers Handlers,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:             api,
		cfg:             cfg,
		gateway:         gateway,
		chatFilter:      chatFilter,
		rateLimiter:     middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		handlers:        handlers,
		memberService:   memberService,
		activityService: activityService,
		parser:          NewCommandParser(),
		inflight:        make(chan struct{}, maxInFlight),
	}
}

// Start принимает апдейты, пока не отменён ctx. Перед выходом дожидается
// обработчиков, которые уже запущены.
func (b *Bot) Start(ctx context.Context) error {
	updates, err := b.api.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout:        b.cfg.BotUpdateTimeoutSeconds,
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		return fmt.Errorf("ошибка запуска long polling: %w", err)
	}

	log.WithFields(log.Fields{
		"max_inflight": cap(b.inflight),
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			return nil

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return nil
			}

			// лимит параллелизма
			select {
			case b.inflight <- struct{}{}:
			case <-ctx.Done():
				return nil
			}
			b.wg.Add(1)
			go func(upd telego.Update) {
				defer b.wg.Done()
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// Close освобождает фоновые ресурсы бота.
func (b *Bot) Close() {
	b.rateLimiter.Close()
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update telego.Update) {
	defer middleware.RecoverFromPanic(update.UpdateID)

	message := update.Message
	if message == nil {
		return
	}
	inEconomyChat := message.Chat.ID == b.cfg.EconomyChatID

	// Вступление и выход - только события экономического чата
	if len(message.NewChatMembers) > 0 || message.LeftChatMember != nil {
		if inEconomyChat {
			b.handlers.Members.HandleNewChatMembers(ctx, message.NewChatMembers)
			b.handlers.Members.HandleLeftChatMember(ctx, message.LeftChatMember)
		}
		return
	}

	if message.Text == "" || message.From == nil || message.From.IsBot {
		return
	}
	middleware.LogMessage(message)

	// Проверяем доступ (экономический чат или личка участника)
	if !b.chatFilter.CheckAccess(ctx, message) {
		return
	}

	userID := message.From.ID
	if inEconomyChat {
		if err := b.memberService.EnsureMember(ctx, userID,
			message.From.Username, message.From.FirstName, message.From.LastName,
		); err != nil {
			log.WithError(err).WithField("user_id", userID).Warn("EnsureMember failed")
		}
	}

	cmd, args, isCommand := b.parser.ParseCommand(message.Text)
	if !isCommand {
		// Обычное сообщение в чате - очки за активность
		if inEconomyChat {
			b.activityService.OnMessage(ctx, userID)
		}
		return
	}

	if !b.rateLimiter.Allow(userID) {
		log.WithField("user_id", userID).Debug("rate limited")
		return
	}
	b.routeCommand(ctx, message, cmd, args)
}

// routeCommand маршрутизирует команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, message *telego.Message, cmd string, args []string) {
	name, ok := canonical(cmd)
	if !ok {
		return
	}
	metrics.Commands.WithLabelValues(name).Inc()

	chatID := message.Chat.ID
	userID := message.From.ID
	private := message.Chat.Type == telego.ChatTypePrivate
	h := b.handlers

	log.WithFields(log.Fields{
		"cmd":  name,
		"args": args,
	}).Debug("routing command")

	switch name {
	case cmdHelp:
		b.gateway.Send(ctx, chatID, helpText)

	case cmdPoints:
		h.Ledger.HandlePoints(ctx, chatID, userID, args)
	case cmdLeaderboard:
		h.Ledger.HandleLeaderboard(ctx, chatID)
	case cmdHistory:
		h.Ledger.HandleHistory(ctx, chatID, userID)

	case cmdShop:
		if b.enabled(ctx, chatID, b.cfg.FeatureShopEnabled, "🛒 Магазин") {
			h.Shop.HandleShop(ctx, chatID)
		}
	case cmdBuy:
		if b.enabled(ctx, chatID, b.cfg.FeatureShopEnabled, "🛒 Магазин") {
			h.Shop.HandleBuy(ctx, chatID, userID, args)
		}

	case cmdGamble:
		if b.enabled(ctx, chatID, b.cfg.FeatureGambleEnabled, "🎲 Ставки") {
			h.Gamble.HandleGamble(ctx, chatID, userID, args)
		}

	case cmdBlackjack:
		if b.enabled(ctx, chatID, b.cfg.FeatureBlackjackEnabled, "🃏 Блэкджек") {
			h.Blackjack.HandleStart(ctx, chatID, userID, args)
		}
	case cmdHit:
		if b.enabled(ctx, chatID, b.cfg.FeatureBlackjackEnabled, "🃏 Блэкджек") {
			h.Blackjack.HandleHit(ctx, chatID, userID)
		}
	case cmdStand:
		if b.enabled(ctx, chatID, b.cfg.FeatureBlackjackEnabled, "🃏 Блэкджек") {
			h.Blackjack.HandleStand(ctx, chatID, userID)
		}

	case cmdGacha:
		if b.enabled(ctx, chatID, b.cfg.FeatureGachaEnabled, "🎰 Гача") {
			h.Gacha.HandlePull(ctx, chatID, userID, args)
		}
	case cmdPity:
		if b.enabled(ctx, chatID, b.cfg.FeatureGachaEnabled, "🎰 Гача") {
			h.Gacha.HandlePity(ctx, chatID, userID)
		}

	case cmdLogin:
		h.Admin.HandleLogin(ctx, chatID, userID, private, args)
	case cmdLogout:
		h.Admin.HandleLogout(ctx, chatID, userID)
	case cmdAddItem:
		h.Admin.HandleAddItem(ctx, chatID, userID, strings.Join(args, " "))
	case cmdRemoveItem:
		h.Admin.HandleRemoveItem(ctx, chatID, userID, strings.Join(args, " "))
	case cmdAdd:
		h.Admin.HandleAdjust(ctx, chatID, userID, args, true)
	case cmdRemove:
		h.Admin.HandleAdjust(ctx, chatID, userID, args, false)
	}
}

// enabled сообщает о выключенной фиче и возвращает флаг.
func (b *Bot) enabled(ctx context.Context, chatID int64, flag bool, feature string) bool {
	if !flag {
		b.gateway.Send(ctx, chatID, feature+" временно отключен(а)")
	}
	return flag
}
