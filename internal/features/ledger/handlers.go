// Package ledger - handlers.go обрабатывает команды:
// !очки (баланс), !топ (лидерборд), !история (последние события).
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"

	"melbot/internal/common"
	"melbot/internal/features/members"
)

const historyLimit = 10

// Handler обрабатывает команды баланса.
type Handler struct {
	service       *Service
	memberService *members.Service // для !очки @username
	bot           *telego.Bot
	loc           *time.Location
}

// NewHandler создаёт обработчик команд баланса.
func NewHandler(service *Service, memberService *members.Service, bot *telego.Bot, loc *time.Location) *Handler {
	return &Handler{
		service:       service,
		memberService: memberService,
		bot:           bot,
		loc:           loc,
	}
}

// HandlePoints показывает баланс автора или @username из аргумента.
//
//	💰 Баланс: 150 очков
func (h *Handler) HandlePoints(ctx context.Context, chatID, userID int64, args []string) {
	target := common.UserKey(userID)
	title := "💰 Баланс"

	if len(args) > 0 {
		username := strings.TrimPrefix(args[0], "@")
		member, err := h.memberService.GetByUsername(ctx, username)
		if err != nil {
			if errors.Is(err, common.ErrUserNotFound) {
				h.sendMessage(ctx, chatID, "❌ Пользователь не найден")
				return
			}
			log.WithError(err).Error("Ошибка поиска участника")
			h.sendMessage(ctx, chatID, "❌ Ошибка получения баланса")
			return
		}
		target = member.UserID
		title = "💰 Баланс " + member.DisplayName()
	}

	balance, err := h.service.TotalBalance(ctx, target)
	if err != nil {
		log.WithError(err).WithField("user_id", target).Error("Ошибка получения баланса")
		h.sendMessage(ctx, chatID, "❌ Ошибка получения баланса")
		return
	}

	h.sendMessage(ctx, chatID, fmt.Sprintf("%s: %s", title, common.FormatBalance(balance)))
}

// HandleLeaderboard показывает топ по балансу.
func (h *Handler) HandleLeaderboard(ctx context.Context, chatID int64) {
	standings, err := h.service.Leaderboard(ctx, 0)
	if err != nil {
		log.WithError(err).Error("Ошибка получения лидерборда")
		h.sendMessage(ctx, chatID, "❌ Ошибка получения лидерборда")
		return
	}
	if len(standings) == 0 {
		h.sendMessage(ctx, chatID, "🏆 Пока никто ничего не заработал")
		return
	}

	var sb strings.Builder
	sb.WriteString("🏆 Топ по очкам:\n\n")
	for i, s := range standings {
		medal := fmt.Sprintf("%d.", i+1)
		switch i {
		case 0:
			medal = "🥇"
		case 1:
			medal = "🥈"
		case 2:
			medal = "🥉"
		}
		sb.WriteString(fmt.Sprintf("%s %s — %s\n", medal, s.DisplayName(), common.FormatBalance(s.Total)))
	}
	h.sendMessage(ctx, chatID, sb.String())
}

// HandleHistory показывает последние несвёрнутые события автора.
func (h *Handler) HandleHistory(ctx context.Context, chatID, userID int64) {
	events, err := h.service.History(ctx, common.UserKey(userID), historyLimit)
	if err != nil {
		log.WithError(err).Error("Ошибка получения истории")
		h.sendMessage(ctx, chatID, "❌ Ошибка получения истории")
		return
	}
	if len(events) == 0 {
		h.sendMessage(ctx, chatID, "📋 За последние сутки движений нет")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 Последние %d событий:\n\n", len(events)))
	for i, e := range events {
		sb.WriteString(fmt.Sprintf("%d. %s | %s | %s\n",
			i+1,
			common.FormatDateTime(time.Unix(e.Timestamp, 0), h.loc),
			common.FormatPointsAmount(e.Delta),
			e.Reason,
		))
	}
	h.sendMessage(ctx, chatID, sb.String())
}

func (h *Handler) sendMessage(ctx context.Context, chatID int64, text string) {
	if _, err := h.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
