// Package gamble - handlers.go: !ставка <N|all|half|max>.
package gamble

import (
	"context"
	"errors"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"

	"melbot/internal/common"
)

type Handler struct {
	service *Service
	bot     *telego.Bot
}

func NewHandler(service *Service, bot *telego.Bot) *Handler {
	return &Handler{service: service, bot: bot}
}

func (h *Handler) HandleGamble(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) == 0 {
		h.sendMessage(ctx, chatID, "Использование: !ставка <число|all|half|max>")
		return
	}

	res, err := h.service.Gamble(ctx, common.UserKey(userID), args[0])
	switch {
	case errors.Is(err, common.ErrInvalidAmount):
		h.sendMessage(ctx, chatID, "❌ Ставка должна быть положительным числом, all, half или max")
		return
	case errors.Is(err, common.ErrInsufficientFunds):
		h.sendMessage(ctx, chatID, "❌ Недостаточно очков")
		return
	case errors.Is(err, common.ErrInvalidBet):
		h.sendMessage(ctx, chatID, fmt.Sprintf("❌ Ставка не больше %s", common.FormatBalance(h.service.Limit())))
		return
	case err != nil:
		log.WithError(err).Error("Ошибка ставки")
		h.sendMessage(ctx, chatID, "❌ Ставка не прошла, попробуйте позже")
		return
	}

	if res.Won {
		h.sendMessage(ctx, chatID, fmt.Sprintf("🎲 Победа! %s\n💰 Баланс: %s",
			common.FormatPointsAmount(res.Delta), common.FormatBalance(res.Balance)))
		return
	}
	h.sendMessage(ctx, chatID, fmt.Sprintf("🎲 Проигрыш: %s\n💰 Баланс: %s",
		common.FormatPointsAmount(res.Delta), common.FormatBalance(res.Balance)))
}

func (h *Handler) sendMessage(ctx context.Context, chatID int64, text string) {
	if _, err := h.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
