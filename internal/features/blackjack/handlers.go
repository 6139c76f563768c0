// Package blackjack - handlers.go: !блэкджек <ставка>, !еще, !хватит.
package blackjack

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

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

// HandleStart начинает партию.
func (h *Handler) HandleStart(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) == 0 {
		h.sendMessage(ctx, chatID, fmt.Sprintf("Использование: !блэкджек <ставка от %d до %d>",
			h.service.minBet, h.service.maxBet))
		return
	}
	bet, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.sendMessage(ctx, chatID, "❌ Ставка должна быть числом")
		return
	}

	round, err := h.service.Start(ctx, common.UserKey(userID), chatID, bet)
	switch {
	case errors.Is(err, common.ErrAlreadyPlaying):
		h.sendMessage(ctx, chatID, "❌ Сначала доиграйте текущую партию: !еще или !хватит")
		return
	case errors.Is(err, common.ErrInsufficientFunds):
		h.sendMessage(ctx, chatID, "❌ Недостаточно очков для такой ставки")
		return
	case errors.Is(err, common.ErrInvalidBet):
		h.sendMessage(ctx, chatID, fmt.Sprintf("❌ Ставка должна быть от %d до %d", h.service.minBet, h.service.maxBet))
		return
	case err != nil:
		log.WithError(err).Error("Ошибка старта блэкджека")
		h.sendMessage(ctx, chatID, "❌ Не удалось начать партию")
		return
	}
	h.sendMessage(ctx, chatID, FormatRound(round))
}

// HandleHit добирает карту.
func (h *Handler) HandleHit(ctx context.Context, chatID, userID int64) {
	round, err := h.service.Hit(ctx, common.UserKey(userID))
	h.reply(ctx, chatID, round, err)
}

// HandleStand завершает добор.
func (h *Handler) HandleStand(ctx context.Context, chatID, userID int64) {
	round, err := h.service.Stand(ctx, common.UserKey(userID))
	h.reply(ctx, chatID, round, err)
}

func (h *Handler) reply(ctx context.Context, chatID int64, round *Round, err error) {
	switch {
	case errors.Is(err, common.ErrNoActiveSession):
		h.sendMessage(ctx, chatID, "❌ Нет активной партии. Начните: !блэкджек <ставка>")
	case err != nil:
		log.WithError(err).Error("Ошибка хода в блэкджеке")
		h.sendMessage(ctx, chatID, "❌ Ошибка, попробуйте ещё раз")
	default:
		h.sendMessage(ctx, chatID, FormatRound(round))
	}
}

// FormatRound рисует стол. Пока партия идёт, вторая карта дилера закрыта.
func FormatRound(r *Round) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🃏 Ставка: %s\n", common.FormatBalance(r.Bet)))
	sb.WriteString(fmt.Sprintf("Вы: %s (%d)\n", formatHand(r.Player), r.PlayerScore))

	if !r.Done() && len(r.Dealer) > 0 {
		sb.WriteString(fmt.Sprintf("Дилер: %s 🂠\n", r.Dealer[0]))
		sb.WriteString("\n!еще — взять карту, !хватит — остановиться")
		return sb.String()
	}
	sb.WriteString(fmt.Sprintf("Дилер: %s (%d)\n\n", formatHand(r.Dealer), r.DealerScore))

	switch r.Outcome {
	case OutcomeWin:
		sb.WriteString(fmt.Sprintf("🎉 Победа! %s\n💰 Баланс: %s",
			common.FormatPointsAmount(r.Payout), common.FormatBalance(r.Balance)))
	case OutcomeBust:
		sb.WriteString("💥 Перебор, ставка проиграна")
	default:
		sb.WriteString("😔 Дилер выиграл, ставка проиграна")
	}
	return sb.String()
}

func formatHand(hand []Card) string {
	parts := make([]string, len(hand))
	for i, c := range hand {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

func (h *Handler) sendMessage(ctx context.Context, chatID int64, text string) {
	if _, err := h.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
