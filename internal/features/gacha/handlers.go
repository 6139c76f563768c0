// Package gacha - handlers.go: !гача [N|max], !гарант.
package gacha

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

const maxPullsPerCommand = 100

type Handler struct {
	service *Service
	bot     *telego.Bot
}

func NewHandler(service *Service, bot *telego.Bot) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandlePull крутит гачу. Ссылки на награды уходят в личку.
func (h *Handler) HandlePull(ctx context.Context, chatID, userID int64, args []string) {
	key := common.UserKey(userID)
	amount := 1
	if len(args) > 0 {
		if strings.EqualFold(args[0], "max") || args[0] == "макс" {
			n, err := h.service.MaxPulls(ctx, key)
			if err != nil {
				log.WithError(err).Error("Ошибка получения баланса")
				h.sendMessage(ctx, chatID, "❌ Ошибка получения баланса")
				return
			}
			amount = n
		} else {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				h.sendMessage(ctx, chatID, "Использование: !гача [количество|max]")
				return
			}
			amount = n
		}
	}
	if amount > maxPullsPerCommand {
		amount = maxPullsPerCommand
	}

	price := h.service.Rates().Price
	if amount <= 0 {
		h.sendMessage(ctx, chatID, fmt.Sprintf("❌ Крутка стоит %s", common.FormatBalance(price)))
		return
	}

	result, err := h.service.Pull(ctx, key, amount)
	switch {
	case errors.Is(err, common.ErrInsufficientFunds):
		h.sendMessage(ctx, chatID, fmt.Sprintf("❌ Не хватает очков: %d %s стоят %s",
			amount, common.PluralizePulls(int64(amount)), common.FormatBalance(price*int64(amount))))
		return
	case err != nil:
		log.WithError(err).Error("Ошибка крутки гачи")
		h.sendMessage(ctx, chatID, "❌ Гача временно недоступна")
		return
	}

	h.sendMessage(ctx, chatID, FormatResult(result))

	var links []string
	for _, r := range result.Rewards {
		if r.Link != "" && r.Rarity >= FourStar {
			links = append(links, fmt.Sprintf("%s %s: %s", stars(r.Rarity), r.Name, r.Link))
		}
	}
	if len(links) > 0 {
		h.sendMessage(ctx, userID, "🎁 Ваши награды:\n"+strings.Join(links, "\n"))
	}
}

// HandlePity показывает счётчики гаранта.
func (h *Handler) HandlePity(ctx context.Context, chatID, userID int64) {
	p, err := h.service.PityInfo(ctx, common.UserKey(userID))
	if err != nil {
		log.WithError(err).Error("Ошибка подсчёта гаранта")
		h.sendMessage(ctx, chatID, "❌ Ошибка подсчёта гаранта")
		return
	}
	rates := h.service.Rates()
	h.sendMessage(ctx, chatID, fmt.Sprintf(
		"🎯 Гарант\n5★: %d из %d (шанс сейчас %.1f%%)\n4★: %d из %d",
		p.SinceFive, rates.HardPity, rates.FiveStarChance(p.SinceFive)*100,
		p.SinceFour, rates.FourStarPity,
	))
}

// FormatResult - сводка серии круток.
func FormatResult(r *PullResult) string {
	counts := map[int]int{}
	for _, rw := range r.Rewards {
		counts[rw.Rarity]++
	}
	n := int64(len(r.Rewards))

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🎰 %d %s\n", n, common.PluralizePulls(n)))
	for _, rarity := range []int{FiveStar, FourStar, ThreeStar} {
		if counts[rarity] > 0 {
			sb.WriteString(fmt.Sprintf("%s × %d\n", stars(rarity), counts[rarity]))
		}
	}
	sb.WriteString(fmt.Sprintf("Лучшая: %s %s\n💰 Баланс: %s", stars(r.Best.Rarity), r.Best.Name, common.FormatBalance(r.Balance)))
	return sb.String()
}

func stars(rarity int) string {
	return strings.Repeat("⭐", rarity)
}

func (h *Handler) sendMessage(ctx context.Context, chatID int64, text string) {
	if _, err := h.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
