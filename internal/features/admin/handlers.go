// Package admin - handlers.go: /login, /logout, /add_item, /remove_item, /add, /remove.
// Вход только в личке; остальные команды требуют действующей сессии.
package admin

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
	"melbot/internal/features/members"
	"melbot/internal/features/shop"
)

// Handler обрабатывает админ-команды.
type Handler struct {
	service       *Service
	memberService *members.Service
	shopHandler   *shop.Handler
	bot           *telego.Bot
}

// NewHandler создаёт обработчик админ-команд.
func NewHandler(service *Service, memberService *members.Service, shopHandler *shop.Handler, bot *telego.Bot) *Handler {
	return &Handler{
		service:       service,
		memberService: memberService,
		shopHandler:   shopHandler,
		bot:           bot,
	}
}

// HandleLogin: /login <пароль>, только в личке.
func (h *Handler) HandleLogin(ctx context.Context, chatID, userID int64, private bool, args []string) {
	if !private {
		h.sendMessage(ctx, chatID, "🔐 Вход только в личных сообщениях боту")
		return
	}
	if len(args) == 0 {
		h.sendMessage(ctx, chatID, "Использование: /login <пароль>")
		return
	}

	err := h.service.Login(ctx, userID, strings.Join(args, " "))
	switch {
	case errors.Is(err, common.ErrNotAdmin):
		h.sendMessage(ctx, chatID, "⛔ Нет доступа")
	case errors.Is(err, common.ErrTooManyAttempts):
		h.sendMessage(ctx, chatID, "⛔ Слишком много попыток, подождите час")
	case errors.Is(err, common.ErrWrongPassword):
		h.sendMessage(ctx, chatID, "❌ Неверный пароль")
	case err != nil:
		log.WithError(err).Error("Ошибка входа администратора")
		h.sendMessage(ctx, chatID, "❌ Ошибка входа")
	default:
		h.sendMessage(ctx, chatID, "✅ Аутентификация успешна")
	}
}

// HandleLogout закрывает сессию.
func (h *Handler) HandleLogout(ctx context.Context, chatID, userID int64) {
	if !h.guard(ctx, chatID, userID) {
		return
	}
	if err := h.service.Logout(ctx, userID); err != nil {
		log.WithError(err).Error("Ошибка выхода администратора")
		h.sendMessage(ctx, chatID, "❌ Ошибка выхода")
		return
	}
	h.sendMessage(ctx, chatID, "👋 Сессия закрыта")
}

// HandleAddItem: /add_item название | цена | описание | файл
func (h *Handler) HandleAddItem(ctx context.Context, chatID, userID int64, raw string) {
	if h.guard(ctx, chatID, userID) {
		h.shopHandler.HandleAddItem(ctx, chatID, raw)
	}
}

// HandleRemoveItem: /remove_item <номер или название>
func (h *Handler) HandleRemoveItem(ctx context.Context, chatID, userID int64, raw string) {
	if h.guard(ctx, chatID, userID) {
		h.shopHandler.HandleRemoveItem(ctx, chatID, raw)
	}
}

// HandleAdjust: /add @user N или /remove @user N.
func (h *Handler) HandleAdjust(ctx context.Context, chatID, userID int64, args []string, add bool) {
	if !h.guard(ctx, chatID, userID) {
		return
	}
	if len(args) < 2 {
		h.sendMessage(ctx, chatID, "Использование: /add @username N или /remove @username N")
		return
	}
	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || amount <= 0 {
		h.sendMessage(ctx, chatID, "❌ Сумма должна быть положительным числом")
		return
	}

	target, name, err := h.resolveTarget(ctx, args[0])
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			h.sendMessage(ctx, chatID, "❌ Пользователь не найден")
			return
		}
		log.WithError(err).Error("Ошибка поиска участника")
		h.sendMessage(ctx, chatID, "❌ Ошибка поиска пользователя")
		return
	}

	var balance int64
	if add {
		balance, err = h.service.AddPoints(ctx, userID, target, amount)
	} else {
		balance, err = h.service.RemovePoints(ctx, userID, target, amount)
	}
	switch {
	case errors.Is(err, common.ErrInsufficientFunds):
		h.sendMessage(ctx, chatID, "❌ У пользователя недостаточно очков")
		return
	case err != nil:
		log.WithError(err).Error("Ошибка корректировки баланса")
		h.sendMessage(ctx, chatID, "❌ Баланс не изменён")
		return
	}

	delta := amount
	if !add {
		delta = -amount
	}
	h.sendMessage(ctx, chatID, fmt.Sprintf("✅ %s: %s\n💰 Баланс: %s",
		name, common.FormatPointsAmount(delta), common.FormatBalance(balance)))
}

// resolveTarget принимает @username или числовой Telegram ID.
func (h *Handler) resolveTarget(ctx context.Context, arg string) (userID, name string, err error) {
	if id, convErr := strconv.ParseInt(arg, 10, 64); convErr == nil {
		// ID вне ростера тоже принимаем: баланс мог остаться после выхода из чата
		if member, err := h.memberService.GetByID(ctx, id); err == nil {
			return member.UserID, member.DisplayName(), nil
		}
		return common.UserKey(id), arg, nil
	}
	member, err := h.memberService.GetByUsername(ctx, strings.TrimPrefix(arg, "@"))
	if err != nil {
		return "", "", err
	}
	return member.UserID, member.DisplayName(), nil
}

// guard пропускает только админа с действующей сессией.
func (h *Handler) guard(ctx context.Context, chatID, userID int64) bool {
	err := h.service.Authorize(ctx, userID)
	switch {
	case err == nil:
		return true
	case errors.Is(err, common.ErrNotAdmin):
		h.sendMessage(ctx, chatID, "⛔ Команда только для администраторов")
	case errors.Is(err, common.ErrSessionExpired):
		h.sendMessage(ctx, chatID, "🔐 Сначала войдите: /login <пароль> в личке")
	default:
		log.WithError(err).Error("Ошибка проверки сессии")
		h.sendMessage(ctx, chatID, "❌ Ошибка проверки доступа")
	}
	return false
}

func (h *Handler) sendMessage(ctx context.Context, chatID int64, text string) {
	if _, err := h.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
