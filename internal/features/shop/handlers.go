// Package shop - handlers.go: !магазин, !купить и админские add_item/remove_item.
package shop

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

// HandleShop выводит каталог.
func (h *Handler) HandleShop(ctx context.Context, chatID int64) {
	items, err := h.service.ListItems(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка получения каталога")
		h.sendMessage(ctx, chatID, "❌ Магазин временно недоступен")
		return
	}
	h.sendMessage(ctx, chatID, FormatCatalog(items))
}

// HandleBuy покупает товар по ID или имени. Ссылка на файл уходит в личку.
func (h *Handler) HandleBuy(ctx context.Context, chatID, userID int64, args []string) {
	ref := strings.TrimSpace(strings.Join(args, " "))
	if ref == "" {
		h.sendMessage(ctx, chatID, "Использование: !купить <номер или название>")
		return
	}

	p, err := h.service.Buy(ctx, common.UserKey(userID), ref)
	switch {
	case errors.Is(err, common.ErrItemNotFound):
		h.sendMessage(ctx, chatID, "❌ Такого товара нет")
		return
	case errors.Is(err, common.ErrInsufficientFunds):
		h.sendMessage(ctx, chatID, "❌ Недостаточно очков")
		return
	case err != nil:
		log.WithError(err).Error("Ошибка покупки")
		h.sendMessage(ctx, chatID, "❌ Покупка не прошла, попробуйте позже")
		return
	}

	h.sendMessage(ctx, chatID, fmt.Sprintf("🛍 Куплено: %s за %s\n💰 Баланс: %s",
		p.Item.Name, common.FormatBalance(p.Item.Price), common.FormatBalance(p.Balance)))
	if p.Link != "" {
		h.sendMessage(ctx, userID, fmt.Sprintf("📦 %s: %s", p.Item.Name, p.Link))
	}
}

// HandleAddItem: add_item название | цена | описание | файл
func (h *Handler) HandleAddItem(ctx context.Context, chatID int64, raw string) {
	parts := strings.Split(raw, "|")
	if len(parts) < 2 {
		h.sendMessage(ctx, chatID, "Использование: /add_item название | цена | описание | файл")
		return
	}
	for len(parts) < 4 {
		parts = append(parts, "")
	}
	price, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		h.sendMessage(ctx, chatID, "❌ Цена должна быть числом")
		return
	}

	item, err := h.service.AddItem(ctx, parts[0], price, parts[2], parts[3])
	switch {
	case errors.Is(err, common.ErrDuplicateItem):
		h.sendMessage(ctx, chatID, "❌ Товар с таким названием уже есть")
		return
	case errors.Is(err, common.ErrInvalidItem):
		h.sendMessage(ctx, chatID, "❌ Нужны название и неотрицательная цена")
		return
	case err != nil:
		log.WithError(err).Error("Ошибка добавления товара")
		h.sendMessage(ctx, chatID, "❌ Ошибка добавления товара")
		return
	}
	h.sendMessage(ctx, chatID, fmt.Sprintf("✅ Товар #%d «%s» добавлен", item.ID, item.Name))
}

// HandleRemoveItem: remove_item <номер или название>
func (h *Handler) HandleRemoveItem(ctx context.Context, chatID int64, raw string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		h.sendMessage(ctx, chatID, "Использование: /remove_item <номер или название>")
		return
	}
	n, err := h.service.RemoveItem(ctx, raw)
	if err != nil {
		log.WithError(err).Error("Ошибка удаления товара")
		h.sendMessage(ctx, chatID, "❌ Ошибка удаления товара")
		return
	}
	if n == 0 {
		h.sendMessage(ctx, chatID, "❌ Такого товара нет")
		return
	}
	h.sendMessage(ctx, chatID, "🗑 Товар удалён")
}

// FormatCatalog - текст каталога для чата.
func FormatCatalog(items []*Item) string {
	if len(items) == 0 {
		return "🛒 Магазин пуст"
	}
	var sb strings.Builder
	sb.WriteString("🛒 Магазин:\n\n")
	for _, it := range items {
		sb.WriteString(fmt.Sprintf("#%d %s — %s", it.ID, it.Name, common.FormatNumber(it.Price)))
		if it.Description != "" {
			sb.WriteString("\n    " + it.Description)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (h *Handler) sendMessage(ctx context.Context, chatID int64, text string) {
	if _, err := h.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
