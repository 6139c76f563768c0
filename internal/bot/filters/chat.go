// Package filters решает, кому бот отвечает: экономическому чату целиком
// и участникам этого чата в личке.
package filters

import (
	"context"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
)

// Roster - локальный список участников.
type Roster interface {
	IsMember(ctx context.Context, telegramID int64) (bool, error)
	EnsureMember(ctx context.Context, telegramID int64, username, firstName, lastName string) error
}

// Telegram - запросы к Bot API, нужные фильтру.
type Telegram interface {
	ChatMemberStatus(ctx context.Context, chatID, userID int64) (string, error)
	Send(ctx context.Context, chatID int64, text string)
}

type ChatFilter struct {
	economyChatID int64
	roster        Roster
	telegram      Telegram
}

func NewChatFilter(economyChatID int64, roster Roster, telegram Telegram) *ChatFilter {
	return &ChatFilter{
		economyChatID: economyChatID,
		roster:        roster,
		telegram:      telegram,
	}
}

// CheckAccess пропускает сообщения из экономического чата и личку его участников.
// Участника, которого нет в ростере, проверяем через Telegram и дописываем.
func (f *ChatFilter) CheckAccess(ctx context.Context, message *telego.Message) bool {
	if message == nil {
		return false
	}
	if message.From == nil {
		log.WithFields(log.Fields{
			"component": "ChatFilter",
			"chat_id":   message.Chat.ID,
			"chat_type": message.Chat.Type,
		}).Debug("nil message.From (service/channel message?)")
		return false
	}

	chatID := message.Chat.ID
	userID := message.From.ID
	logger := log.WithFields(log.Fields{
		"component": "ChatFilter",
		"chat_id":   chatID,
		"chat_type": message.Chat.Type,
		"user_id":   userID,
	})

	if chatID == f.economyChatID {
		return true
	}
	if message.Chat.Type != telego.ChatTypePrivate {
		logger.Debug("deny: foreign chat")
		return false
	}

	isMember, err := f.roster.IsMember(ctx, userID)
	if err != nil {
		logger.WithError(err).Error("member check failed (db)")
		return false
	}
	if isMember {
		return true
	}

	status, err := f.telegram.ChatMemberStatus(ctx, f.economyChatID, userID)
	if err != nil {
		logger.WithError(err).Error("member check failed (telegram GetChatMember)")
		return false
	}

	switch status {
	case "creator", "administrator", "member", "restricted":
		if err := f.roster.EnsureMember(ctx, userID,
			message.From.Username, message.From.FirstName, message.From.LastName,
		); err != nil {
			logger.WithError(err).Warn("failed to backfill member to DB (allowing anyway)")
		}
		logger.WithField("tg_status", status).Info("allow: private (telegram member, backfilled)")
		return true
	default:
		logger.WithField("tg_status", status).Info("deny: private (not a chat member)")
		f.telegram.Send(ctx, chatID, "❌ Бот работает только для участников основного чата")
		return false
	}
}
