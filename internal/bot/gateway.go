package bot

import (
	"context"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

const notifyTimeout = 10 * time.Second

// Gateway - тонкая обёртка над Bot API для фильтра и фоновых уведомлений.
type Gateway struct {
	api *telego.Bot
}

func NewGateway(api *telego.Bot) *Gateway {
	return &Gateway{api: api}
}

// ChatMemberStatus возвращает статус пользователя в чате ("member", "left", ...).
func (g *Gateway) ChatMemberStatus(ctx context.Context, chatID, userID int64) (string, error) {
	member, err := g.api.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: tu.ID(chatID),
		UserID: userID,
	})
	if err != nil {
		return "", err
	}
	return member.MemberStatus(), nil
}

// Send отправляет текст. Ошибка только логируется.
func (g *Gateway) Send(ctx context.Context, chatID int64, text string) {
	if _, err := g.api.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

// Notify - отправка из фоновых задач со своим таймаутом.
func (g *Gateway) Notify(chatID int64, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	g.Send(ctx, chatID, text)
}
