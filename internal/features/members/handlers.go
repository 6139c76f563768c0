// Package members - handlers.go обрабатывает вход и выход участников чата.
package members

import (
	"context"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
)

// Handler обрабатывает события участников.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик событий участников.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleNewChatMembers регистрирует всех вступивших (боты пропускаются).
func (h *Handler) HandleNewChatMembers(ctx context.Context, newMembers []telego.User) {
	for _, user := range newMembers {
		if user.IsBot {
			continue
		}
		if err := h.service.HandleNewMember(ctx, user.ID, user.Username, user.FirstName, user.LastName); err != nil {
			log.WithError(err).WithField("user_id", user.ID).Error("Ошибка регистрации нового участника")
		}
	}
}

// HandleLeftChatMember убирает вышедшего из ростера.
func (h *Handler) HandleLeftChatMember(ctx context.Context, user *telego.User) {
	if user == nil || user.IsBot {
		return
	}
	if err := h.service.HandleLeftMember(ctx, user.ID); err != nil {
		log.WithError(err).WithField("user_id", user.ID).Error("Ошибка удаления участника")
	}
}
