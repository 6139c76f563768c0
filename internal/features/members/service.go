// Package members - service.go: регистрация, выход и поиск участников.
package members

import (
	"context"

	log "github.com/sirupsen/logrus"

	"melbot/internal/common"
)

// Service управляет ростером чата.
type Service struct {
	repo *Repository
}

// NewService создаёт сервис участников.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// HandleNewMember регистрирует вступившего (или вернувшегося) участника.
func (s *Service) HandleNewMember(ctx context.Context, telegramID int64, username, firstName, lastName string) error {
	m := &Member{
		UserID:    common.UserKey(telegramID),
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
	}
	if err := s.repo.Upsert(ctx, m); err != nil {
		return common.Storage(err)
	}
	log.WithFields(log.Fields{
		"user_id":  m.UserID,
		"username": username,
	}).Info("Участник в ростере")
	return nil
}

// HandleLeftMember убирает вышедшего участника из ростера.
func (s *Service) HandleLeftMember(ctx context.Context, telegramID int64) error {
	removed, err := s.repo.Delete(ctx, common.UserKey(telegramID))
	if err != nil {
		return common.Storage(err)
	}
	if removed {
		log.WithField("user_id", telegramID).Info("Участник покинул чат, убран из ростера")
	}
	return nil
}

// IsMember проверяет, есть ли пользователь в ростере.
func (s *Service) IsMember(ctx context.Context, telegramID int64) (bool, error) {
	ok, err := s.repo.Exists(ctx, common.UserKey(telegramID))
	return ok, common.Storage(err)
}

// GetByUsername возвращает участника по @username (без @).
func (s *Service) GetByUsername(ctx context.Context, username string) (*Member, error) {
	m, err := s.repo.GetByUsername(ctx, username)
	if err != nil && err != common.ErrUserNotFound {
		return nil, common.Storage(err)
	}
	return m, err
}

// GetByID возвращает участника по Telegram ID.
func (s *Service) GetByID(ctx context.Context, telegramID int64) (*Member, error) {
	m, err := s.repo.GetByUserID(ctx, common.UserKey(telegramID))
	if err != nil && err != common.ErrUserNotFound {
		return nil, common.Storage(err)
	}
	return m, err
}

// EnsureMember добавляет автора сообщения в ростер, если его там нет.
func (s *Service) EnsureMember(ctx context.Context, telegramID int64, username, firstName, lastName string) error {
	exists, err := s.IsMember(ctx, telegramID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.HandleNewMember(ctx, telegramID, username, firstName, lastName)
}
