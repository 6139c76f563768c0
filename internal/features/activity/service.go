// Package activity - service.go: очки за сообщения.
package activity

import (
	"context"
	"time"

	"melbot/internal/common"
	"melbot/internal/config"
	"melbot/internal/features/ledger"
	"melbot/internal/metrics"
)

// Appender - best-effort запись в леджер.
type Appender interface {
	Append(ctx context.Context, userID string, delta int64, reason string)
}

type Service struct {
	ledger   Appender
	throttle *Throttle
	cooldown time.Duration
	points   int64
	now      func() time.Time
}

func NewService(appender Appender, throttle *Throttle, cfg *config.Config) *Service {
	return &Service{
		ledger:   appender,
		throttle: throttle,
		cooldown: cfg.EconomyMessageCooldown,
		points:   cfg.EconomyPointsPerMessage,
		now:      time.Now,
	}
}

// OnMessage начисляет очки за сообщение, если кулдаун прошёл.
// Ошибка записи не доходит до пользователя: начисление фоновое.
func (s *Service) OnMessage(ctx context.Context, telegramID int64) bool {
	if s.points <= 0 {
		return false
	}
	userID := common.UserKey(telegramID)
	if !s.throttle.TryCredit(userID, s.now(), s.cooldown) {
		metrics.ActivityCredits.WithLabelValues("throttled").Inc()
		return false
	}
	s.ledger.Append(ctx, userID, s.points, ledger.ReasonMessage)
	metrics.ActivityCredits.WithLabelValues("credited").Inc()
	return true
}
