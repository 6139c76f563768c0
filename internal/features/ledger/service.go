// Package ledger - service.go: операции с балансом для остальных модулей.
//
// Два пути записи намеренно разделены:
//   - Append - фоновые начисления (активность в чате). Ошибка БД логируется и глотается.
//   - ApplyChecked / Credit / Debit - действия пользователя. Ошибка возвращается,
//     списание всегда проверяет баланс в той же транзакции.
package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"melbot/internal/common"
	"melbot/internal/config"
	"melbot/internal/metrics"
)

// Service управляет валютой бота.
type Service struct {
	repo            *Repository
	leaderboardSize int
	rosterOnly      bool
}

// NewService создаёт сервис журнала.
func NewService(repo *Repository, cfg *config.Config) *Service {
	size := cfg.EconomyLeaderboardSize
	if size <= 0 {
		size = 10
	}
	return &Service{
		repo:            repo,
		leaderboardSize: size,
		rosterOnly:      cfg.EconomyLeaderboardRoster,
	}
}

// Append записывает событие по принципу best-effort: ошибки только в лог.
func (s *Service) Append(ctx context.Context, userID string, delta int64, reason string) {
	if err := s.repo.Insert(ctx, userID, delta, reason); err != nil {
		metrics.LedgerWrites.WithLabelValues(reasonLabel(reason), "failed").Inc()
		log.WithError(err).WithFields(log.Fields{
			"user_id": userID,
			"delta":   delta,
			"reason":  reason,
		}).Error("Событие не записано (best-effort), продолжаем")
		return
	}
	metrics.LedgerWrites.WithLabelValues(reasonLabel(reason), "ok").Inc()
}

// ApplyChecked записывает delta, только если баланс не меньше required.
// Для списаний required не бывает меньше суммы списания. Возвращает новый баланс.
func (s *Service) ApplyChecked(ctx context.Context, userID string, delta, required int64, reason string) (int64, error) {
	if delta < 0 && required < -delta {
		required = -delta
	}

	var balance int64
	err := s.repo.WithUserLock(ctx, userID, func(ctx context.Context, tx pgx.Tx) error {
		current, err := s.repo.TotalBalanceTx(ctx, tx, userID)
		if err != nil {
			return common.Storage(err)
		}
		if current < required {
			return common.ErrInsufficientFunds
		}
		if err := s.repo.InsertTx(ctx, tx, userID, delta, reason); err != nil {
			return common.Storage(err)
		}
		balance = current + delta
		return nil
	})
	if err != nil {
		result := "failed"
		if errors.Is(err, common.ErrInsufficientFunds) {
			result = "rejected"
		}
		metrics.LedgerWrites.WithLabelValues(reasonLabel(reason), result).Inc()
		return 0, err
	}

	metrics.LedgerWrites.WithLabelValues(reasonLabel(reason), "ok").Inc()
	log.WithFields(log.Fields{
		"user_id": userID,
		"delta":   delta,
		"reason":  reason,
		"balance": balance,
	}).Debug("Баланс изменён")
	return balance, nil
}

// Credit начисляет amount по действию пользователя или админа.
func (s *Service) Credit(ctx context.Context, userID string, amount int64, reason string) (int64, error) {
	if amount <= 0 {
		return 0, common.ErrInvalidAmount
	}
	return s.ApplyChecked(ctx, userID, amount, 0, reason)
}

// Debit списывает amount, если хватает баланса.
func (s *Service) Debit(ctx context.Context, userID string, amount int64, reason string) (int64, error) {
	if amount <= 0 {
		return 0, common.ErrInvalidAmount
	}
	return s.ApplyChecked(ctx, userID, -amount, amount, reason)
}

// WithUserLock открывает транзакцию под блокировкой пользователя для составных операций.
func (s *Service) WithUserLock(ctx context.Context, userID string, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return s.repo.WithUserLock(ctx, userID, fn)
}

// BalanceTx читает баланс внутри транзакции из WithUserLock.
func (s *Service) BalanceTx(ctx context.Context, tx pgx.Tx, userID string) (int64, error) {
	balance, err := s.repo.TotalBalanceTx(ctx, tx, userID)
	return balance, common.Storage(err)
}

// AppendTx пишет событие внутри транзакции из WithUserLock.
func (s *Service) AppendTx(ctx context.Context, tx pgx.Tx, userID string, delta int64, reason string) error {
	return common.Storage(s.repo.InsertTx(ctx, tx, userID, delta, reason))
}

// LiveBalance возвращает сумму несвёрнутых событий (0 для неизвестного пользователя).
func (s *Service) LiveBalance(ctx context.Context, userID string) (int64, error) {
	balance, err := s.repo.LiveBalance(ctx, userID)
	return balance, common.Storage(err)
}

// TotalBalance возвращает полный баланс (0 для неизвестного пользователя).
func (s *Service) TotalBalance(ctx context.Context, userID string) (int64, error) {
	balance, err := s.repo.TotalBalance(ctx, userID)
	return balance, common.Storage(err)
}

// Leaderboard возвращает топ пользователей. limit <= 0 - размер из конфига.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]Standing, error) {
	if limit <= 0 {
		limit = s.leaderboardSize
	}
	standings, err := s.repo.Leaderboard(ctx, limit, s.rosterOnly)
	return standings, common.Storage(err)
}

// History возвращает последние несвёрнутые события пользователя.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]*Event, error) {
	events, err := s.repo.History(ctx, userID, limit)
	return events, common.Storage(err)
}
