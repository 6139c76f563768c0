// Package admin - service.go: вход по паролю, сессии и корректировка балансов.
package admin

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"

	"melbot/internal/common"
	"melbot/internal/config"
	"melbot/internal/features/ledger"
)

// Параметры Argon2id для новых хешей.
const (
	argonMemory      uint32 = 64 * 1024
	argonIterations  uint32 = 3
	argonParallelism uint8  = 2
	argonKeyLength   uint32 = 32
	argonSaltLength         = 16
)

// Wallet - записи леджера от имени админа.
type Wallet interface {
	Credit(ctx context.Context, userID string, amount int64, reason string) (int64, error)
	Debit(ctx context.Context, userID string, amount int64, reason string) (int64, error)
}

// Service управляет доступом админов.
type Service struct {
	repo   *Repository
	wallet Wallet
	cfg    *config.Config
}

// NewService создаёт сервис администрирования.
func NewService(repo *Repository, wallet Wallet, cfg *config.Config) *Service {
	return &Service{repo: repo, wallet: wallet, cfg: cfg}
}

// Login проверяет пароль и открывает сессию.
// 3 неудачные попытки за час блокируют вход до конца окна.
func (s *Service) Login(ctx context.Context, telegramID int64, password string) error {
	if !s.cfg.IsAdmin(telegramID) {
		return common.ErrNotAdmin
	}
	userID := common.UserKey(telegramID)

	failed, err := s.repo.CountFailedAttempts(ctx, userID, attemptsWindow)
	if err != nil {
		return common.Storage(err)
	}
	if failed >= maxFailedAttempts {
		return common.ErrTooManyAttempts
	}

	match := VerifyPassword(password, s.cfg.AdminPasswordHash)
	if err := s.repo.LogAttempt(ctx, userID, match); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Попытка входа не записана")
	}
	if !match {
		log.WithField("user_id", userID).Warn("Неверный пароль администратора")
		return common.ErrWrongPassword
	}

	if err := s.repo.CreateSession(ctx, userID, generateSecureToken(), s.cfg.AdminSessionTTL); err != nil {
		return common.Storage(err)
	}
	log.WithField("user_id", userID).Info("Администратор вошёл")
	return nil
}

// Logout закрывает сессии администратора.
func (s *Service) Logout(ctx context.Context, telegramID int64) error {
	return common.Storage(s.repo.DeactivateSessions(ctx, common.UserKey(telegramID)))
}

// Authorize пропускает только админа с действующей сессией.
func (s *Service) Authorize(ctx context.Context, telegramID int64) error {
	if !s.cfg.IsAdmin(telegramID) {
		return common.ErrNotAdmin
	}
	session, err := s.repo.GetActiveSession(ctx, common.UserKey(telegramID))
	if err != nil {
		return common.Storage(err)
	}
	if session == nil {
		return common.ErrSessionExpired
	}
	return nil
}

// AddPoints начисляет очки пользователю.
func (s *Service) AddPoints(ctx context.Context, adminID int64, userID string, amount int64) (int64, error) {
	balance, err := s.wallet.Credit(ctx, userID, amount, ledger.ReasonAdminAdd)
	if err == nil {
		log.WithFields(log.Fields{"admin_id": adminID, "user_id": userID, "amount": amount}).Info("Админ начислил очки")
	}
	return balance, err
}

// RemovePoints списывает очки, если их хватает.
func (s *Service) RemovePoints(ctx context.Context, adminID int64, userID string, amount int64) (int64, error) {
	balance, err := s.wallet.Debit(ctx, userID, amount, ledger.ReasonAdminRemove)
	if err == nil {
		log.WithFields(log.Fields{"admin_id": adminID, "user_id": userID, "amount": amount}).Info("Админ списал очки")
	}
	return balance, err
}

// --- Криптографические утилиты ---

// HashPassword возвращает хеш в формате
// $argon2id$v=19$m=65536,t=3,p=2$<salt_base64>$<hash_base64>
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("ошибка генерации соли: %w", err)
	}
	hash := argon2.IDKey([]byte(password), salt, argonIterations, argonMemory, argonParallelism, argonKeyLength)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonIterations, argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyPassword проверяет пароль по хешу Argon2id.
func VerifyPassword(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		log.Error("Некорректный формат хеша Argon2id")
		return false
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		log.WithError(err).Error("Ошибка парсинга параметров Argon2id")
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования соли")
		return false
	}
	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования хеша")
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(expectedHash)))
	// сравнение в постоянном времени
	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1
}

// generateSecureToken генерирует токен сессии.
func generateSecureToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return common.NewID()
	}
	return base64.URLEncoding.EncodeToString(b)
}
