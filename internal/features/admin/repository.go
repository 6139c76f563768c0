// Package admin - repository.go работает с таблицами admin_sessions и admin_login_attempts.
package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository работает с админ-таблицами.
// Время считается на стороне БД (NOW()), чтобы не зависеть от пояса процесса.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateSession открывает сессию на ttl.
func (r *Repository) CreateSession(ctx context.Context, userID, token string, ttl time.Duration) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO admin_sessions (userid, session_token, expires_at, is_active)
		VALUES ($1, $2, NOW() + make_interval(secs => $3), TRUE)
	`, userID, token, ttl.Seconds())
	if err != nil {
		return fmt.Errorf("ошибка создания сессии: %w", err)
	}
	return nil
}

// GetActiveSession возвращает действующую сессию или nil, если её нет.
func (r *Repository) GetActiveSession(ctx context.Context, userID string) (*AdminSession, error) {
	var s AdminSession
	err := r.db.QueryRow(ctx, `
		SELECT id, userid, session_token, authenticated_at, expires_at, is_active
		FROM admin_sessions
		WHERE userid = $1 AND is_active = TRUE AND expires_at > NOW()
		ORDER BY authenticated_at DESC
		LIMIT 1
	`, userID).Scan(&s.ID, &s.UserID, &s.SessionToken, &s.AuthenticatedAt, &s.ExpiresAt, &s.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка чтения сессии: %w", err)
	}
	return &s, nil
}

// DeactivateSessions закрывает все сессии пользователя.
func (r *Repository) DeactivateSessions(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `UPDATE admin_sessions SET is_active = FALSE WHERE userid = $1 AND is_active = TRUE`, userID)
	if err != nil {
		return fmt.Errorf("ошибка закрытия сессии: %w", err)
	}
	return nil
}

// LogAttempt записывает попытку входа.
func (r *Repository) LogAttempt(ctx context.Context, userID string, success bool) error {
	_, err := r.db.Exec(ctx, `INSERT INTO admin_login_attempts (userid, success) VALUES ($1, $2)`, userID, success)
	if err != nil {
		return fmt.Errorf("ошибка записи попытки входа: %w", err)
	}
	return nil
}

// CountFailedAttempts - число неудачных попыток за последний period.
func (r *Repository) CountFailedAttempts(ctx context.Context, userID string, period time.Duration) (int, error) {
	var count int64
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM admin_login_attempts
		WHERE userid = $1 AND success = FALSE AND attempt_time >= NOW() - make_interval(secs => $2)
	`, userID, period.Seconds()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта попыток входа: %w", err)
	}
	return int(count), nil
}
