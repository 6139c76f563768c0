// Package admin - привилегированные команды: товары магазина и ручная
// корректировка балансов. Админы перечислены в ADMIN_IDS, каждая сессия
// открывается паролем (Argon2id) в личке.
package admin

import "time"

// AdminSession - активная сессия администратора.
type AdminSession struct {
	ID              int64     `db:"id"`
	UserID          string    `db:"userid"`
	SessionToken    string    `db:"session_token"`
	AuthenticatedAt time.Time `db:"authenticated_at"`
	ExpiresAt       time.Time `db:"expires_at"`
	IsActive        bool      `db:"is_active"`
}

// Защита от перебора: maxFailedAttempts неудач за attemptsWindow блокируют вход.
const (
	maxFailedAttempts = 3
	attemptsWindow    = time.Hour
)
