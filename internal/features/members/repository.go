// Package members - repository.go: запросы к таблице users.
package members

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"melbot/internal/common"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Upsert добавляет участника или обновляет имя/username вернувшегося.
func (r *Repository) Upsert(ctx context.Context, m *Member) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (userid, username, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (userid) DO UPDATE
		SET username = EXCLUDED.username,
		    first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    updated_at = NOW()
	`, m.UserID, m.Username, m.FirstName, m.LastName)
	if err != nil {
		return fmt.Errorf("ошибка сохранения участника: %w", err)
	}
	return nil
}

// GetByUserID: если не найден - common.ErrUserNotFound.
func (r *Repository) GetByUserID(ctx context.Context, userID string) (*Member, error) {
	return r.getOne(ctx, `
		SELECT userid, username, first_name, last_name, joined_at, updated_at
		FROM users WHERE userid = $1
	`, userID)
}

// GetByUsername ищет без учёта регистра; если не найден - common.ErrUserNotFound.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*Member, error) {
	return r.getOne(ctx, `
		SELECT userid, username, first_name, last_name, joined_at, updated_at
		FROM users WHERE LOWER(username) = LOWER($1)
	`, username)
}

func (r *Repository) getOne(ctx context.Context, query string, arg string) (*Member, error) {
	var m Member
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&m.UserID, &m.Username, &m.FirstName, &m.LastName, &m.JoinedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("ошибка чтения участника (%s): %w", arg, err)
	}
	return &m, nil
}

func (r *Repository) Exists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE userid = $1)`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки существования: %w", err)
	}
	return exists, nil
}

// Delete убирает участника из ростера. Его события и итоги не трогаются.
func (r *Repository) Delete(ctx context.Context, userID string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE userid = $1`, userID)
	if err != nil {
		return false, fmt.Errorf("ошибка удаления участника: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
