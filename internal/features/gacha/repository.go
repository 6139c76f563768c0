// Package gacha - repository.go: история круток в gacha_events.
package gacha

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Счётчики считаются по id: крутки после последней награды нужной редкости.
const pitySQL = `
	SELECT
		COUNT(*) FILTER (WHERE id > COALESCE(
			(SELECT MAX(id) FROM gacha_events WHERE userid = $1 AND reward_rarity = 4), 0))::BIGINT,
		COUNT(*) FILTER (WHERE id > COALESCE(
			(SELECT MAX(id) FROM gacha_events WHERE userid = $1 AND reward_rarity = 5), 0))::BIGINT
	FROM gacha_events
	WHERE userid = $1
`

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Pity читает счётчики вне транзакции (для !гарант).
func (r *Repository) Pity(ctx context.Context, userID string) (Pity, error) {
	return r.pity(ctx, r.db, userID)
}

// PityTx читает счётчики внутри транзакции крутки.
func (r *Repository) PityTx(ctx context.Context, tx pgx.Tx, userID string) (Pity, error) {
	return r.pity(ctx, tx, userID)
}

func (r *Repository) pity(ctx context.Context, q querier, userID string) (Pity, error) {
	var sinceFour, sinceFive int64
	if err := q.QueryRow(ctx, pitySQL, userID).Scan(&sinceFour, &sinceFive); err != nil {
		return Pity{}, fmt.Errorf("ошибка подсчёта гаранта: %w", err)
	}
	return Pity{SinceFour: int(sinceFour), SinceFive: int(sinceFive)}, nil
}

// InsertTx записывает крутку.
func (r *Repository) InsertTx(ctx context.Context, tx pgx.Tx, userID string, reward Reward) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO gacha_events (userid, reward_rarity, reward_name, event_timestamp)
		VALUES ($1, $2, $3, $4)
	`, userID, reward.Rarity, reward.Name, r.now().Unix())
	if err != nil {
		return fmt.Errorf("ошибка записи крутки: %w", err)
	}
	return nil
}
