// Package shop - repository.go: запросы к таблице shop.
package shop

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"melbot/internal/common"
	"melbot/internal/db/postgres"
)

const itemColumns = `item_id, item_name, item_price, item_description, item_file`

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create добавляет товар; занятое имя - common.ErrDuplicateItem.
func (r *Repository) Create(ctx context.Context, item *Item) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO shop (item_name, item_price, item_description, item_file)
		VALUES ($1, $2, $3, $4)
		RETURNING item_id
	`, item.Name, item.Price, item.Description, item.File).Scan(&item.ID)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return common.ErrDuplicateItem
		}
		return fmt.Errorf("ошибка добавления товара: %w", err)
	}
	return nil
}

// DeleteByID возвращает число удалённых строк (0 или 1).
func (r *Repository) DeleteByID(ctx context.Context, id int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM shop WHERE item_id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("ошибка удаления товара: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteByName возвращает число удалённых строк (0 или 1).
func (r *Repository) DeleteByName(ctx context.Context, name string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM shop WHERE item_name = $1`, name)
	if err != nil {
		return 0, fmt.Errorf("ошибка удаления товара: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Item, error) {
	return r.getOne(ctx, `SELECT `+itemColumns+` FROM shop WHERE item_id = $1`, id)
}

func (r *Repository) GetByName(ctx context.Context, name string) (*Item, error) {
	return r.getOne(ctx, `SELECT `+itemColumns+` FROM shop WHERE item_name = $1`, name)
}

func (r *Repository) getOne(ctx context.Context, query string, arg any) (*Item, error) {
	var it Item
	err := r.db.QueryRow(ctx, query, arg).Scan(&it.ID, &it.Name, &it.Price, &it.Description, &it.File)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrItemNotFound
		}
		return nil, fmt.Errorf("ошибка чтения товара: %w", err)
	}
	return &it, nil
}

// List возвращает товары в порядке добавления.
func (r *Repository) List(ctx context.Context) ([]*Item, error) {
	rows, err := r.db.Query(ctx, `SELECT `+itemColumns+` FROM shop ORDER BY item_id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса товаров: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Price, &it.Description, &it.File); err != nil {
			return nil, fmt.Errorf("ошибка сканирования товара: %w", err)
		}
		items = append(items, &it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения товаров: %w", err)
	}
	return items, nil
}
