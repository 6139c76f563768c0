// Package ledger - repository.go выполняет все запросы к events и points_agg.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"melbot/internal/common"
)

// querier - общее у пула и транзакции.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Баланс одним запросом: оба источника читаются из одного снимка.
const totalBalanceSQL = `
	SELECT COALESCE((SELECT SUM(currency_change) FROM events WHERE userid = $1), 0)::BIGINT
	     + COALESCE((SELECT total_points FROM points_agg WHERE userid = $1), 0)::BIGINT
`

// Свёртка событий старше cutoff одним оператором:
//   - folded: сумма и максимальный timestamp по пользователю;
//   - applied: новые строки вставляются, существующие обновляются только если
//     last_update < max_ts (повторный проход ничего не меняет);
//   - purged: удаляются события только тех пользователей, чья строка изменилась,
//     так что отсечённые защитой события остаются живыми и не теряются.
const foldSQL = `
WITH folded AS (
	SELECT userid, SUM(currency_change)::BIGINT AS delta, MAX(event_timestamp) AS max_ts
	FROM events
	WHERE event_timestamp < $1
	GROUP BY userid
),
applied AS (
	INSERT INTO points_agg (userid, total_points, last_update)
	SELECT userid, delta, max_ts FROM folded
	ON CONFLICT (userid) DO UPDATE
	SET total_points = points_agg.total_points + EXCLUDED.total_points,
	    last_update = EXCLUDED.last_update
	WHERE points_agg.last_update < EXCLUDED.last_update
	RETURNING userid
),
purged AS (
	DELETE FROM events e
	USING applied a
	WHERE e.userid = a.userid AND e.event_timestamp < $1
	RETURNING 1
)
SELECT (SELECT COUNT(*) FROM applied), (SELECT COUNT(*) FROM purged)
`

const leaderboardSQL = `
SELECT t.userid, COALESCE(u.username, ''), COALESCE(u.first_name, ''), t.total
FROM (
	SELECT userid, SUM(points)::BIGINT AS total
	FROM (
		SELECT userid, SUM(currency_change) AS points FROM events GROUP BY userid
		UNION ALL
		SELECT userid, total_points AS points FROM points_agg
	) AS combined
	GROUP BY userid
) AS t
%s users u ON u.userid = t.userid
ORDER BY t.total DESC
LIMIT $1
`

// Repository работает с журналом событий и итогами.
type Repository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// NewRepository создаёт репозиторий журнала.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Insert добавляет событие с серверным временем.
func (r *Repository) Insert(ctx context.Context, userID string, delta int64, reason string) error {
	return r.insertAt(ctx, r.db, userID, r.now().UTC().Unix(), delta, reason)
}

// InsertTx добавляет событие внутри уже открытой транзакции.
func (r *Repository) InsertTx(ctx context.Context, tx pgx.Tx, userID string, delta int64, reason string) error {
	return r.insertAt(ctx, tx, userID, r.now().UTC().Unix(), delta, reason)
}

func (r *Repository) insertAt(ctx context.Context, q querier, userID string, ts, delta int64, reason string) error {
	_, err := q.Exec(ctx, `
		INSERT INTO events (userid, event_timestamp, currency_change, reason)
		VALUES ($1, $2, $3, $4)
	`, userID, ts, delta, reason)
	if err != nil {
		return fmt.Errorf("ошибка записи события: %w", err)
	}
	return nil
}

// LiveBalance - сумма ещё не свёрнутых событий.
func (r *Repository) LiveBalance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(currency_change), 0)::BIGINT FROM events WHERE userid = $1`, userID,
	).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("ошибка чтения живого баланса: %w", err)
	}
	return balance, nil
}

// TotalBalance - итог + живые события.
func (r *Repository) TotalBalance(ctx context.Context, userID string) (int64, error) {
	return r.totalBalance(ctx, r.db, userID)
}

// TotalBalanceTx читает баланс внутри транзакции (видит её собственные записи).
func (r *Repository) TotalBalanceTx(ctx context.Context, tx pgx.Tx, userID string) (int64, error) {
	return r.totalBalance(ctx, tx, userID)
}

func (r *Repository) totalBalance(ctx context.Context, q querier, userID string) (int64, error) {
	var balance int64
	if err := q.QueryRow(ctx, totalBalanceSQL, userID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("ошибка чтения баланса: %w", err)
	}
	return balance, nil
}

// GetAggregate возвращает свёрнутый итог; common.ErrUserNotFound, если его нет.
func (r *Repository) GetAggregate(ctx context.Context, userID string) (*Aggregate, error) {
	var a Aggregate
	err := r.db.QueryRow(ctx, `
		SELECT userid, total_points, last_update FROM points_agg WHERE userid = $1
	`, userID).Scan(&a.UserID, &a.Total, &a.LastUpdate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("ошибка чтения итога: %w", err)
	}
	return &a, nil
}

// WithUserLock выполняет fn в транзакции под advisory-блокировкой пользователя.
// Проверка баланса и запись внутри fn не пересекаются с другими такими же операциями.
func (r *Repository) WithUserLock(ctx context.Context, userID string, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return common.Storage(fmt.Errorf("ошибка начала транзакции: %w", err))
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID); err != nil {
		return common.Storage(fmt.Errorf("ошибка блокировки пользователя: %w", err))
	}

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return common.Storage(fmt.Errorf("ошибка фиксации транзакции: %w", err))
	}
	return nil
}

// Leaderboard складывает живые суммы и итоги по пользователю и сортирует по убыванию.
// При rosterOnly в выборку попадают только пользователи из users.
// Порядок при равных суммах не определён.
func (r *Repository) Leaderboard(ctx context.Context, limit int, rosterOnly bool) ([]Standing, error) {
	join := "LEFT JOIN"
	if rosterOnly {
		join = "JOIN"
	}
	rows, err := r.db.Query(ctx, fmt.Sprintf(leaderboardSQL, join), limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса лидерборда: %w", err)
	}
	defer rows.Close()

	var out []Standing
	for rows.Next() {
		var s Standing
		if err := rows.Scan(&s.UserID, &s.Username, &s.FirstName, &s.Total); err != nil {
			return nil, fmt.Errorf("ошибка сканирования лидерборда: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения лидерборда: %w", err)
	}
	return out, nil
}

// History возвращает последние живые события пользователя.
func (r *Repository) History(ctx context.Context, userID string, limit int) ([]*Event, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, userid, event_timestamp, currency_change, reason
		FROM events
		WHERE userid = $1
		ORDER BY event_timestamp DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения истории: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.UserID, &e.Timestamp, &e.Delta, &e.Reason); err != nil {
			return nil, fmt.Errorf("ошибка сканирования события: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения истории: %w", err)
	}
	return events, nil
}

// FoldBefore сворачивает события старше cutoff. Весь проход - одна транзакция.
func (r *Repository) FoldBefore(ctx context.Context, cutoff int64) (FoldResult, error) {
	var res FoldResult

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx, foldSQL, cutoff).Scan(&res.Users, &res.Events); err != nil {
		return FoldResult{}, fmt.Errorf("ошибка свёртки событий: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return FoldResult{}, fmt.Errorf("ошибка фиксации свёртки: %w", err)
	}
	return res, nil
}
