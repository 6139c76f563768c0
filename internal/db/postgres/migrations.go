package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

type migration struct {
	version int
	sql     string
}

// Порядок важен: версии применяются по возрастанию и больше не меняются.
var migrations = []migration{
	{1, migration001Roster},
	{2, migration002Ledger},
	{3, migration003Shop},
	{4, migration004Gacha},
	{5, migration005Admin},
}

// Migrate применяет все миграции, которых ещё нет в schema_migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if err := ensureMigrationsTable(ctx, pool); err != nil {
		return err
	}
	for _, m := range migrations {
		applied, err := ExecMigrationSQL(ctx, pool, m.version, m.sql)
		if err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		if applied {
			log.WithField("version", m.version).Info("Миграция применена")
		}
	}
	return nil
}

// users - снимок участников чата; лидерборд по умолчанию ограничен им.
var migration001Roster = `
CREATE TABLE IF NOT EXISTS users (
    userid TEXT PRIMARY KEY,
    username VARCHAR(255) NOT NULL DEFAULT '',
    first_name VARCHAR(255) NOT NULL DEFAULT '',
    last_name VARCHAR(255) NOT NULL DEFAULT '',
    joined_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_username ON users(LOWER(username));
`

// events - журнал изменений баланса, points_agg - свёрнутые итоги.
var migration002Ledger = `
CREATE TABLE IF NOT EXISTS events (
    id BIGSERIAL PRIMARY KEY,
    userid TEXT NOT NULL,
    event_timestamp BIGINT NOT NULL,
    currency_change BIGINT NOT NULL,
    reason TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_events_userid ON events(userid);
CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(event_timestamp);

CREATE TABLE IF NOT EXISTS points_agg (
    userid TEXT PRIMARY KEY,
    total_points BIGINT NOT NULL DEFAULT 0,
    last_update BIGINT NOT NULL DEFAULT 0
);
`

var migration003Shop = `
CREATE TABLE IF NOT EXISTS shop (
    item_id BIGSERIAL PRIMARY KEY,
    item_name TEXT NOT NULL UNIQUE,
    item_price BIGINT NOT NULL CHECK (item_price >= 0),
    item_description TEXT NOT NULL DEFAULT '',
    item_file TEXT
);
`

// id задаёт порядок круток внутри одной секунды.
var migration004Gacha = `
CREATE TABLE IF NOT EXISTS gacha_events (
    id BIGSERIAL PRIMARY KEY,
    userid TEXT NOT NULL,
    reward_rarity INTEGER NOT NULL,
    reward_name TEXT NOT NULL DEFAULT '',
    event_timestamp BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_gacha_events_user ON gacha_events(userid, id);
`

var migration005Admin = `
CREATE TABLE IF NOT EXISTS admin_sessions (
    id BIGSERIAL PRIMARY KEY,
    userid TEXT NOT NULL,
    session_token VARCHAR(255) UNIQUE,
    authenticated_at TIMESTAMP NOT NULL DEFAULT NOW(),
    expires_at TIMESTAMP NOT NULL,
    is_active BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS idx_admin_sessions_userid ON admin_sessions(userid);
CREATE TABLE IF NOT EXISTS admin_login_attempts (
    id BIGSERIAL PRIMARY KEY,
    userid TEXT NOT NULL,
    attempt_time TIMESTAMP NOT NULL DEFAULT NOW(),
    success BOOLEAN NOT NULL DEFAULT FALSE
);
`
