package assets

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const listingCacheKey = "melbot:assets:listing"

// CachedDirectory держит листинг в Redis с TTL, чтобы не ходить в Drive на каждую крутку.
// Недоступный Redis не ломает каталог: запрос уходит напрямую.
type CachedDirectory struct {
	next Directory
	rdb  *redis.Client
	ttl  time.Duration
}

// NewCachedDirectory оборачивает каталог кэшем.
func NewCachedDirectory(next Directory, rdb *redis.Client, ttl time.Duration) *CachedDirectory {
	return &CachedDirectory{next: next, rdb: rdb, ttl: ttl}
}

func (c *CachedDirectory) List(ctx context.Context) ([]Entry, error) {
	raw, err := c.rdb.Get(ctx, listingCacheKey).Bytes()
	if err == nil {
		var entries []Entry
		if jsonErr := json.Unmarshal(raw, &entries); jsonErr == nil {
			return entries, nil
		}
		log.Warn("Повреждённый кэш листинга, перечитываем")
	} else if !errors.Is(err, redis.Nil) {
		log.WithError(err).Warn("Redis недоступен, читаем каталог напрямую")
	}

	entries, err := c.next.List(ctx)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(entries); err == nil {
		if err := c.rdb.Set(ctx, listingCacheKey, raw, c.ttl).Err(); err != nil {
			log.WithError(err).Warn("Не удалось сохранить листинг в Redis")
		}
	}
	return entries, nil
}

func (c *CachedDirectory) Exists(ctx context.Context, name string) (Entry, bool, error) {
	entries, err := c.List(ctx)
	if err != nil {
		return Entry{}, false, err
	}
	e, ok := find(entries, name)
	return e, ok, nil
}

// Invalidate сбрасывает кэш (после добавления товара с новым файлом).
func (c *CachedDirectory) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, listingCacheKey).Err()
}

// NewRedisClient подключается к Redis и проверяет соединение.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}
