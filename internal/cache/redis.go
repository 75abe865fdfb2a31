// Package cache хранит в redis готовые ответы GET /subscription/{id}.
// Каждая запись помечена версией группы: запись более старой версии
// никогда не перетирает более новую.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/subshare/internal/config"
	"github.com/magabrotheeeer/subshare/internal/models"
)

const keyPrefix = "group:details:"

// putScript сохраняет данные, если версия в кэше не новее переданной.
var putScript = redis.NewScript(`
local cur = tonumber(redis.call('HGET', KEYS[1], 'version') or '0')
local new = tonumber(ARGV[1])
if cur > new then
	return 0
end
if cur == new and redis.call('HEXISTS', KEYS[1], 'data') == 1 then
	return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'data', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// bumpScript фиксирует новую версию группы и удаляет устаревшие данные.
var bumpScript = redis.NewScript(`
local cur = tonumber(redis.call('HGET', KEYS[1], 'version') or '0')
local new = tonumber(ARGV[1])
if new <= cur then
	return 0
end
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1], 'version', ARGV[1])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return 1
`)

// Cache кэш деталей групп.
type Cache struct {
	Db  *redis.Client
	ttl time.Duration
}

// InitServer подключается к redis и проверяет соединение.
func InitServer(ctx context.Context, cfg config.RedisConnection) (*Cache, error) {
	const op = "cache.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return New(db, cfg.CacheTTL), nil
}

// New оборачивает готовый клиент.
func New(db *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{Db: db, ttl: ttl}
}

func key(groupID string) string {
	return keyPrefix + groupID
}

// GetDetails возвращает закэшированные детали группы. Второй результат false, если записи нет.
func (c *Cache) GetDetails(ctx context.Context, groupID string) (*models.GroupDetails, bool, error) {
	const op = "cache.GetDetails"
	val, err := c.Db.HGet(ctx, key(groupID), "data").Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	var d models.GroupDetails
	if err := json.Unmarshal([]byte(val), &d); err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return &d, true, nil
}

// PutDetails сохраняет детали группы с версией d.Group.Version.
// Возвращает false, если в кэше уже лежит та же или более новая версия.
func (c *Cache) PutDetails(ctx context.Context, d *models.GroupDetails) (bool, error) {
	const op = "cache.PutDetails"
	data, err := json.Marshal(d)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	stored, err := putScript.Run(ctx, c.Db, []string{key(d.Group.ID)},
		strconv.FormatInt(d.Group.Version, 10), data, c.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return stored == 1, nil
}

// Bump сообщает кэшу о новой версии группы после записи.
// Данные более старых версий удаляются и больше не могут быть записаны.
func (c *Cache) Bump(ctx context.Context, groupID string, version int64) error {
	const op = "cache.Bump"
	if err := bumpScript.Run(ctx, c.Db, []string{key(groupID)},
		strconv.FormatInt(version, 10), c.ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Invalidate удаляет запись группы целиком.
func (c *Cache) Invalidate(ctx context.Context, groupID string) error {
	return c.Db.Del(ctx, key(groupID)).Err()
}

// Close закрывает соединение с redis.
func (c *Cache) Close() error {
	return c.Db.Close()
}
