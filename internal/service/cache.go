package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segyhp/fatura-engine/internal/domain"
	customError "github.com/segyhp/fatura-engine/pkg/errors"

	"github.com/redis/go-redis/v9"
)

// StatementCache stores closed statements under a per-owner ledger version.
// Callers read Version once before touching the store and pass it to both Get
// and Set, so a statement built from data older than a write is filed under
// a version Invalidate has already moved past.
type StatementCache interface {
	Version(ctx context.Context, ownerID string) (int64, error)
	Get(ctx context.Context, ownerID string, version int64, period domain.Period) (*domain.Statement, error)
	Set(ctx context.Context, statement *domain.Statement, version int64) error
	Invalidate(ctx context.Context, ownerID string) error
}

// RedisStatementCache keys entries by a per-owner ledger version. Writes bump
// the version, so stale entries are never read and simply expire.
type RedisStatementCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStatementCache(client *redis.Client, ttl time.Duration) *RedisStatementCache {
	return &RedisStatementCache{client: client, ttl: ttl}
}

func (c *RedisStatementCache) Get(ctx context.Context, ownerID string, version int64, period domain.Period) (*domain.Statement, error) {
	raw, err := c.client.Get(ctx, statementKey(ownerID, version, period)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, customError.WrapCacheError(err)
	}

	var statement domain.Statement
	if err := json.Unmarshal(raw, &statement); err != nil {
		return nil, customError.WrapCacheError(err)
	}
	return &statement, nil
}

func (c *RedisStatementCache) Set(ctx context.Context, statement *domain.Statement, version int64) error {
	raw, err := json.Marshal(statement)
	if err != nil {
		return customError.WrapCacheError(err)
	}

	key := statementKey(statement.OwnerID, version, statement.Period)
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return customError.WrapCacheError(err)
	}
	return nil
}

func (c *RedisStatementCache) Invalidate(ctx context.Context, ownerID string) error {
	if err := c.client.Incr(ctx, versionKey(ownerID)).Err(); err != nil {
		return customError.WrapCacheError(err)
	}
	return nil
}

// Version returns the owner's current ledger version, 0 before the first write.
func (c *RedisStatementCache) Version(ctx context.Context, ownerID string) (int64, error) {
	v, err := c.client.Get(ctx, versionKey(ownerID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, customError.WrapCacheError(err)
	}
	return v, nil
}

func versionKey(ownerID string) string {
	return fmt.Sprintf("fatura:version:%s", ownerID)
}

func statementKey(ownerID string, version int64, period domain.Period) string {
	return fmt.Sprintf("fatura:statement:%s:%d:%04d-%02d", ownerID, version, period.Year, period.Month)
}
