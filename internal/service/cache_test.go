package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/fatura-engine/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatementKeys(t *testing.T) {
	assert.Equal(t, "fatura:version:1001", versionKey("1001"))
	assert.Equal(t, "fatura:statement:1001:7:2025-03", statementKey("1001", 7, domain.Period{Month: 3, Year: 2025}))
}

func setupTestRedis(t *testing.T) *redis.Client {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})
	return client
}

func TestRedisStatementCache(t *testing.T) {
	client := setupTestRedis(t)
	cache := NewRedisStatementCache(client, time.Minute)
	ctx := context.Background()

	owner := "cache-" + uuid.NewString()
	period := domain.Period{Month: 9, Year: 2025}

	version, err := cache.Version(ctx, owner)
	require.NoError(t, err)
	assert.Zero(t, version)

	miss, err := cache.Get(ctx, owner, version, period)
	require.NoError(t, err)
	assert.Nil(t, miss)

	statement := &domain.Statement{
		OwnerID: owner,
		Kind:    domain.StatementKindClosed,
		Period:  period,
		Items: []domain.StatementLine{{
			Kind:             domain.LineKindInstallment,
			SourceID:         uuid.New(),
			Description:      "mercado",
			Amount:           decimal.RequireFromString("33.33"),
			DisplayDate:      time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
			InstallmentIndex: 2,
			InstallmentCount: 3,
		}},
		Totals: domain.StatementTotals{
			ParcelasTotal: decimal.RequireFromString("33.33"),
			SaldoPeriodo:  decimal.RequireFromString("33.33"),
		},
	}
	require.NoError(t, cache.Set(ctx, statement, version))

	hit, err := cache.Get(ctx, owner, version, period)
	require.NoError(t, err)
	require.NotNil(t, hit)
	require.Len(t, hit.Items, 1)
	assert.True(t, hit.Items[0].Amount.Equal(statement.Items[0].Amount))
	assert.True(t, hit.Totals.SaldoPeriodo.Equal(statement.Totals.SaldoPeriodo))

	require.NoError(t, cache.Invalidate(ctx, owner))

	current, err := cache.Version(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, version+1, current)

	stale, err := cache.Get(ctx, owner, current, period)
	require.NoError(t, err)
	assert.Nil(t, stale)
}

func TestRedisStatementCache_SetUnderOldVersionIsUnreachable(t *testing.T) {
	client := setupTestRedis(t)
	cache := NewRedisStatementCache(client, time.Minute)
	ctx := context.Background()

	owner := "cache-" + uuid.NewString()
	period := domain.Period{Month: 9, Year: 2025}

	before, err := cache.Version(ctx, owner)
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx, owner))

	stale := &domain.Statement{OwnerID: owner, Kind: domain.StatementKindClosed, Period: period}
	require.NoError(t, cache.Set(ctx, stale, before))

	current, err := cache.Version(ctx, owner)
	require.NoError(t, err)
	got, err := cache.Get(ctx, owner, current, period)
	require.NoError(t, err)
	assert.Nil(t, got)
}
