package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/pkg/cache"
)

const (
	globalScope      = "_global"
	defaultAuditMax  = 100000
	redisStoreName   = "redis"
	auditRecordField = "record"
)

// RedisConfigStore keeps strategy parameters as JSON values and appends
// audit records to a Redis stream. It is the primary store.
type RedisConfigStore struct {
	cache       *cache.RedisCache
	auditStream string
	auditMaxLen int64
}

func NewRedisConfigStore(c *cache.RedisCache, auditStream string) *RedisConfigStore {
	if auditStream == "" {
		auditStream = "config:audit"
	}
	return &RedisConfigStore{cache: c, auditStream: auditStream, auditMaxLen: defaultAuditMax}
}

func (s *RedisConfigStore) Name() string { return redisStoreName }

// ConfigKey returns the unprefixed key of (strategyID, symbol).
func ConfigKey(strategyID, symbol string) string {
	if symbol == "" {
		symbol = globalScope
	}
	return cache.JoinKey("config", strategyID, symbol)
}

func (s *RedisConfigStore) Get(ctx context.Context, strategyID, symbol string) (models.StoredConfig, bool, error) {
	var sc models.StoredConfig
	err := s.cache.Get(ctx, ConfigKey(strategyID, symbol), &sc)
	if errors.Is(err, cache.ErrCacheMiss) {
		return models.StoredConfig{}, false, nil
	}
	if err != nil {
		return models.StoredConfig{}, false, fmt.Errorf("redis get config: %w", err)
	}
	return sc, true, nil
}

func (s *RedisConfigStore) Upsert(ctx context.Context, strategyID, symbol string, params models.Parameters, meta models.WriteMetadata) (string, error) {
	key := ConfigKey(strategyID, symbol)
	sc := models.StoredConfig{
		ID:         key,
		StrategyID: strategyID,
		Symbol:     symbol,
		Parameters: params,
		Version:    meta.Version,
		UpdatedAt:  meta.Timestamp,
		UpdatedBy:  meta.Actor,
	}
	// no expiry: overrides live until replaced or deleted
	if err := s.cache.Set(ctx, key, sc, 0); err != nil {
		return "", fmt.Errorf("redis upsert config: %w", err)
	}
	return key, nil
}

func (s *RedisConfigStore) Delete(ctx context.Context, strategyID, symbol string, _ models.WriteMetadata) error {
	if err := s.cache.Delete(ctx, ConfigKey(strategyID, symbol)); err != nil {
		return fmt.Errorf("redis delete config: %w", err)
	}
	return nil
}

func (s *RedisConfigStore) AppendAudit(ctx context.Context, rec models.AuditRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit: %w", err)
	}
	err = s.cache.Client().XAdd(ctx, &redis.XAddArgs{
		Stream: s.cache.Key(s.auditStream),
		MaxLen: s.auditMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"strategy_id":    rec.StrategyID,
			"operation":      string(rec.Operation),
			auditRecordField: string(b),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis append audit: %w", err)
	}
	return nil
}

// RecentAudit returns up to n audit records, newest first, optionally
// restricted to one strategy.
func (s *RedisConfigStore) RecentAudit(ctx context.Context, strategyID string, n int64) ([]models.AuditRecord, error) {
	if n <= 0 {
		n = 50
	}
	// over-read when filtering so that n matches can still be found
	count := n
	if strategyID != "" {
		count = n * 10
	}
	msgs, err := s.cache.Client().XRevRangeN(ctx, s.cache.Key(s.auditStream), "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("redis read audit: %w", err)
	}
	out := make([]models.AuditRecord, 0, n)
	for _, m := range msgs {
		raw, ok := m.Values[auditRecordField].(string)
		if !ok {
			continue
		}
		var rec models.AuditRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue
		}
		if strategyID != "" && rec.StrategyID != strategyID {
			continue
		}
		out = append(out, rec)
		if int64(len(out)) == n {
			break
		}
	}
	return out, nil
}

var _ domrepo.ConfigStore = (*RedisConfigStore)(nil)
