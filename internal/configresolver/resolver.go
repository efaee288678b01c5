package configresolver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/domain/repository"
	"SignalForge/pkg/cache"
	"SignalForge/pkg/logger"
)

const (
	DefaultTTL          = 60 * time.Second
	DefaultStoreTimeout = 2 * time.Second
	// DegradedTTL bounds how long a result is cached when a store errored while producing it.
	DegradedTTL = 5 * time.Second

	globalScope = "_global"
	systemActor = "system"
)

// ErrUnknownStrategy is returned by DescribeStrategy for unregistered ids.
var ErrUnknownStrategy = errors.New("unknown strategy")

var errNoStore = errors.New("store not configured")

// SchemaProvider supplies the declared parameters of every strategy.
type SchemaProvider interface {
	Schema(strategyID string) ([]models.ParamSpec, bool)
	IDs() []string
	List() []models.StrategyInfo
}

// Resolver resolves effective strategy parameters through the cascade
// cache -> symbol override -> global override -> default, and applies
// validated mutations. It is the only owner of the configuration cache.
type Resolver struct {
	primary  repository.ConfigStore
	fallback repository.ConfigStore
	schemas  SchemaProvider

	cache        *cache.MemoryCache
	ttl          time.Duration
	storeTimeout time.Duration
	now          func() time.Time

	group     singleflight.Group
	persisted sync.Map // strategy ids whose default this instance already persisted

	logger  *logger.Logger
	metrics repository.Metrics
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFallback sets the fallback store consulted after the primary.
func WithFallback(store repository.ConfigStore) Option {
	return func(r *Resolver) { r.fallback = store }
}

// WithTTL sets the per-key cache TTL.
func WithTTL(ttl time.Duration) Option {
	return func(r *Resolver) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithStoreTimeout bounds every store call.
func WithStoreTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.storeTimeout = d
		}
	}
}

// WithClock overrides the time source used for cache expiry and timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m repository.Metrics) Option {
	return func(r *Resolver) {
		if m != nil {
			r.metrics = m
		}
	}
}

// New creates a Resolver. primary may be nil, in which case only the
// fallback store and defaults are used.
func New(primary repository.ConfigStore, schemas SchemaProvider, opts ...Option) *Resolver {
	r := &Resolver{
		primary:      primary,
		schemas:      schemas,
		ttl:          DefaultTTL,
		storeTimeout: DefaultStoreTimeout,
		now:          time.Now,
		logger:       logger.Nop(),
		metrics:      repository.NopMetrics{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.cache = cache.NewMemoryCache(cache.WithMemoryMaxSize(10000), cache.WithMemoryClock(r.now))
	return r
}

// Close releases the cache.
func (r *Resolver) Close() error {
	return r.cache.Close()
}

// CacheKey returns the cache key of (strategyID, symbol).
func CacheKey(strategyID, symbol string) string {
	if symbol == "" {
		symbol = globalScope
	}
	return cache.JoinKey("strategy", strategyID, symbol)
}

// GetEffectiveParameters resolves the parameters of strategyID for symbol
// (empty = global). It never fails: when no tier yields a value the result
// has Source == SourceNone.
func (r *Resolver) GetEffectiveParameters(ctx context.Context, strategyID, symbol string) models.EffectiveConfig {
	symbol = models.NormalizeSymbol(symbol)
	key := CacheKey(strategyID, symbol)

	var cached models.EffectiveConfig
	if err := r.cache.Get(ctx, key, &cached); err == nil {
		cached.Parameters = cached.Parameters.Clone()
		cached.CacheHit = true
		r.metrics.RecordConfigLookup(cached.Source, true)
		return cached
	}

	// detached from the caller; each store call is bounded by storeTimeout
	lctx := context.WithoutCancel(ctx)
	v, _, _ := r.group.Do(key, func() (interface{}, error) {
		// another caller may have filled the entry while we waited to enter
		var again models.EffectiveConfig
		if err := r.cache.Get(lctx, key, &again); err == nil {
			return again, nil
		}
		eff, degraded := r.load(lctx, strategyID, symbol)
		if eff.Resolved() {
			ttl := r.ttl
			if degraded && ttl > DegradedTTL {
				ttl = DegradedTTL
			}
			eff.ExpiresAt = eff.ResolvedAt.Add(ttl)
			_ = r.cache.Set(lctx, key, eff, ttl)
		}
		return eff, nil
	})

	eff := v.(models.EffectiveConfig)
	eff.Parameters = eff.Parameters.Clone()
	eff.CacheHit = false
	r.metrics.RecordConfigLookup(eff.Source, false)
	return eff
}

// load walks the cascade below the cache. degraded reports that a configured
// store failed on the way, so a lower tier may be standing in for a real override.
func (r *Resolver) load(ctx context.Context, strategyID, symbol string) (eff models.EffectiveConfig, degraded bool) {
	specs, known := r.schemaFor(strategyID)
	defaults := defaultsOf(specs)

	eff = models.EffectiveConfig{
		StrategyID: strategyID,
		Symbol:     symbol,
		Source:     models.SourceNone,
		ResolvedAt: r.now(),
	}
	hit := func(sc models.StoredConfig, src models.ConfigSource) models.EffectiveConfig {
		eff.Parameters = defaults.Merge(sc.Parameters)
		eff.Source = src
		eff.Version = sc.Version
		eff.UpdatedAt = sc.UpdatedAt
		return eff
	}

	read := func(store repository.ConfigStore, sym string) (models.StoredConfig, bool, error) {
		sc, ok, err := r.get(ctx, store, strategyID, sym)
		if err != nil && !errors.Is(err, errNoStore) {
			degraded = true
		}
		return sc, ok, err
	}

	if symbol != "" {
		if sc, ok, _ := read(r.primary, symbol); ok {
			return hit(sc, models.SourceSymbolPrimary), degraded
		}
		if sc, ok, _ := read(r.fallback, symbol); ok {
			return hit(sc, models.SourceSymbolFallback), degraded
		}
	}

	sc, ok, primaryErr := read(r.primary, "")
	if ok {
		return hit(sc, models.SourceGlobalPrimary), degraded
	}
	if sc, ok, _ := read(r.fallback, ""); ok {
		return hit(sc, models.SourceGlobalFallback), degraded
	}

	if !known {
		r.logger.Warn("no configuration available",
			logger.String("strategy_id", strategyID),
			logger.String("symbol", symbol),
		)
		return eff, degraded
	}

	eff.Parameters = defaults
	eff.Source = models.SourceDefault
	eff.UpdatedAt = eff.ResolvedAt
	// only a clean miss on the primary proves there is nothing to overwrite
	if primaryErr == nil && r.primary != nil {
		r.persistDefault(ctx, strategyID, defaults)
	}
	return eff, degraded
}

// get reads one store with a bounded timeout. A nil store, an error and a
// timeout all read as "absent"; the error is returned for the caller's bookkeeping.
func (r *Resolver) get(ctx context.Context, store repository.ConfigStore, strategyID, symbol string) (models.StoredConfig, bool, error) {
	if store == nil {
		return models.StoredConfig{}, false, errNoStore
	}
	cctx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	defer cancel()

	sc, ok, err := store.Get(cctx, strategyID, symbol)
	if err != nil {
		r.metrics.RecordError("config_store_" + store.Name())
		r.logger.Warn("config store unavailable",
			logger.String("store", store.Name()),
			logger.String("strategy_id", strategyID),
			logger.String("symbol", symbol),
			logger.Error(err),
		)
		return models.StoredConfig{}, false, err
	}
	return sc, ok, nil
}

// persistDefault writes the hardcoded default to the primary store as the
// global entry, at most once per strategy per process. Failures are logged only.
func (r *Resolver) persistDefault(ctx context.Context, strategyID string, params models.Parameters) {
	if _, already := r.persisted.LoadOrStore(strategyID, struct{}{}); already {
		return
	}

	now := r.now()
	meta := models.WriteMetadata{Actor: systemActor, Reason: "auto-persisted default", Version: 1, Timestamp: now}
	cctx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	defer cancel()

	if _, err := r.primary.Upsert(cctx, strategyID, "", params, meta); err != nil {
		r.persisted.Delete(strategyID)
		r.logger.Warn("failed to persist default configuration",
			logger.String("strategy_id", strategyID),
			logger.Error(err),
		)
		return
	}
	rec := models.AuditRecord{
		ID:            uuid.NewString(),
		StrategyID:    strategyID,
		Operation:     models.AuditAutoDefault,
		NewParameters: params.Clone(),
		Actor:         systemActor,
		Reason:        meta.Reason,
		Version:       meta.Version,
		Timestamp:     now,
	}
	if err := r.primary.AppendAudit(cctx, rec); err != nil {
		r.logger.Warn("failed to audit default configuration",
			logger.String("strategy_id", strategyID),
			logger.Error(err),
		)
	}
	r.logger.Info("persisted default configuration", logger.String("strategy_id", strategyID))
}

// GetApplicationConfig resolves the application settings.
func (r *Resolver) GetApplicationConfig(ctx context.Context) models.ApplicationConfig {
	eff := r.GetEffectiveParameters(ctx, ApplicationID, "")
	return toApplicationConfig(eff, r.schemas.IDs())
}

// Invalidate drops the cache entry of (strategyID, symbol).
func (r *Resolver) Invalidate(ctx context.Context, strategyID, symbol string) {
	_ = r.cache.Delete(ctx, CacheKey(strategyID, symbol))
}

// InvalidateAll drops every cache entry.
func (r *Resolver) InvalidateAll(ctx context.Context) {
	_ = r.cache.DeleteByPattern(ctx, cache.PrefixPattern("strategy:"))
}

// ListStrategies returns every configurable entry, the application settings first.
func (r *Resolver) ListStrategies() []models.StrategyInfo {
	list := r.schemas.List()
	out := make([]models.StrategyInfo, 0, len(list)+1)
	out = append(out, applicationInfo(r.schemas.IDs()))
	return append(out, list...)
}

// DescribeStrategy returns the declared parameters of one entry.
func (r *Resolver) DescribeStrategy(strategyID string) (models.StrategyInfo, error) {
	if strategyID == ApplicationID {
		return applicationInfo(r.schemas.IDs()), nil
	}
	for _, info := range r.schemas.List() {
		if info.ID == strategyID {
			return info, nil
		}
	}
	return models.StrategyInfo{}, fmt.Errorf("describe %s: %w", strategyID, ErrUnknownStrategy)
}

func (r *Resolver) schemaFor(strategyID string) ([]models.ParamSpec, bool) {
	if strategyID == ApplicationID {
		return applicationSchema(r.schemas.IDs()), true
	}
	return r.schemas.Schema(strategyID)
}

func defaultsOf(specs []models.ParamSpec) models.Parameters {
	out := make(models.Parameters, len(specs))
	for _, s := range specs {
		if s.Default != nil {
			out[s.Name] = s.Default
		}
	}
	return out.Clone()
}
