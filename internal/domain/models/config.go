package models

import "time"

// ConfigSource names the cascade tier that produced an EffectiveConfig.
type ConfigSource string

const (
	SourceSymbolPrimary  ConfigSource = "symbol_override_primary"
	SourceSymbolFallback ConfigSource = "symbol_override_fallback"
	SourceGlobalPrimary  ConfigSource = "global_override_primary"
	SourceGlobalFallback ConfigSource = "global_override_fallback"
	SourceDefault        ConfigSource = "default"
	SourceNone           ConfigSource = "none"
)

// EffectiveConfig is the parameter set applying after cascade resolution, plus provenance.
type EffectiveConfig struct {
	StrategyID string       `json:"strategy_id"`
	Symbol     string       `json:"symbol,omitempty"`
	Parameters Parameters   `json:"parameters"`
	Source     ConfigSource `json:"source"`
	Version    int64        `json:"version"`
	UpdatedAt  time.Time    `json:"updated_at"`
	ResolvedAt time.Time    `json:"resolved_at"`
	ExpiresAt  time.Time    `json:"expires_at"`
	CacheHit   bool         `json:"cache_hit"`
}

// Resolved reports whether any cascade tier produced parameters.
func (c EffectiveConfig) Resolved() bool { return c.Source != SourceNone && c.Source != "" }

// StoredConfig is a parameter set as held by a configuration store.
type StoredConfig struct {
	ID         string     `json:"id"`
	StrategyID string     `json:"strategy_id"`
	Symbol     string     `json:"symbol,omitempty"` // empty = global
	Parameters Parameters `json:"parameters"`
	Version    int64      `json:"version"`
	UpdatedAt  time.Time  `json:"updated_at"`
	UpdatedBy  string     `json:"updated_by"`
}

// WriteMetadata accompanies an upsert.
type WriteMetadata struct {
	Actor     string
	Reason    string
	Version   int64
	Timestamp time.Time
}

// AuditOperation classifies an audit record.
type AuditOperation string

const (
	AuditSet         AuditOperation = "set"
	AuditDelete      AuditOperation = "delete"
	AuditAutoDefault AuditOperation = "auto_default"
)

// AuditRecord describes one configuration mutation. Append-only.
type AuditRecord struct {
	ID            string         `json:"id"`
	StrategyID    string         `json:"strategy_id"`
	Symbol        string         `json:"symbol,omitempty"`
	Operation     AuditOperation `json:"operation"`
	OldParameters Parameters     `json:"old_parameters,omitempty"`
	NewParameters Parameters     `json:"new_parameters,omitempty"`
	Actor         string         `json:"actor"`
	Reason        string         `json:"reason,omitempty"`
	Version       int64          `json:"version"`
	Timestamp     time.Time      `json:"timestamp"`
}

// ApplicationConfig drives the orchestrator: which strategies run and the accepted confidence band.
type ApplicationConfig struct {
	EnabledStrategies []string     `json:"enabled_strategies"`
	MinConfidence     float64      `json:"min_confidence"`
	MaxConfidence     float64      `json:"max_confidence"`
	Source            ConfigSource `json:"source"`
	CacheHit          bool         `json:"cache_hit"`
}

// Enabled reports whether id is in the enabled set.
func (a ApplicationConfig) Enabled(id string) bool {
	for _, s := range a.EnabledStrategies {
		if s == id {
			return true
		}
	}
	return false
}

// InBand reports whether confidence lies within [MinConfidence, MaxConfidence].
func (a ApplicationConfig) InBand(confidence float64) bool {
	return confidence >= a.MinConfidence && confidence <= a.MaxConfidence
}
