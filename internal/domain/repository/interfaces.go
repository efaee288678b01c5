package repository

import (
	"context"

	"SignalForge/internal/domain/models"
)

// ConfigStore is a backing store for strategy parameters. symbol == "" addresses the global entry.
// Get returns (zero, false, nil) when no entry exists.
type ConfigStore interface {
	Name() string
	Get(ctx context.Context, strategyID, symbol string) (models.StoredConfig, bool, error)
	Upsert(ctx context.Context, strategyID, symbol string, params models.Parameters, meta models.WriteMetadata) (string, error)
	Delete(ctx context.Context, strategyID, symbol string, meta models.WriteMetadata) error
	AppendAudit(ctx context.Context, rec models.AuditRecord) error
}

// SignalPublisher delivers assembled signals downstream.
type SignalPublisher interface {
	Publish(ctx context.Context, sig models.Signal) error
	Close() error
}

// LeaderGate reports whether this instance is the active signal producer.
type LeaderGate interface {
	IsLeader() bool
}

// Metrics records pipeline and infrastructure measurements.
type Metrics interface {
	RecordSignal(strategyID string, action models.Action)
	RecordEvaluatorFailure(strategyID string)
	RecordValidationDrop(strategyID string)
	RecordConfigLookup(source models.ConfigSource, cacheHit bool)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}

// NopMetrics discards every measurement.
type NopMetrics struct{}

func (NopMetrics) RecordSignal(string, models.Action)           {}
func (NopMetrics) RecordEvaluatorFailure(string)                {}
func (NopMetrics) RecordValidationDrop(string)                  {}
func (NopMetrics) RecordConfigLookup(models.ConfigSource, bool) {}
func (NopMetrics) RecordError(string)                           {}
func (NopMetrics) RecordLatency(string, float64)                {}

var _ Metrics = NopMetrics{}
