package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	pkgch "SignalForge/pkg/clickhouse"
	applogger "SignalForge/pkg/logger"
)

const (
	configTable         = "strategy_config"
	auditTable          = "config_audit"
	clickhouseStoreName = "clickhouse"
)

// ConfigSchema creates the tables of CHConfigStore. Rows are never updated
// in place: the newest row per (strategy_id, symbol) by updated_at wins and
// deletes are tombstones.
var ConfigSchema = []string{
	`CREATE TABLE IF NOT EXISTS ` + configTable + ` (
        strategy_id String,
        symbol      String,
        parameters  String,
        version     Int64,
        updated_at  DateTime64(3, 'UTC'),
        updated_by  String,
        is_deleted  UInt8
    ) ENGINE = ReplacingMergeTree(updated_at)
    ORDER BY (strategy_id, symbol)`,
	`CREATE TABLE IF NOT EXISTS ` + auditTable + ` (
        id             UUID,
        strategy_id    String,
        symbol         String,
        operation      LowCardinality(String),
        old_parameters String,
        new_parameters String,
        actor          String,
        reason         String,
        version        Int64,
        ts             DateTime64(3, 'UTC')
    ) ENGINE = MergeTree
    ORDER BY (strategy_id, ts)`,
}

// CHConfigStore implements ConfigStore backed by ClickHouse. It is the
// fallback store and the durable audit log.
type CHConfigStore struct {
	db *sql.DB
	sq squirrel.StatementBuilderType
	l  *applogger.Logger
}

func NewCHConfigStore(ch *pkgch.Client) *CHConfigStore {
	return newCHConfigStore(ch.DB())
}

func newCHConfigStore(db *sql.DB) *CHConfigStore {
	return &CHConfigStore{
		db: db,
		sq: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		l:  applogger.Nop(),
	}
}

// SetLogger injects a structured logger.
func (s *CHConfigStore) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

func (s *CHConfigStore) Name() string { return clickhouseStoreName }

func (s *CHConfigStore) getQuery(strategyID, symbol string) (string, []interface{}, error) {
	return s.sq.
		Select("parameters", "version", "updated_at", "updated_by", "is_deleted").
		From(configTable).
		Where(squirrel.Eq{"strategy_id": strategyID, "symbol": symbol}).
		OrderBy("updated_at DESC").
		Limit(1).
		ToSql()
}

func (s *CHConfigStore) Get(ctx context.Context, strategyID, symbol string) (models.StoredConfig, bool, error) {
	q, args, err := s.getQuery(strategyID, symbol)
	if err != nil {
		return models.StoredConfig{}, false, fmt.Errorf("build config query: %w", err)
	}

	var (
		raw       string
		sc        models.StoredConfig
		isDeleted uint8
	)
	err = s.db.QueryRowContext(ctx, q, args...).Scan(&raw, &sc.Version, &sc.UpdatedAt, &sc.UpdatedBy, &isDeleted)
	if errors.Is(err, sql.ErrNoRows) {
		return models.StoredConfig{}, false, nil
	}
	if err != nil {
		s.l.Error("clickhouse get_config query error",
			applogger.String("strategy_id", strategyID),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return models.StoredConfig{}, false, fmt.Errorf("clickhouse get config: %w", err)
	}
	if isDeleted == 1 {
		return models.StoredConfig{}, false, nil
	}
	if err := json.Unmarshal([]byte(raw), &sc.Parameters); err != nil {
		return models.StoredConfig{}, false, fmt.Errorf("decode parameters: %w", err)
	}
	sc.ID = ConfigKey(strategyID, symbol)
	sc.StrategyID = strategyID
	sc.Symbol = symbol
	return sc, true, nil
}

func (s *CHConfigStore) upsertQuery(strategyID, symbol string, params models.Parameters, meta models.WriteMetadata, deleted bool) (string, []interface{}, error) {
	raw := []byte("{}")
	if params != nil {
		var err error
		if raw, err = json.Marshal(params); err != nil {
			return "", nil, fmt.Errorf("encode parameters: %w", err)
		}
	}
	var tomb uint8
	if deleted {
		tomb = 1
	}
	return s.sq.
		Insert(configTable).
		Columns("strategy_id", "symbol", "parameters", "version", "updated_at", "updated_by", "is_deleted").
		Values(strategyID, symbol, string(raw), meta.Version, stamp(meta.Timestamp), meta.Actor, tomb).
		ToSql()
}

func (s *CHConfigStore) Upsert(ctx context.Context, strategyID, symbol string, params models.Parameters, meta models.WriteMetadata) (string, error) {
	if err := s.write(ctx, strategyID, symbol, params, meta, false); err != nil {
		return "", err
	}
	return ConfigKey(strategyID, symbol), nil
}

func (s *CHConfigStore) Delete(ctx context.Context, strategyID, symbol string, meta models.WriteMetadata) error {
	return s.write(ctx, strategyID, symbol, nil, meta, true)
}

func (s *CHConfigStore) write(ctx context.Context, strategyID, symbol string, params models.Parameters, meta models.WriteMetadata, deleted bool) error {
	q, args, err := s.upsertQuery(strategyID, symbol, params, meta, deleted)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		s.l.Error("clickhouse write_config error",
			applogger.String("strategy_id", strategyID),
			applogger.String("symbol", symbol),
			applogger.Bool("tombstone", deleted),
			applogger.Error(err),
		)
		return fmt.Errorf("clickhouse write config: %w", err)
	}
	return nil
}

func (s *CHConfigStore) auditQuery(rec models.AuditRecord) (string, []interface{}, error) {
	oldRaw, err := jsonOrEmpty(rec.OldParameters)
	if err != nil {
		return "", nil, err
	}
	newRaw, err := jsonOrEmpty(rec.NewParameters)
	if err != nil {
		return "", nil, err
	}
	return s.sq.
		Insert(auditTable).
		Columns("id", "strategy_id", "symbol", "operation", "old_parameters", "new_parameters", "actor", "reason", "version", "ts").
		Values(rec.ID, rec.StrategyID, rec.Symbol, string(rec.Operation), oldRaw, newRaw, rec.Actor, rec.Reason, rec.Version, stamp(rec.Timestamp)).
		ToSql()
}

func (s *CHConfigStore) AppendAudit(ctx context.Context, rec models.AuditRecord) error {
	q, args, err := s.auditQuery(rec)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("clickhouse append audit: %w", err)
	}
	return nil
}

func jsonOrEmpty(p models.Parameters) (string, error) {
	if p == nil {
		return "", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode parameters: %w", err)
	}
	return string(b), nil
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC()
}

var _ domrepo.ConfigStore = (*CHConfigStore)(nil)
