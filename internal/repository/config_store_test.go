package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalForge/internal/domain/models"
)

func TestConfigKey(t *testing.T) {
	assert.Equal(t, "config:rsi2_extreme_oversold:_global", ConfigKey("rsi2_extreme_oversold", ""))
	assert.Equal(t, "config:macd_momentum:BTCUSDT", ConfigKey("macd_momentum", "BTCUSDT"))
}

func TestCHConfigStoreGetQuery(t *testing.T) {
	s := newCHConfigStore(nil)
	q, args, err := s.getQuery("macd_momentum", "")
	require.NoError(t, err)
	assert.Contains(t, q, "FROM strategy_config")
	assert.Contains(t, q, "strategy_id = ?")
	assert.Contains(t, q, "symbol = ?")
	assert.Contains(t, q, "ORDER BY updated_at DESC LIMIT 1")
	assert.Equal(t, []interface{}{"macd_momentum", ""}, args)
}

func TestCHConfigStoreWriteQueries(t *testing.T) {
	s := newCHConfigStore(nil)
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("ICT", 7*3600))
	meta := models.WriteMetadata{Actor: "alice", Version: 4, Timestamp: ts}

	q, args, err := s.upsertQuery("x", "ETHUSDT", models.Parameters{"period": 14}, meta, false)
	require.NoError(t, err)
	assert.Contains(t, q, "INSERT INTO strategy_config")
	require.Len(t, args, 7)
	assert.Equal(t, `{"period":14}`, args[2])
	assert.Equal(t, int64(4), args[3])
	assert.Equal(t, ts.UTC(), args[4])
	assert.Equal(t, uint8(0), args[6])

	_, args, err = s.upsertQuery("x", "ETHUSDT", nil, meta, true)
	require.NoError(t, err)
	assert.Equal(t, "{}", args[2])
	assert.Equal(t, uint8(1), args[6])
}

func TestCHConfigStoreAuditQuery(t *testing.T) {
	s := newCHConfigStore(nil)
	rec := models.AuditRecord{
		ID:            "4c0d8f9e-0000-4000-8000-000000000001",
		StrategyID:    "x",
		Operation:     models.AuditDelete,
		OldParameters: models.Parameters{"threshold": 1.5},
		Actor:         "bob",
		Version:       2,
		Timestamp:     time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	q, args, err := s.auditQuery(rec)
	require.NoError(t, err)
	assert.Contains(t, q, "INSERT INTO config_audit")
	require.Len(t, args, 10)
	assert.Equal(t, "delete", args[3])
	assert.Equal(t, `{"threshold":1.5}`, args[4])
	assert.Equal(t, "", args[5])
}
