package configresolver

import (
	"context"
	"errors"
	"sync"
	"time"

	"SignalForge/internal/domain/models"
)

var errUnavailable = errors.New("store unavailable")

// fakeStore is an in-memory ConfigStore with call counters and failure switches.
type fakeStore struct {
	name string

	mu      sync.Mutex
	entries map[string]models.StoredConfig
	audits  []models.AuditRecord

	gets, upserts, deletes int
	failGet, failWrite     bool
	failAudit              bool
	delay                  time.Duration
}

func newFakeStore(name string) *fakeStore {
	return &fakeStore{name: name, entries: map[string]models.StoredConfig{}}
}

func storeKey(id, symbol string) string { return id + "|" + symbol }

func (s *fakeStore) Name() string { return s.name }

func (s *fakeStore) put(id, symbol string, params models.Parameters, version int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[storeKey(id, symbol)] = models.StoredConfig{
		ID: storeKey(id, symbol), StrategyID: id, Symbol: symbol, Parameters: params, Version: version,
	}
}

func (s *fakeStore) remove(id, symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, storeKey(id, symbol))
}

func (s *fakeStore) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return nil
	}
	select {
	case <-time.After(s.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *fakeStore) Get(ctx context.Context, id, symbol string) (models.StoredConfig, bool, error) {
	s.mu.Lock()
	s.gets++
	fail := s.failGet
	s.mu.Unlock()

	if err := s.wait(ctx); err != nil {
		return models.StoredConfig{}, false, err
	}
	if fail {
		return models.StoredConfig{}, false, errUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.entries[storeKey(id, symbol)]
	return sc, ok, nil
}

func (s *fakeStore) Upsert(ctx context.Context, id, symbol string, params models.Parameters, meta models.WriteMetadata) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if s.failWrite {
		return "", errUnavailable
	}
	key := storeKey(id, symbol)
	s.entries[key] = models.StoredConfig{
		ID: key, StrategyID: id, Symbol: symbol, Parameters: params.Clone(),
		Version: meta.Version, UpdatedAt: meta.Timestamp, UpdatedBy: meta.Actor,
	}
	return key, nil
}

func (s *fakeStore) Delete(ctx context.Context, id, symbol string, meta models.WriteMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	if s.failWrite {
		return errUnavailable
	}
	delete(s.entries, storeKey(id, symbol))
	return nil
}

func (s *fakeStore) AppendAudit(ctx context.Context, rec models.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAudit || s.failWrite {
		return errUnavailable
	}
	s.audits = append(s.audits, rec)
	return nil
}

func (s *fakeStore) counts() (gets, upserts int, audits int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets, s.upserts, len(s.audits)
}

// fakeSchemas is a SchemaProvider over a fixed map.
type fakeSchemas struct {
	ids   []string
	specs map[string][]models.ParamSpec
}

func (f fakeSchemas) Schema(id string) ([]models.ParamSpec, bool) {
	s, ok := f.specs[id]
	return s, ok
}

func (f fakeSchemas) IDs() []string { return f.ids }

func (f fakeSchemas) List() []models.StrategyInfo {
	out := make([]models.StrategyInfo, 0, len(f.ids))
	for _, id := range f.ids {
		out = append(out, models.StrategyInfo{ID: id, Family: "test", Parameters: f.specs[id]})
	}
	return out
}

func testSchemas() fakeSchemas {
	return fakeSchemas{
		ids: []string{"x", "y"},
		specs: map[string][]models.ParamSpec{
			"x": {
				{Name: "threshold", Type: models.ParamFloat, Min: models.Bound(0), Max: models.Bound(50), Default: 25.0},
				{Name: "period", Type: models.ParamInt, Min: models.Bound(2), Max: models.Bound(100), Default: 14},
				{Name: "mode", Type: models.ParamString, AllowedValues: []string{"fast", "slow"}, Default: "fast"},
				{Name: "enabled", Type: models.ParamBool, Default: true},
			},
			"y": {
				{Name: "threshold", Type: models.ParamFloat, Min: models.Bound(0), Max: models.Bound(10), Default: 1.0},
			},
		},
	}
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
