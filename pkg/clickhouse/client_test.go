package clickhouse

import (
	"errors"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/stretchr/testify/assert"
)

func TestNewClientRequiresHost(t *testing.T) {
	if _, err := NewClient(WithPort(9000)); !errors.Is(err, ErrNoHost) {
		t.Fatalf("expected ErrNoHost, got %v", err)
	}
}

func TestBuildOptionsDefaults(t *testing.T) {
	cfg := defaultConfig()
	WithHost("ch.local")(&cfg)
	opts := buildOptions(cfg)

	assert.Equal(t, []string{"ch.local:9000"}, opts.Addr)
	assert.Equal(t, clickhouse.Native, opts.Protocol)
	assert.Equal(t, "default", opts.Auth.Database)
	assert.Equal(t, "default", opts.Auth.Username)
	assert.Equal(t, 5*time.Second, opts.DialTimeout)
	assert.NotContains(t, opts.Settings, "max_execution_time")
}

func TestBuildOptionsOverrides(t *testing.T) {
	cfg := defaultConfig()
	for _, opt := range []ClientOption{
		WithHost("::1"),
		WithPort(8123),
		WithDatabase("signalforge"),
		WithCredentials("", "secret"),
		WithHTTP(true),
		WithTimeouts(0, 2*time.Second),
		WithMaxExecutionTime(30 * time.Second),
	} {
		opt(&cfg)
	}
	opts := buildOptions(cfg)

	assert.Equal(t, []string{"[::1]:8123"}, opts.Addr)
	assert.Equal(t, clickhouse.HTTP, opts.Protocol)
	assert.Equal(t, "signalforge", opts.Auth.Database)
	assert.Equal(t, "default", opts.Auth.Username, "empty user keeps default")
	assert.Equal(t, "secret", opts.Auth.Password)
	assert.Equal(t, 5*time.Second, opts.DialTimeout, "zero dial keeps default")
	assert.Equal(t, 2*time.Second, opts.ReadTimeout)
	assert.Equal(t, 30, opts.Settings["max_execution_time"])
}
