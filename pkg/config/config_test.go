package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("kafka:\n  brokers: [\"k1:9092\"]\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Environment != "development" {
		t.Fatalf("environment default not applied: %q", c.Environment)
	}
	if c.Resolver.CacheTTL != 60*time.Second {
		t.Fatalf("cache ttl = %v", c.Resolver.CacheTTL)
	}
	if c.Kafka.WindowTopic != "candles.windows" || c.Kafka.Consumer.Workers != 4 {
		t.Fatalf("kafka defaults not applied: %+v", c.Kafka)
	}
	if !c.Publish.WebSocket.Enabled || !c.Redis.Enabled {
		t.Fatalf("boolean defaults not applied")
	}
}

func TestParseKeepsExplicitFalse(t *testing.T) {
	c, err := Parse([]byte("redis:\n  enabled: false\nkafka:\n  brokers: [\"k1:9092\"]\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Redis.Enabled {
		t.Fatalf("explicit false overwritten by default")
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"no brokers":        "kafka:\n  brokers: []\n",
		"bad log level":     "log:\n  level: loud\nkafka:\n  brokers: [\"k\"]\n",
		"leader no redis":   "redis:\n  enabled: false\nleader:\n  enabled: true\nkafka:\n  brokers: [\"k\"]\n",
		"renew too slow":    "leader:\n  enabled: true\n  ttl: 5s\n  renew_interval: 5s\nkafka:\n  brokers: [\"k\"]\n",
		"bad compression":   "kafka:\n  brokers: [\"k\"]\n  compression: brotli\n",
		"port out of range": "server:\n  port: 70000\nkafka:\n  brokers: [\"k\"]\n",
	}
	for name, in := range cases {
		if _, err := Parse([]byte(in)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestKafkaOptionalWhenUnused(t *testing.T) {
	in := "kafka:\n  consumer:\n    enabled: false\npublish:\n  kafka: false\n"
	if _, err := Parse([]byte(in)); err != nil {
		t.Fatalf("expected kafka to be optional: %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	env := map[string]string{
		"KAFKA_BROKERS": "a:1,b:2",
		"REDIS_ADDR":    "redis:6380",
		"WEBHOOK_URL":   "http://hooks/signals",
		"PORT":          "9090",
	}
	c.applyEnv(func(k string) string { return env[k] })

	if len(c.Kafka.Brokers) != 2 || c.Kafka.Brokers[1] != "b:2" {
		t.Fatalf("brokers = %v", c.Kafka.Brokers)
	}
	if c.Redis.Addr != "redis:6380" || c.Publish.Webhook.URL != "http://hooks/signals" || c.Server.Port != 9090 {
		t.Fatalf("env overrides not applied: %+v", c)
	}
}

func TestLoadRepositoryConfig(t *testing.T) {
	path := filepath.Join("..", "..", "config", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Skip("config/config.yaml not present")
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("load %s: %v", path, err)
	}
}
