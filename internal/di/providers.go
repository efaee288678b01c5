package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"SignalForge/internal/assembler"
	"SignalForge/internal/confidence"
	"SignalForge/internal/configresolver"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/internal/handler/api"
	"SignalForge/internal/handler/ws"
	"SignalForge/internal/indicator"
	internalrepo "SignalForge/internal/repository"
	"SignalForge/internal/service/leader"
	"SignalForge/internal/service/ratelimit"
	"SignalForge/internal/strategy"
	"SignalForge/internal/usecase"
	"SignalForge/pkg/cache"
	pkgch "SignalForge/pkg/clickhouse"
	"SignalForge/pkg/config"
	xhttp "SignalForge/pkg/http"
	pkgkafka "SignalForge/pkg/kafka"
	applogger "SignalForge/pkg/logger"
	"SignalForge/pkg/metrics"
	"SignalForge/pkg/server"
)

// ProvideLogger creates the process logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: "stdout"})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvidePrometheusRegistry creates the registry served on the metrics endpoint.
func ProvidePrometheusRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) domrepo.Metrics {
	return metrics.New(reg)
}

// ProvideRedisCache connects to Redis, or returns nil when disabled. An unreachable
// server at startup is not fatal: the resolver falls through to its other tiers.
func ProvideRedisCache(cfg *config.Config, l *applogger.Logger) *cache.RedisCache {
	if !cfg.Redis.Enabled {
		return nil
	}
	rc := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, 2, cfg.Redis.DialTimeout),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err := rc.Ping(context.Background()); err != nil {
		l.Warn("redis unreachable at startup; continuing", applogger.String("addr", cfg.Redis.Addr), applogger.Error(err))
	}
	return rc
}

// ProvideClickHouseClient creates a ClickHouse client and the config tables, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.ConfigSchema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideStrategyRegistry returns the fixed strategy catalog.
func ProvideStrategyRegistry() *strategy.Registry {
	return strategy.NewDefaultRegistry()
}

// ProvideResolver builds the configuration resolver over Redis (primary) and ClickHouse (fallback).
func ProvideResolver(
	cfg *config.Config,
	rc *cache.RedisCache,
	ch *pkgch.Client,
	registry *strategy.Registry,
	m domrepo.Metrics,
	l *applogger.Logger,
) *configresolver.Resolver {
	opts := []configresolver.Option{
		configresolver.WithTTL(cfg.Resolver.CacheTTL),
		configresolver.WithStoreTimeout(cfg.Resolver.StoreTimeout),
		configresolver.WithLogger(l.With(applogger.String("component", "resolver"))),
		configresolver.WithMetrics(m),
	}
	if ch != nil {
		store := internalrepo.NewCHConfigStore(ch)
		store.SetLogger(l)
		opts = append(opts, configresolver.WithFallback(store))
	}
	var primary domrepo.ConfigStore
	if rc != nil {
		primary = internalrepo.NewRedisConfigStore(rc, cfg.Redis.AuditStream)
	}
	return configresolver.New(primary, registry, opts...)
}

// ProvidePipeline assembles the signal pipeline.
func ProvidePipeline(
	cfg *config.Config,
	registry *strategy.Registry,
	resolver *configresolver.Resolver,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.Pipeline {
	return usecase.NewPipeline(
		indicator.NewEngine(indicator.WithVolatilityWindow(cfg.Indicator.VolatilityWindow)),
		registry,
		confidence.NewCalculator(),
		assembler.New(),
		resolver,
		usecase.WithPipelineLogger(l.With(applogger.String("component", "pipeline"))),
		usecase.WithPipelineMetrics(m),
	)
}

// ProvideKafkaProducer creates a Kafka producer when any component publishes to Kafka.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry) (*pkgkafka.Producer, error) {
	if !cfg.Publish.Kafka && !cfg.Log.Collector.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithDelivery(cfg.Kafka.RequiredAcks, cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithProducerRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideHub creates the websocket signal stream, or nil when disabled.
func ProvideHub(cfg *config.Config, l *applogger.Logger) *ws.Hub {
	if !cfg.Publish.WebSocket.Enabled {
		return nil
	}
	return ws.NewHub(cfg.Publish.WebSocket.BufferSize, l.With(applogger.String("component", "ws")))
}

// ProvideSignalPublisher fans signals out to every configured sink.
func ProvideSignalPublisher(
	cfg *config.Config,
	producer *pkgkafka.Producer,
	hub *ws.Hub,
	m domrepo.Metrics,
	l *applogger.Logger,
) *internalrepo.FanoutPublisher {
	var sinks []internalrepo.NamedPublisher
	if cfg.Publish.Kafka && producer != nil {
		sinks = append(sinks, internalrepo.NamedPublisher{
			Name:      "kafka",
			Publisher: internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.SignalTopic),
		})
	}
	if cfg.Publish.Webhook.URL != "" {
		client := xhttp.NewClient(
			xhttp.WithTimeout(cfg.Publish.Webhook.Timeout),
			xhttp.WithRetry(cfg.Publish.Webhook.Retries, 200*time.Millisecond),
			xhttp.WithUserAgent("signalforge-"+cfg.Environment),
		)
		sinks = append(sinks, internalrepo.NamedPublisher{
			Name:      "webhook",
			Publisher: internalrepo.NewWebhookSignalPublisher(client, cfg.Publish.Webhook.URL),
		})
	}
	if hub != nil {
		sinks = append(sinks, internalrepo.NamedPublisher{Name: "websocket", Publisher: hub})
	}
	return internalrepo.NewFanoutPublisher(l.With(applogger.String("component", "publisher")), m, sinks...)
}

// ProvideElector creates the Redis leader election, or nil when disabled.
func ProvideElector(cfg *config.Config, rc *cache.RedisCache, l *applogger.Logger) *leader.Elector {
	if !cfg.Leader.Enabled || rc == nil {
		return nil
	}
	return leader.NewElector(
		leader.NewRedisLease(rc.Client()),
		rc.Key(cfg.Leader.Key),
		cfg.Leader.TTL,
		cfg.Leader.RenewInterval,
		leader.WithLogger(l.With(applogger.String("component", "leader"))),
	)
}

// ProvideLeaderGate reports leadership from the elector, or always-leader without one.
func ProvideLeaderGate(e *leader.Elector) domrepo.LeaderGate {
	if e == nil {
		return leader.Always{}
	}
	return e
}

// ProvideWindowHandler binds the pipeline to the candle window topic.
func ProvideWindowHandler(
	cfg *config.Config,
	pipeline *usecase.Pipeline,
	publisher *internalrepo.FanoutPublisher,
	gate domrepo.LeaderGate,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.WindowHandler {
	return usecase.NewWindowHandler(cfg.Kafka.WindowTopic, pipeline, publisher, gate, m,
		l.With(applogger.String("component", "window_handler")))
}

// ProvideKafkaConsumer creates the candle window consumer, or nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config, reg *prometheus.Registry, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l.With(applogger.String("component", "consumer"))),
		pkgkafka.WithConsumerRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideAdminHandler creates the admin API.
func ProvideAdminHandler(
	resolver *configresolver.Resolver,
	pipeline *usecase.Pipeline,
	rc *cache.RedisCache,
	cfg *config.Config,
	l *applogger.Logger,
) *api.AdminHandler {
	opts := []api.AdminOption{api.WithRateLimiter(ratelimit.New(10, 2))}
	if rc != nil {
		opts = append(opts, api.WithAuditReader(internalrepo.NewRedisConfigStore(rc, cfg.Redis.AuditStream)))
	}
	return api.NewAdminHandler(l.With(applogger.String("component", "api")), resolver, pipeline, opts...)
}

// ProvideHTTPServer creates the Echo server with every HTTP handler mounted.
func ProvideHTTPServer(
	cfg *config.Config,
	admin *api.AdminHandler,
	hub *ws.Hub,
	reg *prometheus.Registry,
	l *applogger.Logger,
) *xhttp.Server {
	handlers := []xhttp.Handler{admin}
	if hub != nil {
		handlers = append(handlers, hub)
	}
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(handlers,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(true, cfg.Server.CORSOrigins...),
		xhttp.WithMetrics(reg, reg, metricsPath),
		xhttp.WithServerLogger(l.With(applogger.String("component", "http"))),
	)
}

// ProvideApp creates the application server. Disabled components stay out of
// Components so that no typed nil reaches an interface field.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	handler *usecase.WindowHandler,
	elector *leader.Elector,
	publisher *internalrepo.FanoutPublisher,
	producer *pkgkafka.Producer,
	resolver *configresolver.Resolver,
	rc *cache.RedisCache,
	ch *pkgch.Client,
) *server.App {
	c := server.Components{
		HTTP:          httpServer,
		Consumer:      consumer,
		WindowHandler: handler,
		Publisher:     publisher,
		Producer:      producer,
		Resolver:      resolver,
		ClickHouse:    ch,
	}
	if elector != nil {
		c.Elector = elector
	}
	if rc != nil {
		c.Redis = rc
	}
	if cfg.Log.Collector.Enabled && producer != nil {
		minLevel, _ := zerolog.ParseLevel(cfg.Log.Collector.MinLevel)
		l.AddCollector(&applogger.CollectionConfig{
			Service:        "signalforge-" + cfg.Environment,
			MinLevel:       minLevel,
			TimeInterval:   cfg.Log.Collector.Interval,
			CountThreshold: cfg.Log.Collector.CountThreshold,
			Topic:          cfg.Log.Collector.Topic,
			Publisher:      producer,
		})
	}
	return server.New(cfg, l, c)
}
