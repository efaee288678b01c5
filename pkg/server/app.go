package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	pkgch "SignalForge/pkg/clickhouse"
	"SignalForge/pkg/config"
	xhttp "SignalForge/pkg/http"
	pkgkafka "SignalForge/pkg/kafka"
	applogger "SignalForge/pkg/logger"
)

// Campaigner is a background leadership campaign.
type Campaigner interface {
	Start(ctx context.Context)
	Stop(ctx context.Context) error
}

// Components are the long-lived parts of the process. Optional parts are nil when disabled.
type Components struct {
	HTTP          *xhttp.Server
	Consumer      *pkgkafka.Consumer
	WindowHandler pkgkafka.MessageHandler
	Elector       Campaigner
	Publisher     io.Closer
	Producer      *pkgkafka.Producer
	Resolver      io.Closer
	Redis         io.Closer
	ClickHouse    *pkgch.Client
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg *config.Config
	c   Components
	l   *applogger.Logger
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, c Components) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{cfg: cfg, c: c, l: l}
}

// Run starts the application and blocks until SIGINT/SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts every component and blocks until ctx is cancelled, then shuts down.
func (a *App) RunContext(ctx context.Context) error {
	if a.c.Elector != nil {
		a.c.Elector.Start(ctx)
		a.l.Info("leader election started", applogger.String("key", a.cfg.Leader.Key))
	}

	if a.c.Consumer != nil && a.c.WindowHandler != nil {
		a.c.Consumer.RegisterHandler(a.c.WindowHandler)
		if err := a.c.Consumer.Start(); err != nil {
			a.l.Error("kafka consumer start error", applogger.Error(err))
			_ = a.shutdown()
			return fmt.Errorf("start consumer: %w", err)
		}
		a.l.Info("kafka consumer started", applogger.String("topic", a.c.WindowHandler.Topic()))
	}

	if a.c.HTTP != nil {
		if err := a.c.HTTP.Start(); err != nil {
			a.l.Error("http server start error", applogger.Error(err))
			_ = a.shutdown()
			return fmt.Errorf("start http: %w", err)
		}
	}

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown stops intake first, then delivery, then infrastructure clients.
func (a *App) shutdown() error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	note := func(what string, err error) {
		if err != nil {
			a.l.Warn(what+" error", applogger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", what, err))
		}
	}

	if a.c.Consumer != nil {
		note("kafka consumer stop", a.c.Consumer.Stop(ctx))
	}
	if a.c.HTTP != nil {
		note("http shutdown", a.c.HTTP.Stop(ctx))
	}
	if a.c.Elector != nil {
		note("leader release", a.c.Elector.Stop(ctx))
	}
	if a.c.Publisher != nil {
		note("publisher close", a.c.Publisher.Close())
	}
	a.l.RemoveCollector()
	if a.c.Producer != nil {
		note("kafka producer close", a.c.Producer.Close())
	}
	if a.c.Resolver != nil {
		note("resolver close", a.c.Resolver.Close())
	}
	if a.c.Redis != nil {
		note("redis close", a.c.Redis.Close())
	}
	if a.c.ClickHouse != nil {
		note("clickhouse close", a.c.ClickHouse.Close())
	}

	a.l.Info("shutdown complete")
	return errors.Join(errs...)
}
