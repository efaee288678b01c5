package repository

import (
	"context"
	"errors"
	"fmt"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/pkg/logger"
)

// NamedPublisher pairs a sink with the label used in logs and metrics.
type NamedPublisher struct {
	Name      string
	Publisher domrepo.SignalPublisher
}

// FanoutPublisher delivers every signal to all sinks. A failing sink does not stop
// delivery to the others; the joined error reports each failure.
type FanoutPublisher struct {
	sinks   []NamedPublisher
	metrics domrepo.Metrics
	l       *logger.Logger
}

var _ domrepo.SignalPublisher = (*FanoutPublisher)(nil)

func NewFanoutPublisher(l *logger.Logger, m domrepo.Metrics, sinks ...NamedPublisher) *FanoutPublisher {
	if l == nil {
		l = logger.Nop()
	}
	if m == nil {
		m = domrepo.NopMetrics{}
	}
	kept := make([]NamedPublisher, 0, len(sinks))
	for _, s := range sinks {
		if s.Publisher != nil {
			kept = append(kept, s)
		}
	}
	return &FanoutPublisher{sinks: kept, metrics: m, l: l}
}

// Sinks returns the sink names in delivery order.
func (f *FanoutPublisher) Sinks() []string {
	out := make([]string, len(f.sinks))
	for i, s := range f.sinks {
		out[i] = s.Name
	}
	return out
}

func (f *FanoutPublisher) Publish(ctx context.Context, sig models.Signal) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Publisher.Publish(ctx, sig); err != nil {
			f.metrics.RecordError("publish_" + s.Name)
			f.l.Warn("signal delivery failed",
				logger.String("sink", s.Name),
				logger.String("signal_id", sig.ID),
				logger.String("strategy", sig.StrategyID),
				logger.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (f *FanoutPublisher) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}
