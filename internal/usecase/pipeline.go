package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SignalForge/internal/assembler"
	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/internal/indicator"
	"SignalForge/internal/strategy"
	"SignalForge/pkg/logger"
)

// MinWindow is the shortest window the pipeline does any work for.
const MinWindow = 50

var (
	// ErrInvalidInput is returned for an empty symbol or timeframe.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidWindow is returned for a malformed candle window.
	ErrInvalidWindow = errors.New("invalid window")
)

// IndicatorEngine computes the indicator set of a window.
type IndicatorEngine interface {
	Compute(w models.Window, timeframe string) *indicator.Set
}

// ConfigSource supplies effective parameters and application settings.
type ConfigSource interface {
	GetEffectiveParameters(ctx context.Context, strategyID, symbol string) models.EffectiveConfig
	GetApplicationConfig(ctx context.Context) models.ApplicationConfig
}

// Scorer turns the factors of a draft into a confidence value.
type Scorer interface {
	Score(strategyID string, factors map[string]float64) float64
}

// Pipeline runs one window through indicators, strategies, scoring and
// assembly. It holds no per-invocation state and is safe for concurrent use.
type Pipeline struct {
	engine    IndicatorEngine
	registry  *strategy.Registry
	scorer    Scorer
	assembler *assembler.Assembler
	config    ConfigSource
	now       func() time.Time
	logger    *logger.Logger
	metrics   domrepo.Metrics
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineClock sets the source of signal timestamps.
func WithPipelineClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithPipelineLogger sets the logger.
func WithPipelineLogger(l *logger.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithPipelineMetrics sets the metrics recorder.
func WithPipelineMetrics(m domrepo.Metrics) PipelineOption {
	return func(p *Pipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

// NewPipeline wires a pipeline from its collaborators.
func NewPipeline(engine IndicatorEngine, registry *strategy.Registry, scorer Scorer, asm *assembler.Assembler, config ConfigSource, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		engine:    engine,
		registry:  registry,
		scorer:    scorer,
		assembler: asm,
		config:    config,
		now:       time.Now,
		logger:    logger.Nop(),
		metrics:   domrepo.NopMetrics{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Analyze evaluates every enabled strategy against w and returns the accepted
// signals in registration order. Strategy-level failures are contained; an
// error is returned only for malformed input.
func (p *Pipeline) Analyze(ctx context.Context, w models.Window, symbol, timeframe string) ([]models.Signal, error) {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol required", ErrInvalidInput)
	}
	if timeframe == "" {
		return nil, fmt.Errorf("%w: timeframe required", ErrInvalidInput)
	}
	signals := []models.Signal{}
	if len(w) < MinWindow {
		return signals, nil
	}
	if err := w.Validate(); err != nil {
		p.metrics.RecordError("invalid_window")
		return nil, fmt.Errorf("%w: %v", ErrInvalidWindow, err)
	}

	start := time.Now()
	defer func() { p.metrics.RecordLatency("analyze_seconds", time.Since(start).Seconds()) }()

	ind := p.engine.Compute(w, timeframe)
	app := p.config.GetApplicationConfig(ctx)
	ts := p.now().UTC()
	price := w.Last().Close

	log := p.logger.With(logger.String("symbol", symbol), logger.String("timeframe", timeframe))

	for _, e := range p.registry.Evaluators() {
		id := e.ID()
		if !app.Enabled(id) || len(w) < e.MinCandles() {
			continue
		}

		eff := p.config.GetEffectiveParameters(ctx, id, symbol)
		if !eff.Resolved() {
			continue
		}

		draft, err := p.registry.Run(e, w, ind, eff.Parameters)
		if err != nil {
			p.metrics.RecordEvaluatorFailure(id)
			log.Error("strategy evaluation failed", logger.String("strategy_id", id), logger.Error(err))
			continue
		}
		if draft.IsNone() {
			continue
		}
		d := draft.Unwrap()

		confidence := p.scorer.Score(id, d.Factors)
		sig, err := p.assembler.Assemble(d, confidence, assembler.Context{
			Symbol:       symbol,
			Timeframe:    timeframe,
			StrategyID:   id,
			CurrentPrice: price,
			Timestamp:    ts,
		})
		if err != nil {
			p.metrics.RecordValidationDrop(id)
			log.Warn("signal dropped", logger.String("strategy_id", id), logger.Error(err))
			continue
		}
		if !app.InBand(sig.Confidence) {
			log.Debug("signal outside confidence band",
				logger.String("strategy_id", id),
				logger.Float64("confidence", sig.Confidence),
			)
			continue
		}

		p.metrics.RecordSignal(id, sig.Action)
		signals = append(signals, sig)
	}
	return signals, nil
}
