package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	pkgkafka "SignalForge/pkg/kafka"
	"SignalForge/pkg/logger"
	"SignalForge/pkg/util"
)

// Analyzer runs the signal pipeline over one window.
type Analyzer interface {
	Analyze(ctx context.Context, w models.Window, symbol, timeframe string) ([]models.Signal, error)
}

// WindowMessage is the inbound wire format of a candle window.
type WindowMessage struct {
	Symbol    string          `json:"symbol"`
	Timeframe string          `json:"timeframe"`
	Candles   []CandleMessage `json:"candles"`
}

// CandleMessage is one OHLCV bar. T may be RFC3339 text, unix seconds or
// unix milliseconds, as a JSON string or number.
type CandleMessage struct {
	T json.RawMessage `json:"t"`
	O float64         `json:"o"`
	H float64         `json:"h"`
	L float64         `json:"l"`
	C float64         `json:"c"`
	V float64         `json:"v"`
}

// DecodeWindow parses a window message. Candles are kept in message order;
// the pipeline rejects windows that are not strictly ascending.
func DecodeWindow(b []byte) (WindowMessage, models.Window, error) {
	var m WindowMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return m, nil, fmt.Errorf("decode window: %w", err)
	}
	m.Symbol = models.NormalizeSymbol(m.Symbol)
	if m.Symbol == "" || m.Timeframe == "" {
		return m, nil, fmt.Errorf("decode window: symbol and timeframe required")
	}
	w := make(models.Window, len(m.Candles))
	for i, c := range m.Candles {
		ts, ok := util.ParseTime(string(bytes.Trim(c.T, `"`)))
		if !ok {
			return m, nil, fmt.Errorf("decode window: candle %d: bad timestamp %s", i, c.T)
		}
		w[i] = models.Candle{Time: ts, Open: c.O, High: c.H, Low: c.L, Close: c.C, Volume: c.V}
	}
	return m, w, nil
}

// WindowHandler consumes candle windows from Kafka, runs the pipeline and
// publishes the resulting signals while this instance holds leadership.
type WindowHandler struct {
	topic     string
	analyzer  Analyzer
	publisher domrepo.SignalPublisher
	leader    domrepo.LeaderGate
	metrics   domrepo.Metrics
	logger    *logger.Logger
}

func NewWindowHandler(topic string, analyzer Analyzer, publisher domrepo.SignalPublisher, leader domrepo.LeaderGate, metrics domrepo.Metrics, log *logger.Logger) *WindowHandler {
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &WindowHandler{topic: topic, analyzer: analyzer, publisher: publisher, leader: leader, metrics: metrics, logger: log}
}

func (h *WindowHandler) Topic() string { return h.topic }

// Handle decodes and analyzes one message. Malformed messages are reported
// as permanent failures so the consumer does not retry them.
func (h *WindowHandler) Handle(ctx context.Context, b []byte) error {
	if h.leader != nil && !h.leader.IsLeader() {
		h.logger.Debug("not leader, skipping window")
		return nil
	}

	msg, w, err := DecodeWindow(b)
	if err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("%w: %v", pkgkafka.ErrPermanent, err)
	}

	start := time.Now()
	signals, err := h.analyzer.Analyze(ctx, w, msg.Symbol, msg.Timeframe)
	if err != nil {
		if errors.Is(err, ErrInvalidWindow) || errors.Is(err, ErrInvalidInput) {
			h.metrics.RecordError("consumer_invalid_window")
			return fmt.Errorf("%w: %v", pkgkafka.ErrPermanent, err)
		}
		return err
	}
	h.metrics.RecordLatency("window_seconds", time.Since(start).Seconds())

	for _, sig := range signals {
		if err := h.publisher.Publish(ctx, sig); err != nil {
			h.metrics.RecordError("publish")
			h.logger.Error("publish signal failed",
				logger.String("signal_id", sig.ID),
				logger.String("strategy_id", sig.StrategyID),
				logger.String("symbol", sig.Symbol),
				logger.Error(err),
			)
		}
	}
	if len(signals) > 0 {
		h.logger.Info("signals emitted",
			logger.String("symbol", msg.Symbol),
			logger.String("timeframe", msg.Timeframe),
			logger.Int("count", len(signals)),
		)
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*WindowHandler)(nil)
