package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalForge/internal/domain/models"
	pkgkafka "SignalForge/pkg/kafka"
)

type analyzerFunc func(ctx context.Context, w models.Window, symbol, timeframe string) ([]models.Signal, error)

func (f analyzerFunc) Analyze(ctx context.Context, w models.Window, symbol, timeframe string) ([]models.Signal, error) {
	return f(ctx, w, symbol, timeframe)
}

type recordingPublisher struct {
	got  []models.Signal
	fail error
}

func (p *recordingPublisher) Publish(_ context.Context, sig models.Signal) error {
	if p.fail != nil {
		return p.fail
	}
	p.got = append(p.got, sig)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type gate bool

func (g gate) IsLeader() bool { return bool(g) }

const windowJSON = `{
  "symbol": "BTCUSDT",
  "timeframe": "15m",
  "candles": [
    {"t": "2024-01-01T00:00:00Z", "o": 100, "h": 101, "l": 99, "c": 100.5, "v": 10},
    {"t": 1704068100, "o": 100.5, "h": 102, "l": 100, "c": 101.5, "v": 12},
    {"t": "1704069000000", "o": 101.5, "h": 103, "l": 101, "c": 102, "v": 9}
  ]
}`

func TestDecodeWindow(t *testing.T) {
	msg, w, err := DecodeWindow([]byte(windowJSON))
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", msg.Symbol)
	assert.Equal(t, "15m", msg.Timeframe)
	require.Len(t, w, 3)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range w {
		assert.True(t, c.Time.Equal(start.Add(time.Duration(i)*15*time.Minute)), "candle %d at %v", i, c.Time)
	}
	assert.Equal(t, 102.0, w[2].Close)
	assert.Equal(t, 12.0, w[1].Volume)
	assert.NoError(t, w.Validate())
}

func TestDecodeWindowNormalizesSymbol(t *testing.T) {
	msg, _, err := DecodeWindow([]byte(`{"symbol":" btcusdt ","timeframe":"1m","candles":[]}`))
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", msg.Symbol)
}

func TestDecodeWindowErrors(t *testing.T) {
	cases := map[string]string{
		"not json":      `{`,
		"no symbol":     `{"timeframe":"15m","candles":[]}`,
		"bad timestamp": `{"symbol":"X","timeframe":"1m","candles":[{"t":"soon","o":1,"h":1,"l":1,"c":1,"v":1}]}`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := DecodeWindow([]byte(in))
			assert.Error(t, err)
		})
	}
}

func TestWindowHandlerPublishesSignals(t *testing.T) {
	var gotSymbol, gotTF string
	var gotLen int
	analyzer := analyzerFunc(func(_ context.Context, w models.Window, symbol, tf string) ([]models.Signal, error) {
		gotSymbol, gotTF, gotLen = symbol, tf, len(w)
		return []models.Signal{{ID: "a", StrategyID: "s1"}, {ID: "b", StrategyID: "s2"}}, nil
	})
	pub := &recordingPublisher{}
	h := NewWindowHandler("candles.windows", analyzer, pub, gate(true), nil, nil)

	assert.Equal(t, "candles.windows", h.Topic())
	require.NoError(t, h.Handle(context.Background(), []byte(windowJSON)))
	assert.Equal(t, "BTCUSDT", gotSymbol)
	assert.Equal(t, "15m", gotTF)
	assert.Equal(t, 3, gotLen)
	require.Len(t, pub.got, 2)
	assert.Equal(t, "a", pub.got[0].ID)
}

func TestWindowHandlerFollowerSkips(t *testing.T) {
	called := false
	analyzer := analyzerFunc(func(context.Context, models.Window, string, string) ([]models.Signal, error) {
		called = true
		return nil, nil
	})
	h := NewWindowHandler("t", analyzer, &recordingPublisher{}, gate(false), nil, nil)

	require.NoError(t, h.Handle(context.Background(), []byte(windowJSON)))
	assert.False(t, called)
}

func TestWindowHandlerPermanentErrors(t *testing.T) {
	analyzer := analyzerFunc(func(context.Context, models.Window, string, string) ([]models.Signal, error) {
		return nil, ErrInvalidWindow
	})
	h := NewWindowHandler("t", analyzer, &recordingPublisher{}, nil, nil, nil)

	err := h.Handle(context.Background(), []byte(`garbage`))
	assert.ErrorIs(t, err, pkgkafka.ErrPermanent)

	err = h.Handle(context.Background(), []byte(windowJSON))
	assert.ErrorIs(t, err, pkgkafka.ErrPermanent)
}

func TestWindowHandlerPublishFailureIsNotRetried(t *testing.T) {
	analyzer := analyzerFunc(func(context.Context, models.Window, string, string) ([]models.Signal, error) {
		return []models.Signal{{ID: "a"}}, nil
	})
	h := NewWindowHandler("t", analyzer, &recordingPublisher{fail: errors.New("down")}, nil, nil, nil)
	assert.NoError(t, h.Handle(context.Background(), []byte(windowJSON)))
}
