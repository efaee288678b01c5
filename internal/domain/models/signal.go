package models

import (
	"strings"
	"time"
)

// NormalizeSymbol is the canonical spelling of an instrument symbol: trimmed
// and upper case. Config keys, cache keys and signals all use it.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Action is the trading action proposed by a signal.
type Action string

const (
	ActionBuy   Action = "buy"
	ActionSell  Action = "sell"
	ActionHold  Action = "hold"
	ActionClose Action = "close"
)

// Valid reports whether a is one of the four known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionHold, ActionClose:
		return true
	default:
		return false
	}
}

// DraftSignal is what an evaluator proposes before scoring and validation.
type DraftSignal struct {
	Action     Action
	Price      float64  // proposed entry / reference price
	StopLoss   *float64 // optional
	TakeProfit *float64 // optional
	Reason     string
	// Factors is the named context handed to the confidence calculator.
	Factors  map[string]float64
	Metadata map[string]any
}

// Signal is a validated, confidence-scored trading proposal.
// It is created once by the assembler and must not be mutated afterwards.
type Signal struct {
	ID           string         `json:"id" validate:"required"`
	Symbol       string         `json:"symbol" validate:"required"`
	Timeframe    string         `json:"timeframe"`
	Action       Action         `json:"action" validate:"required,oneof=buy sell hold close"`
	Confidence   float64        `json:"confidence" validate:"finite,gte=0,lte=1"`
	StrategyID   string         `json:"strategy_id" validate:"required"`
	CurrentPrice float64        `json:"current_price" validate:"finite,gt=0"`
	Price        float64        `json:"price" validate:"finite,gt=0"`
	StopLoss     *float64       `json:"stop_loss,omitempty" validate:"omitempty,finite,gt=0"`
	TakeProfit   *float64       `json:"take_profit,omitempty" validate:"omitempty,finite,gt=0"`
	Reason       string         `json:"reason,omitempty"`
	Metadata     map[string]any `json:"metadata"`
	Timestamp    time.Time      `json:"timestamp" validate:"required"`
}
