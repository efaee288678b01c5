package strategy

import (
	"github.com/moznion/go-optional"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/indicator"
)

// Evaluator is one named trading rule. Evaluate must be pure with respect to
// its inputs: None means the rule declined (including when an indicator it
// needs is unavailable), an error is reserved for genuine failures.
type Evaluator interface {
	ID() string
	Family() string
	Description() string
	MinCandles() int
	Params() []models.ParamSpec
	Evaluate(w models.Window, ind *indicator.Set, p models.Parameters) (optional.Option[models.DraftSignal], error)
}

// base carries the static description shared by every evaluator.
type base struct {
	id          string
	family      string
	description string
	minCandles  int
	params      []models.ParamSpec
}

func (b base) ID() string          { return b.id }
func (b base) Family() string      { return b.family }
func (b base) Description() string { return b.description }
func (b base) MinCandles() int     { return b.minCandles }

func (b base) Params() []models.ParamSpec {
	out := make([]models.ParamSpec, len(b.params))
	copy(out, b.params)
	return out
}

// Info describes an evaluator for listing and introspection.
func Info(e Evaluator) models.StrategyInfo {
	return models.StrategyInfo{
		ID:          e.ID(),
		Family:      e.Family(),
		Description: e.Description(),
		MinCandles:  e.MinCandles(),
		Parameters:  e.Params(),
	}
}

// Defaults returns the default value of every declared parameter.
func Defaults(specs []models.ParamSpec) models.Parameters {
	out := make(models.Parameters, len(specs))
	for _, s := range specs {
		if s.Default != nil {
			out[s.Name] = s.Default
		}
	}
	return out
}

func none() optional.Option[models.DraftSignal] { return optional.None[models.DraftSignal]() }

func some(d models.DraftSignal) optional.Option[models.DraftSignal] { return optional.Some(d) }

// Parameter spec helpers.

func floatParam(name string, def, lo, hi float64, desc string) models.ParamSpec {
	return models.ParamSpec{Name: name, Type: models.ParamFloat, Default: def, Min: models.Bound(lo), Max: models.Bound(hi), Description: desc}
}

func intParam(name string, def, lo, hi int, desc string) models.ParamSpec {
	return models.ParamSpec{Name: name, Type: models.ParamInt, Default: def, Min: models.Bound(float64(lo)), Max: models.Bound(float64(hi)), Description: desc}
}

func boolParam(name string, def bool, desc string) models.ParamSpec {
	return models.ParamSpec{Name: name, Type: models.ParamBool, Default: def, Description: desc}
}

// Risk parameters shared by every directional strategy.
const (
	paramStopATR   = "stop_atr_multiplier"
	paramTargetATR = "take_profit_atr_multiplier"

	defaultStopATR   = 2.0
	defaultTargetATR = 3.0
)

func riskParams() []models.ParamSpec {
	return []models.ParamSpec{
		floatParam(paramStopATR, defaultStopATR, 0, 10, "stop loss distance in ATRs (0 disables)"),
		floatParam(paramTargetATR, defaultTargetATR, 0, 20, "take profit distance in ATRs (0 disables)"),
	}
}

func withRisk(specs ...models.ParamSpec) []models.ParamSpec {
	return append(specs, riskParams()...)
}
