package configresolver

import (
	"fmt"

	"SignalForge/internal/domain/models"
)

// ApplicationID is the pseudo strategy id under which application-wide
// settings are stored and resolved.
const ApplicationID = "application"

const (
	paramEnabled       = "enabled_strategies"
	paramMinConfidence = "min_confidence"
	paramMaxConfidence = "max_confidence"
)

// applicationSchema declares the application settings; every strategy is
// enabled by default and the confidence band is [0,1].
func applicationSchema(strategyIDs []string) []models.ParamSpec {
	return []models.ParamSpec{
		{
			Name:          paramEnabled,
			Type:          models.ParamStringList,
			AllowedValues: append([]string(nil), strategyIDs...),
			Default:       append([]string(nil), strategyIDs...),
			Description:   "strategies evaluated by the pipeline",
		},
		{
			Name:        paramMinConfidence,
			Type:        models.ParamFloat,
			Min:         models.Bound(0),
			Max:         models.Bound(1),
			Default:     0.0,
			Description: "signals below this confidence are dropped",
		},
		{
			Name:        paramMaxConfidence,
			Type:        models.ParamFloat,
			Min:         models.Bound(0),
			Max:         models.Bound(1),
			Default:     1.0,
			Description: "signals above this confidence are dropped",
		},
	}
}

func applicationInfo(strategyIDs []string) models.StrategyInfo {
	return models.StrategyInfo{
		ID:          ApplicationID,
		Family:      "application",
		Description: "Application-wide settings: enabled strategies and confidence band",
		Parameters:  applicationSchema(strategyIDs),
	}
}

// validateApplication adds the cross-field check min_confidence <= max_confidence,
// taking absent values from the current effective settings.
func validateApplication(params, current models.Parameters) []models.FieldError {
	merged := current.Merge(params)
	lo, hi := merged.Float(paramMinConfidence, 0), merged.Float(paramMaxConfidence, 1)
	if lo > hi {
		return []models.FieldError{{
			Code:    CodeRange,
			Field:   paramMinConfidence,
			Message: fmt.Sprintf("min_confidence (%v) must not exceed max_confidence (%v)", lo, hi),
			Params:  map[string]any{"min": lo, "max": hi},
		}}
	}
	return nil
}

func toApplicationConfig(eff models.EffectiveConfig, allIDs []string) models.ApplicationConfig {
	app := models.ApplicationConfig{
		EnabledStrategies: eff.Parameters.Strings(paramEnabled, allIDs),
		MinConfidence:     eff.Parameters.Float(paramMinConfidence, 0),
		MaxConfidence:     eff.Parameters.Float(paramMaxConfidence, 1),
		Source:            eff.Source,
		CacheHit:          eff.CacheHit,
	}
	if app.MinConfidence > app.MaxConfidence {
		app.MinConfidence, app.MaxConfidence = 0, 1
	}
	return app
}
