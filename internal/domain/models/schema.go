package models

// ParamType is the declared type of a strategy parameter.
type ParamType string

const (
	ParamInt        ParamType = "int"
	ParamFloat      ParamType = "float"
	ParamBool       ParamType = "bool"
	ParamString     ParamType = "string"
	ParamStringList ParamType = "string_list"
)

// ParamSpec declares one recognized parameter of a strategy.
type ParamSpec struct {
	Name          string    `json:"name"`
	Type          ParamType `json:"type"`
	Min           *float64  `json:"min,omitempty"`
	Max           *float64  `json:"max,omitempty"`
	AllowedValues []string  `json:"allowed_values,omitempty"`
	Default       any       `json:"default"`
	Description   string    `json:"description,omitempty"`
}

// Bound is a helper for building Min/Max pointers.
func Bound(v float64) *float64 { return &v }

// StrategyInfo describes a strategy for listing and introspection.
type StrategyInfo struct {
	ID          string      `json:"id"`
	Family      string      `json:"family"`
	Description string      `json:"description"`
	MinCandles  int         `json:"min_candles"`
	Parameters  []ParamSpec `json:"parameters"`
}

// FieldError is one structured schema violation.
type FieldError struct {
	Code    string         `json:"code"`
	Field   string         `json:"field"`
	Message string         `json:"message"`
	Params  map[string]any `json:"params,omitempty"`
}
