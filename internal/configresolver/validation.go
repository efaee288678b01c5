package configresolver

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"SignalForge/internal/domain/models"
)

var validate = validator.New()

// Error codes returned in FieldError.Code.
const (
	CodeUnknownStrategy  = "ERR_UNKNOWN_STRATEGY"
	CodeUnknownParam     = "ERR_UNKNOWN_PARAM"
	CodeType             = "ERR_TYPE"
	CodeMin              = "ERR_GTE"
	CodeMax              = "ERR_LTE"
	CodeOneOf            = "ERR_ONEOF"
	CodeRange            = "ERR_RANGE"
	CodeStoreUnavailable = "ERR_STORE_UNAVAILABLE"
	CodeNotFound         = "ERR_NOT_FOUND"
	CodeScope            = "ERR_SCOPE"
)

// ValidateParameters checks params against specs: unknown names, declared
// type, min/max bounds and allowed values. Errors are ordered by field name.
func ValidateParameters(specs []models.ParamSpec, params models.Parameters) []models.FieldError {
	bySpec := make(map[string]models.ParamSpec, len(specs))
	for _, s := range specs {
		bySpec[s.Name] = s
	}

	var errs []models.FieldError
	for _, name := range params.Keys() {
		spec, ok := bySpec[name]
		if !ok {
			errs = append(errs, models.FieldError{
				Code:    CodeUnknownParam,
				Field:   name,
				Message: fmt.Sprintf("%s is not a recognized parameter", name),
			})
			continue
		}
		if fe, bad := validateValue(spec, params[name]); bad {
			errs = append(errs, fe)
		}
	}
	return errs
}

func validateValue(spec models.ParamSpec, v any) (models.FieldError, bool) {
	typeErr := models.FieldError{
		Code:    CodeType,
		Field:   spec.Name,
		Message: fmt.Sprintf("%s must be of type %s", spec.Name, spec.Type),
		Params:  map[string]any{"type": string(spec.Type)},
	}

	switch spec.Type {
	case models.ParamInt, models.ParamFloat:
		f, ok := models.AsFloat(v)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return typeErr, true
		}
		if spec.Type == models.ParamInt && f != math.Trunc(f) {
			return typeErr, true
		}
		if spec.Min != nil {
			if err := validate.Var(f, fmt.Sprintf("gte=%v", *spec.Min)); err != nil {
				return models.FieldError{
					Code:    CodeMin,
					Field:   spec.Name,
					Message: fmt.Sprintf("%s must be greater than or equal to %v", spec.Name, *spec.Min),
					Params:  map[string]any{"min": *spec.Min, "value": f},
				}, true
			}
		}
		if spec.Max != nil {
			if err := validate.Var(f, fmt.Sprintf("lte=%v", *spec.Max)); err != nil {
				return models.FieldError{
					Code:    CodeMax,
					Field:   spec.Name,
					Message: fmt.Sprintf("%s must be less than or equal to %v", spec.Name, *spec.Max),
					Params:  map[string]any{"max": *spec.Max, "value": f},
				}, true
			}
		}
	case models.ParamBool:
		if _, ok := v.(bool); !ok {
			return typeErr, true
		}
	case models.ParamString:
		s, ok := v.(string)
		if !ok {
			return typeErr, true
		}
		if !allowed(spec.AllowedValues, s) {
			return oneOfErr(spec, s), true
		}
	case models.ParamStringList:
		list, ok := models.AsStrings(v)
		if !ok {
			return typeErr, true
		}
		for _, s := range list {
			if !allowed(spec.AllowedValues, s) {
				return oneOfErr(spec, s), true
			}
		}
	default:
		return typeErr, true
	}
	return models.FieldError{}, false
}

func allowed(values []string, s string) bool {
	if len(values) == 0 {
		return true
	}
	for _, v := range values {
		if strings.ContainsAny(v, " \t") {
			// oneof cannot express values with whitespace; fall back to a plain scan
			return contains(values, s)
		}
	}
	return validate.Var(s, "oneof="+strings.Join(values, " ")) == nil
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

func oneOfErr(spec models.ParamSpec, got string) models.FieldError {
	return models.FieldError{
		Code:    CodeOneOf,
		Field:   spec.Name,
		Message: fmt.Sprintf("%s must be one of: %s", spec.Name, strings.Join(spec.AllowedValues, ", ")),
		Params:  map[string]any{"options": spec.AllowedValues, "value": got},
	}
}
