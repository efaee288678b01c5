package assembler

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"SignalForge/internal/domain/models"
)

// pricePrecision is the number of decimals kept on price levels.
const pricePrecision = 8

// signalNamespace seeds deterministic signal ids.
var signalNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("signalforge.signal"))

// Context is what the pipeline knows about the invocation a draft came from.
type Context struct {
	Symbol       string
	Timeframe    string
	StrategyID   string
	CurrentPrice float64
	Timestamp    time.Time
}

// ValidationError lists the invariants an assembled signal violated.
type ValidationError struct {
	StrategyID string
	Fields     []models.FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Message)
	}
	return fmt.Sprintf("signal from %s rejected: %s", e.StrategyID, strings.Join(parts, "; "))
}

// Assembler turns drafts into immutable, validated signals.
type Assembler struct {
	validate *validator.Validate
}

// New creates an Assembler with the signal validation rules registered.
func New() *Assembler {
	v := validator.New(validator.WithRequiredStructEnabled())
	// NaN compares false against every bound, so gte/lte alone would accept it.
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		switch fl.Field().Kind() {
		case reflect.Float32, reflect.Float64:
			f := fl.Field().Float()
			return !math.IsNaN(f) && !math.IsInf(f, 0)
		default:
			return true
		}
	})
	return &Assembler{validate: v}
}

// Assemble combines a draft with its confidence and invocation context. A
// signal violating any invariant is returned as a *ValidationError.
func (a *Assembler) Assemble(d models.DraftSignal, confidence float64, c Context) (models.Signal, error) {
	sig := models.Signal{
		ID:           SignalID(c.Symbol, c.Timeframe, c.StrategyID, c.Timestamp),
		Symbol:       c.Symbol,
		Timeframe:    c.Timeframe,
		Action:       d.Action,
		Confidence:   confidence,
		StrategyID:   c.StrategyID,
		CurrentPrice: round(c.CurrentPrice),
		Price:        round(d.Price),
		StopLoss:     roundPtr(d.StopLoss),
		TakeProfit:   roundPtr(d.TakeProfit),
		Reason:       d.Reason,
		Metadata:     metadata(d),
		Timestamp:    c.Timestamp,
	}

	if err := a.validate.Struct(sig); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return models.Signal{}, &ValidationError{StrategyID: c.StrategyID, Fields: fieldErrors(verrs)}
		}
		return models.Signal{}, fmt.Errorf("validate signal: %w", err)
	}
	return sig, nil
}

// SignalID derives a stable id so that re-running the same window yields the same id.
func SignalID(symbol, timeframe, strategyID string, ts time.Time) string {
	key := strings.Join([]string{symbol, timeframe, strategyID, ts.UTC().Format(time.RFC3339Nano)}, "|")
	return uuid.NewSHA1(signalNamespace, []byte(key)).String()
}

func fieldErrors(verrs validator.ValidationErrors) []models.FieldError {
	out := make([]models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, models.FieldError{
			Code:    "ERR_" + strings.ToUpper(fe.Tag()),
			Field:   fe.Field(),
			Message: message(fe),
			Params:  map[string]any{"value": fmt.Sprintf("%v", fe.Value())},
		})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "finite":
		return fmt.Sprintf("%s must be a finite number", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", fe.Field(), fe.Tag())
	}
}

// round leaves non-finite values untouched so validation can reject them.
func round(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(pricePrecision).InexactFloat64()
}

func roundPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := round(*v)
	return &r
}

// metadata copies the draft metadata and records its scoring factors.
// Non-finite numbers are dropped since they cannot be serialized.
func metadata(d models.DraftSignal) map[string]any {
	out := make(map[string]any, len(d.Metadata)+1)
	for k, v := range d.Metadata {
		if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			continue
		}
		out[k] = v
	}
	if len(d.Factors) > 0 {
		factors := make(map[string]float64, len(d.Factors))
		for k, v := range d.Factors {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			factors[k] = v
		}
		out["factors"] = factors
	}
	return out
}
