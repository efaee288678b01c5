package strategy

import (
	"errors"
	"fmt"

	"github.com/moznion/go-optional"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/indicator"
)

// ErrUnknownStrategy is returned when a strategy id is not registered.
var ErrUnknownStrategy = errors.New("unknown strategy")

// EvaluatorError wraps a failure (error or panic) raised by one evaluator.
type EvaluatorError struct {
	StrategyID string
	Panicked   bool
	Err        error
}

func (e *EvaluatorError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("strategy %s panicked: %v", e.StrategyID, e.Err)
	}
	return fmt.Sprintf("strategy %s failed: %v", e.StrategyID, e.Err)
}

func (e *EvaluatorError) Unwrap() error { return e.Err }

// Registry is the static table of evaluators. It is immutable after
// construction and safe for concurrent use.
type Registry struct {
	evaluators []Evaluator
	byID       map[string]Evaluator
}

// NewRegistry builds a registry preserving the given order. Duplicate or
// empty ids are rejected.
func NewRegistry(evaluators []Evaluator) (*Registry, error) {
	r := &Registry{
		evaluators: make([]Evaluator, 0, len(evaluators)),
		byID:       make(map[string]Evaluator, len(evaluators)),
	}
	for _, e := range evaluators {
		if e == nil || e.ID() == "" {
			return nil, fmt.Errorf("register strategy: empty id")
		}
		if _, dup := r.byID[e.ID()]; dup {
			return nil, fmt.Errorf("register strategy %s: duplicate id", e.ID())
		}
		r.evaluators = append(r.evaluators, e)
		r.byID[e.ID()] = e
	}
	return r, nil
}

// NewDefaultRegistry returns a registry over Catalog().
func NewDefaultRegistry() *Registry {
	r, err := NewRegistry(Catalog())
	if err != nil {
		panic(err)
	}
	return r
}

// Evaluators returns the evaluators in registration order.
func (r *Registry) Evaluators() []Evaluator {
	out := make([]Evaluator, len(r.evaluators))
	copy(out, r.evaluators)
	return out
}

// IDs returns the registered ids in registration order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.evaluators))
	for i, e := range r.evaluators {
		ids[i] = e.ID()
	}
	return ids
}

// Get returns the evaluator registered under id.
func (r *Registry) Get(id string) (Evaluator, bool) {
	e, ok := r.byID[id]
	return e, ok
}

// Schema returns the declared parameters of a strategy.
func (r *Registry) Schema(id string) ([]models.ParamSpec, bool) {
	e, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return e.Params(), true
}

// Describe returns introspection data for one strategy.
func (r *Registry) Describe(id string) (models.StrategyInfo, error) {
	e, ok := r.byID[id]
	if !ok {
		return models.StrategyInfo{}, fmt.Errorf("describe %s: %w", id, ErrUnknownStrategy)
	}
	return Info(e), nil
}

// List returns introspection data for every strategy in registration order.
func (r *Registry) List() []models.StrategyInfo {
	out := make([]models.StrategyInfo, len(r.evaluators))
	for i, e := range r.evaluators {
		out[i] = Info(e)
	}
	return out
}

// Run evaluates e with failure isolation. Declared defaults fill any
// parameter missing from p. A returned error is always an *EvaluatorError;
// the caller treats it as "no signal" for this strategy only.
func (r *Registry) Run(e Evaluator, w models.Window, ind *indicator.Set, p models.Parameters) (result optional.Option[models.DraftSignal], err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = none()
			err = &EvaluatorError{StrategyID: e.ID(), Panicked: true, Err: fmt.Errorf("%v", rec)}
		}
	}()

	params := Defaults(e.Params()).Merge(p)
	result, err = e.Evaluate(w, ind, params)
	if err != nil {
		return none(), &EvaluatorError{StrategyID: e.ID(), Err: err}
	}
	return result, nil
}
