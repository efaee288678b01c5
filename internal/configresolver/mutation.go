package configresolver

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/domain/repository"
	"SignalForge/pkg/logger"
)

// SetRequest asks to replace the override of (StrategyID, Symbol).
// An empty Symbol addresses the global override.
type SetRequest struct {
	StrategyID   string
	Symbol       string
	Parameters   models.Parameters
	Actor        string
	Reason       string
	ValidateOnly bool
}

// DeleteRequest asks to remove the override of (StrategyID, Symbol).
type DeleteRequest struct {
	StrategyID string
	Symbol     string
	Actor      string
	Reason     string
}

// MutationResult reports the outcome of a mutation. Errors carries the
// field-level problems when Success is false.
type MutationResult struct {
	Success       bool                `json:"success"`
	ValidateOnly  bool                `json:"validate_only,omitempty"`
	Errors        []models.FieldError `json:"errors,omitempty"`
	ID            string              `json:"id,omitempty"`
	Version       int64               `json:"version,omitempty"`
	StoresWritten []string            `json:"stores_written,omitempty"`
	AuditID       string              `json:"audit_id,omitempty"`
}

func failed(errs ...models.FieldError) MutationResult {
	return MutationResult{Success: false, Errors: errs}
}

// SetParameters validates req against the strategy's schema before any
// write. On success it writes the primary store, then the fallback store
// best-effort (success when either accepted), appends one audit record and
// invalidates only the affected cache key.
func (r *Resolver) SetParameters(ctx context.Context, req SetRequest) MutationResult {
	req.Symbol = models.NormalizeSymbol(req.Symbol)
	specs, ok := r.schemaFor(req.StrategyID)
	if !ok {
		return failed(models.FieldError{
			Code:    CodeUnknownStrategy,
			Field:   "strategy_id",
			Message: fmt.Sprintf("%s is not a registered strategy", req.StrategyID),
		})
	}

	if req.StrategyID == ApplicationID && req.Symbol != "" {
		return failed(models.FieldError{
			Code:    CodeScope,
			Field:   "symbol",
			Message: "application settings are global",
		})
	}

	errs := ValidateParameters(specs, req.Parameters)
	if len(errs) == 0 && req.StrategyID == ApplicationID {
		// read-only view: resolving through the cascade could persist defaults
		stored, _ := r.current(ctx, ApplicationID, "")
		errs = validateApplication(req.Parameters, defaultsOf(specs).Merge(stored.Parameters))
	}
	if len(errs) > 0 {
		return MutationResult{Success: false, ValidateOnly: req.ValidateOnly, Errors: errs}
	}
	if req.ValidateOnly {
		return MutationResult{Success: true, ValidateOnly: true}
	}

	old, _ := r.current(ctx, req.StrategyID, req.Symbol)
	meta := models.WriteMetadata{
		Actor:     req.Actor,
		Reason:    req.Reason,
		Version:   old.Version + 1,
		Timestamp: r.now(),
	}
	params := req.Parameters.Clone()

	res := MutationResult{Version: meta.Version}
	for _, store := range r.stores() {
		id, err := r.upsert(ctx, store, req.StrategyID, req.Symbol, params, meta)
		if err != nil {
			continue
		}
		if res.ID == "" {
			res.ID = id
		}
		res.StoresWritten = append(res.StoresWritten, store.Name())
	}
	if len(res.StoresWritten) == 0 {
		return failed(models.FieldError{
			Code:    CodeStoreUnavailable,
			Field:   "strategy_id",
			Message: "no configuration store accepted the write",
		})
	}
	res.Success = true

	res.AuditID = r.audit(ctx, models.AuditRecord{
		StrategyID:    req.StrategyID,
		Symbol:        req.Symbol,
		Operation:     models.AuditSet,
		OldParameters: old.Parameters,
		NewParameters: params,
		Actor:         req.Actor,
		Reason:        req.Reason,
		Version:       meta.Version,
		Timestamp:     meta.Timestamp,
	})
	r.Invalidate(ctx, req.StrategyID, req.Symbol)

	r.logger.Info("configuration updated",
		logger.String("strategy_id", req.StrategyID),
		logger.String("symbol", req.Symbol),
		logger.String("actor", req.Actor),
		logger.Int64("version", meta.Version),
		logger.Strings("stores", res.StoresWritten),
	)
	return res
}

// DeleteParameters removes the override of (StrategyID, Symbol) from both
// stores. Resolution then falls through to the next tier.
func (r *Resolver) DeleteParameters(ctx context.Context, req DeleteRequest) MutationResult {
	req.Symbol = models.NormalizeSymbol(req.Symbol)
	if _, ok := r.schemaFor(req.StrategyID); !ok {
		return failed(models.FieldError{
			Code:    CodeUnknownStrategy,
			Field:   "strategy_id",
			Message: fmt.Sprintf("%s is not a registered strategy", req.StrategyID),
		})
	}

	old, found := r.current(ctx, req.StrategyID, req.Symbol)
	if !found {
		return failed(models.FieldError{
			Code:    CodeNotFound,
			Field:   "symbol",
			Message: "no override stored for this scope",
		})
	}
	meta := models.WriteMetadata{
		Actor:     req.Actor,
		Reason:    req.Reason,
		Version:   old.Version + 1,
		Timestamp: r.now(),
	}

	res := MutationResult{Version: meta.Version}
	for _, store := range r.stores() {
		cctx, cancel := context.WithTimeout(ctx, r.storeTimeout)
		err := store.Delete(cctx, req.StrategyID, req.Symbol, meta)
		cancel()
		if err != nil {
			r.storeFailure(store, "delete", req.StrategyID, req.Symbol, err)
			continue
		}
		res.StoresWritten = append(res.StoresWritten, store.Name())
	}
	if len(res.StoresWritten) == 0 {
		return failed(models.FieldError{
			Code:    CodeStoreUnavailable,
			Field:   "strategy_id",
			Message: "no configuration store accepted the delete",
		})
	}
	res.Success = true

	res.AuditID = r.audit(ctx, models.AuditRecord{
		StrategyID:    req.StrategyID,
		Symbol:        req.Symbol,
		Operation:     models.AuditDelete,
		OldParameters: old.Parameters,
		Actor:         req.Actor,
		Reason:        req.Reason,
		Version:       meta.Version,
		Timestamp:     meta.Timestamp,
	})
	r.Invalidate(ctx, req.StrategyID, req.Symbol)
	return res
}

// current returns the stored override of exactly (strategyID, symbol),
// primary first.
func (r *Resolver) current(ctx context.Context, strategyID, symbol string) (models.StoredConfig, bool) {
	if sc, ok, _ := r.get(ctx, r.primary, strategyID, symbol); ok {
		return sc, true
	}
	if sc, ok, _ := r.get(ctx, r.fallback, strategyID, symbol); ok {
		return sc, true
	}
	return models.StoredConfig{}, false
}

func (r *Resolver) stores() []repository.ConfigStore {
	out := make([]repository.ConfigStore, 0, 2)
	if r.primary != nil {
		out = append(out, r.primary)
	}
	if r.fallback != nil {
		out = append(out, r.fallback)
	}
	return out
}

func (r *Resolver) upsert(ctx context.Context, store repository.ConfigStore, strategyID, symbol string, params models.Parameters, meta models.WriteMetadata) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	defer cancel()
	id, err := store.Upsert(cctx, strategyID, symbol, params, meta)
	if err != nil {
		r.storeFailure(store, "upsert", strategyID, symbol, err)
		return "", err
	}
	return id, nil
}

// audit appends rec to the primary store, or the fallback if that fails.
// Returns the record id, or "" when no store accepted it.
func (r *Resolver) audit(ctx context.Context, rec models.AuditRecord) string {
	rec.ID = uuid.NewString()
	for _, store := range r.stores() {
		cctx, cancel := context.WithTimeout(ctx, r.storeTimeout)
		err := store.AppendAudit(cctx, rec)
		cancel()
		if err == nil {
			return rec.ID
		}
		r.storeFailure(store, "audit", rec.StrategyID, rec.Symbol, err)
	}
	r.logger.Error("audit record lost",
		logger.String("strategy_id", rec.StrategyID),
		logger.String("operation", string(rec.Operation)),
	)
	return ""
}

func (r *Resolver) storeFailure(store repository.ConfigStore, op, strategyID, symbol string, err error) {
	r.metrics.RecordError("config_store_" + store.Name())
	r.logger.Warn("config store "+op+" failed",
		logger.String("store", store.Name()),
		logger.String("strategy_id", strategyID),
		logger.String("symbol", symbol),
		logger.Error(err),
	)
}
