package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"SignalForge/internal/configresolver"
	"SignalForge/internal/domain/models"
	"SignalForge/internal/service/ratelimit"
	"SignalForge/internal/usecase"
	xhttp "SignalForge/pkg/http"
	xlogger "SignalForge/pkg/logger"
)

// ConfigService is the resolver surface exposed over HTTP.
type ConfigService interface {
	ListStrategies() []models.StrategyInfo
	DescribeStrategy(strategyID string) (models.StrategyInfo, error)
	GetEffectiveParameters(ctx context.Context, strategyID, symbol string) models.EffectiveConfig
	GetApplicationConfig(ctx context.Context) models.ApplicationConfig
	SetParameters(ctx context.Context, req configresolver.SetRequest) configresolver.MutationResult
	DeleteParameters(ctx context.Context, req configresolver.DeleteRequest) configresolver.MutationResult
}

// AuditReader lists recent configuration mutations, newest first.
type AuditReader interface {
	RecentAudit(ctx context.Context, strategyID string, n int64) ([]models.AuditRecord, error)
}

const maxWindowBody = "4M"

// AdminHandler serves strategy introspection, configuration management and ad-hoc analysis.
type AdminHandler struct {
	config   ConfigService
	analyzer usecase.Analyzer
	audit    AuditReader
	limiter  *ratelimit.Limiter
	logger   *xlogger.Logger
}

// AdminOption configures AdminHandler.
type AdminOption func(*AdminHandler)

// WithAuditReader enables GET /api/v1/config/audit.
func WithAuditReader(a AuditReader) AdminOption {
	return func(h *AdminHandler) { h.audit = a }
}

// WithRateLimiter throttles mutating and analysis routes per client IP.
func WithRateLimiter(l *ratelimit.Limiter) AdminOption {
	return func(h *AdminHandler) { h.limiter = l }
}

func NewAdminHandler(logger *xlogger.Logger, config ConfigService, analyzer usecase.Analyzer, opts ...AdminOption) *AdminHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	h := &AdminHandler{config: config, analyzer: analyzer, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *AdminHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api/v1")
	g.GET("/strategies", h.ListStrategies)
	g.GET("/strategies/:id", h.DescribeStrategy)
	g.GET("/config/application", h.GetApplicationConfig)
	g.GET("/config/audit", h.ListAudit)
	g.GET("/config/:id", h.GetConfig)
	g.PUT("/config/:id", h.SetConfig, h.throttle)
	g.DELETE("/config/:id", h.DeleteConfig, h.throttle)
	g.POST("/analyze", h.Analyze, echomw.BodyLimit(maxWindowBody), h.throttle)
}

func (h *AdminHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *AdminHandler) ListStrategies(c echo.Context) error {
	list := h.config.ListStrategies()
	return xhttp.ListResponse(c, list, int64(len(list)))
}

func (h *AdminHandler) DescribeStrategy(c echo.Context) error {
	info, err := h.config.DescribeStrategy(c.Param("id"))
	if err != nil {
		if errors.Is(err, configresolver.ErrUnknownStrategy) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("strategy %s not found", c.Param("id")))
		}
		return xhttp.AppErrorResponse(c, xhttp.InternalError("describe failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, info)
}

// GetConfig returns the effective parameters of a strategy, optionally for one symbol.
func (h *AdminHandler) GetConfig(c echo.Context) error {
	id := c.Param("id")
	if _, err := h.config.DescribeStrategy(id); err != nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("strategy %s not found", id))
	}
	eff := h.config.GetEffectiveParameters(c.Request().Context(), id, models.NormalizeSymbol(c.QueryParam("symbol")))
	if !eff.Resolved() {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError(configresolver.CodeStoreUnavailable, "",
			"no configuration could be resolved", http.StatusServiceUnavailable))
	}
	return xhttp.SuccessResponse(c, eff)
}

func (h *AdminHandler) GetApplicationConfig(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.config.GetApplicationConfig(c.Request().Context()))
}

// SetConfigRequest is the body of PUT /api/v1/config/:id.
type SetConfigRequest struct {
	Parameters   models.Parameters `json:"parameters" validate:"required"`
	Actor        string            `json:"actor" default:"api" validate:"max=128"`
	Reason       string            `json:"reason" validate:"max=512"`
	ValidateOnly bool              `json:"validate_only"`
}

func (h *AdminHandler) SetConfig(c echo.Context) error {
	req := &SetConfigRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res := h.config.SetParameters(c.Request().Context(), configresolver.SetRequest{
		StrategyID:   c.Param("id"),
		Symbol:       models.NormalizeSymbol(c.QueryParam("symbol")),
		Parameters:   req.Parameters,
		Actor:        req.Actor,
		Reason:       req.Reason,
		ValidateOnly: req.ValidateOnly || xhttp.ParseBool(c.QueryParam("validate_only")),
	})
	return h.mutationResponse(c, res)
}

func (h *AdminHandler) DeleteConfig(c echo.Context) error {
	actor := c.QueryParam("actor")
	if actor == "" {
		actor = "api"
	}
	res := h.config.DeleteParameters(c.Request().Context(), configresolver.DeleteRequest{
		StrategyID: c.Param("id"),
		Symbol:     models.NormalizeSymbol(c.QueryParam("symbol")),
		Actor:      actor,
		Reason:     c.QueryParam("reason"),
	})
	return h.mutationResponse(c, res)
}

// AuditQuery is the query of GET /api/v1/config/audit.
type AuditQuery struct {
	StrategyID string `query:"strategy_id"`
	Limit      int64  `query:"limit" default:"50" validate:"gte=1,lte=1000"`
	// Since drops records older than this instant (RFC3339 or unix seconds/millis).
	Since string `query:"since"`
}

func (h *AdminHandler) ListAudit(c echo.Context) error {
	if h.audit == nil {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_UNAVAILABLE", "", "audit log not configured", http.StatusNotImplemented))
	}
	q := &AuditQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, q); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	recs, err := h.audit.RecentAudit(c.Request().Context(), q.StrategyID, q.Limit)
	if err != nil {
		h.logger.Error("audit read failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.NewAppError(configresolver.CodeStoreUnavailable, "", "audit log unavailable", http.StatusServiceUnavailable).WithError(err))
	}
	if since := xhttp.ParseTimeDefault(q.Since, time.Time{}); !since.IsZero() {
		kept := recs[:0]
		for _, r := range recs {
			if !r.Timestamp.Before(since) {
				kept = append(kept, r)
			}
		}
		recs = kept
	}
	return xhttp.ListResponse(c, recs, int64(len(recs)))
}

// Analyze runs the pipeline over a posted window without publishing the result.
func (h *AdminHandler) Analyze(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("unreadable body"))
	}
	msg, w, err := usecase.DecodeWindow(body)
	if err != nil {
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{Code: "ERR_WINDOW", Message: err.Error()}})
	}
	signals, err := h.analyzer.Analyze(c.Request().Context(), w, msg.Symbol, msg.Timeframe)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidWindow) || errors.Is(err, usecase.ErrInvalidInput) {
			return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{Code: "ERR_WINDOW", Message: err.Error()}})
		}
		h.logger.Error("analyze failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.ListResponse(c, signals, int64(len(signals)))
}

func (h *AdminHandler) throttle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
			return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_RATE_LIMITED", "", "too many requests", http.StatusTooManyRequests))
		}
		return next(c)
	}
}

func (h *AdminHandler) mutationResponse(c echo.Context, res configresolver.MutationResult) error {
	if res.Success {
		return xhttp.SuccessResponse(c, res)
	}
	return xhttp.DataResponse(c, mutationStatus(res.Errors), toValidationErrors(res.Errors))
}

// mutationStatus picks the HTTP status for a failed mutation from its most severe error code.
func mutationStatus(errs []models.FieldError) int {
	status := http.StatusBadRequest
	for _, e := range errs {
		switch e.Code {
		case configresolver.CodeStoreUnavailable:
			return http.StatusServiceUnavailable
		case configresolver.CodeNotFound, configresolver.CodeUnknownStrategy:
			status = http.StatusNotFound
		}
	}
	return status
}

func toValidationErrors(errs []models.FieldError) []xhttp.ValidationError {
	out := make([]xhttp.ValidationError, len(errs))
	for i, e := range errs {
		params := make(map[string]interface{}, len(e.Params))
		for k, v := range e.Params {
			params[k] = v
		}
		out[i] = xhttp.ValidationError{Code: e.Code, Field: e.Field, Message: e.Message, Params: params}
	}
	return out
}
