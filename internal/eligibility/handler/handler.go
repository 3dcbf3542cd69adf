package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"keygate/internal/eligibility"
	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
	"keygate/pkg/platform/httputil"
	"keygate/pkg/requestcontext"
)

// Service defines the interface for eligibility queries.
type Service interface {
	CheckEligibility(ctx context.Context, principal id.Address, policyID id.PolicyID) (eligibility.Result, error)
	Status(ctx context.Context, principal id.Address) (eligibility.StatusReport, error)
}

// Handler wires eligibility endpoints to the eligibility service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an eligibility handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts eligibility endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/eligibility/{principal}", h.HandleCheck)
	r.Get("/eligibility/{principal}/status", h.HandleStatus)
}

// HandleCheck handles GET /eligibility/{principal} requests.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	principal, err := id.ParseAddress(chi.URLParam(r, "principal"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var policyID id.PolicyID
	if raw := r.URL.Query().Get("policy_id"); raw != "" {
		v, perr := strconv.ParseUint(raw, 10, 64)
		if perr != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "policy_id must be an unsigned integer"))
			return
		}
		policyID, err = id.ParsePolicyID(v)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	result, err := h.service.CheckEligibility(ctx, principal, policyID)
	if err != nil {
		h.logger.ErrorContext(ctx, "eligibility check failed",
			"request_id", requestID,
			"principal", principal,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "eligibility checked",
		"request_id", requestID,
		"principal", principal,
		"eligible", result.Eligible,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}

// HandleStatus handles GET /eligibility/{principal}/status requests.
// Status includes the registry's view and is restricted to authenticated
// callers; the plain check stays open for policy evaluation.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caller := requestcontext.Caller(ctx)
	if caller == (id.Address{}) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	principal, err := id.ParseAddress(chi.URLParam(r, "principal"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	report, err := h.service.Status(ctx, principal)
	if err != nil {
		h.logger.ErrorContext(ctx, "status lookup failed",
			"request_id", requestID,
			"principal", principal,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromStatusReport(report))
}
