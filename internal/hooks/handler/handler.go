package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
	"keygate/pkg/platform/httputil"
	"keygate/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/service_mock.go -package=mocks

// Service defines the interface for subscription hook operations.
type Service interface {
	QuotePrice(ctx context.Context, buyer, recipient, referrer id.Address, data []byte) (id.Amount, error)
	OnPurchase(ctx context.Context, caller id.Address, saleID id.SaleID, payer, recipient, referrer id.Address, data []byte, minPrice, pricePaid id.Amount) error
	OnTransfer(ctx context.Context, caller id.Address, saleID id.SaleID, operator, from, to id.Address, expiresAt time.Time) error
	SetFutureReferrerFee(ctx context.Context, actor id.Address, fee id.BasisPoints) error
}

// Handler wires hook endpoints to the hooks service. The authenticated
// caller from the request context is forwarded as the hook caller, so the
// service's caller authorization applies to the HTTP path unchanged.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a hooks handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts hook endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/hooks/quote", h.HandleQuote)
	r.Post("/hooks/purchase", h.HandlePurchase)
	r.Post("/hooks/transfer", h.HandleTransfer)
	r.Post("/admin/referrer-fee", h.HandleSetReferrerFee)
}

// HandleQuote handles POST /hooks/quote requests.
func (h *Handler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[QuoteRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	price, err := h.service.QuotePrice(ctx, req.ParsedBuyer(), req.ParsedRecipient(), req.ParsedReferrer(), []byte(req.Data))
	if err != nil {
		h.logger.ErrorContext(ctx, "quote rejected",
			"request_id", requestID,
			"buyer", req.ParsedBuyer(),
			"referrer", req.ParsedReferrer(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &QuoteResponse{Price: uint64(price)})
}

// HandlePurchase handles POST /hooks/purchase requests.
func (h *Handler) HandlePurchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[PurchaseRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	err := h.service.OnPurchase(ctx, caller, req.ParsedSaleID(),
		req.ParsedPayer(), req.ParsedRecipient(), req.ParsedReferrer(),
		[]byte(req.Data), id.Amount(req.MinPrice), id.Amount(req.PricePaid))
	if err != nil {
		h.logger.ErrorContext(ctx, "purchase hook failed",
			"request_id", requestID,
			"caller", caller,
			"sale_id", req.ParsedSaleID(),
			"recipient", req.ParsedRecipient(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "purchase hook handled",
		"request_id", requestID,
		"sale_id", req.ParsedSaleID(),
		"recipient", req.ParsedRecipient(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	w.WriteHeader(http.StatusNoContent)
}

// HandleTransfer handles POST /hooks/transfer requests.
func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[TransferRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	err := h.service.OnTransfer(ctx, caller, req.ParsedSaleID(),
		req.ParsedOperator(), req.ParsedFrom(), req.ParsedTo(), req.ExpiresAt)
	if err != nil {
		h.logger.ErrorContext(ctx, "transfer hook rejected",
			"request_id", requestID,
			"caller", caller,
			"sale_id", req.ParsedSaleID(),
			"from", req.ParsedFrom(),
			"to", req.ParsedTo(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleSetReferrerFee handles POST /admin/referrer-fee requests.
func (h *Handler) HandleSetReferrerFee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[SetReferrerFeeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.SetFutureReferrerFee(ctx, caller, req.ParsedFee()); err != nil {
		h.logger.ErrorContext(ctx, "future referrer fee rejected",
			"request_id", requestID,
			"caller", caller,
			"fee_basis_points", req.FeeBasisPoints,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "future referrer fee set",
		"request_id", requestID,
		"caller", caller,
		"fee_basis_points", req.FeeBasisPoints,
	)

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) requireCaller(w http.ResponseWriter, ctx context.Context) (id.Address, bool) {
	caller := requestcontext.Caller(ctx)
	if caller == (id.Address{}) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.Address{}, false
	}
	return caller, true
}
