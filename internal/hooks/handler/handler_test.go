package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"keygate/internal/hooks"
	"keygate/internal/hooks/handler/mocks"
	id "keygate/pkg/domain"
	"keygate/pkg/testutil"
)

const (
	callerHex    = "0x9000000000000000000000000000000000000001"
	buyerHex     = "0x9000000000000000000000000000000000000002"
	recipientHex = "0x9000000000000000000000000000000000000003"
	referrerHex  = "0x9000000000000000000000000000000000000004"
)

type HooksHandlerSuite struct {
	suite.Suite
	ctx context.Context
}

func TestHooksHandlerSuite(t *testing.T) {
	suite.Run(t, new(HooksHandlerSuite))
}

func (s *HooksHandlerSuite) SetupSuite() {
	s.ctx = context.Background()
}

func newTestHandler(t *testing.T) (chi.Router, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	New(mockService, logger).Register(r)
	return r, mockService
}

// ============================================================================
// POST /hooks/quote
// ============================================================================

func (s *HooksHandlerSuite) TestHandleQuote() {
	router, mockService := newTestHandler(s.T())

	mockService.EXPECT().
		QuotePrice(gomock.Any(), id.MustAddress(buyerHex), id.MustAddress(recipientHex), id.MustAddress(referrerHex), gomock.Any()).
		Return(id.Amount(150), nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/hooks/quote", QuoteRequest{
		Buyer:     buyerHex,
		Recipient: recipientHex,
		Referrer:  referrerHex,
	})
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[QuoteResponse](s.T(), rr)
	s.Equal(uint64(150), resp.Price)
}

func (s *HooksHandlerSuite) TestHandleQuoteValidation() {
	router, _ := newTestHandler(s.T())

	s.Run("missing buyer", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/hooks/quote", QuoteRequest{
			Recipient: recipientHex,
		})
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})

	s.Run("malformed address", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/hooks/quote", QuoteRequest{
			Buyer:     "0x123",
			Recipient: recipientHex,
		})
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})

	s.Run("malformed body", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/hooks/quote", "{not json")
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})
}

func (s *HooksHandlerSuite) TestHandleQuoteFeeMismatch() {
	router, mockService := newTestHandler(s.T())

	mockService.EXPECT().
		QuotePrice(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(id.Amount(0), hooks.ErrInvalidReferrerFee)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/hooks/quote", QuoteRequest{
		Buyer:     buyerHex,
		Recipient: recipientHex,
		Referrer:  referrerHex,
	})
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "failed_precondition")
}

// ============================================================================
// POST /hooks/purchase
// ============================================================================

func purchaseBody(saleID id.SaleID) PurchaseRequest {
	return PurchaseRequest{
		SaleID:    saleID.String(),
		Payer:     buyerHex,
		Recipient: recipientHex,
		Referrer:  referrerHex,
		MinPrice:  100,
		PricePaid: 100,
	}
}

func (s *HooksHandlerSuite) TestHandlePurchase() {
	router, mockService := newTestHandler(s.T())
	saleID := id.NewSaleID()
	caller := id.MustAddress(callerHex)

	mockService.EXPECT().
		OnPurchase(gomock.Any(), caller, saleID,
			id.MustAddress(buyerHex), id.MustAddress(recipientHex), id.MustAddress(referrerHex),
			gomock.Any(), id.Amount(100), id.Amount(100)).
		Return(nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/hooks/purchase", purchaseBody(saleID))
	req = testutil.WithCaller(req, callerHex)
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
}

func (s *HooksHandlerSuite) TestHandlePurchaseRequiresCaller() {
	router, _ := newTestHandler(s.T())

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/hooks/purchase", purchaseBody(id.NewSaleID()))
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
}

func (s *HooksHandlerSuite) TestHandlePurchaseUnauthorizedCaller() {
	router, mockService := newTestHandler(s.T())

	mockService.EXPECT().
		OnPurchase(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(),
			gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(hooks.ErrNotAuthorizedCaller)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/hooks/purchase", purchaseBody(id.NewSaleID()))
	req = testutil.WithCaller(req, buyerHex)
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
}

// ============================================================================
// POST /hooks/transfer
// ============================================================================

func (s *HooksHandlerSuite) TestHandleTransfer() {
	router, mockService := newTestHandler(s.T())
	saleID := id.NewSaleID()
	caller := id.MustAddress(callerHex)
	expiry := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	s.Run("zero addresses are legal transfer shapes", func() {
		mockService.EXPECT().
			OnTransfer(gomock.Any(), caller, saleID,
				id.ZeroAddress, id.ZeroAddress, id.MustAddress(recipientHex), expiry).
			Return(nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/hooks/transfer", TransferRequest{
			SaleID:    saleID.String(),
			To:        recipientHex,
			ExpiresAt: expiry,
		})
		req = testutil.WithCaller(req, callerHex)
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	})

	s.Run("service veto surfaces as forbidden", func() {
		mockService.EXPECT().
			OnTransfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(hooks.ErrTransferNotAllowed)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/hooks/transfer", TransferRequest{
			SaleID: saleID.String(),
			From:   buyerHex,
			To:     recipientHex,
		})
		req = testutil.WithCaller(req, callerHex)
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})

	s.Run("missing sale_id is rejected", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/hooks/transfer", TransferRequest{
			From: buyerHex,
			To:   recipientHex,
		})
		req = testutil.WithCaller(req, callerHex)
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})
}

// ============================================================================
// POST /admin/referrer-fee
// ============================================================================

func (s *HooksHandlerSuite) TestHandleSetReferrerFee() {
	router, mockService := newTestHandler(s.T())

	s.Run("forwards the authenticated actor", func() {
		mockService.EXPECT().
			SetFutureReferrerFee(gomock.Any(), id.MustAddress(referrerHex), id.BasisPoints(500)).
			Return(nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/referrer-fee", SetReferrerFeeRequest{FeeBasisPoints: 500})
		req = testutil.WithCaller(req, referrerHex)
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	})

	s.Run("requires authentication", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/referrer-fee", SetReferrerFeeRequest{FeeBasisPoints: 500})
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})

	s.Run("fee above the scale is rejected", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/referrer-fee", SetReferrerFeeRequest{FeeBasisPoints: 10001})
		req = testutil.WithCaller(req, referrerHex)
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})

	s.Run("non-referrer actor is forbidden", func() {
		mockService.EXPECT().
			SetFutureReferrerFee(gomock.Any(), id.MustAddress(buyerHex), id.BasisPoints(500)).
			Return(hooks.ErrNotAuthorizedAdmin)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/referrer-fee", SetReferrerFeeRequest{FeeBasisPoints: 500})
		req = testutil.WithCaller(req, buyerHex)
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})
}
