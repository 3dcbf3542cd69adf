package handler

import (
	"strings"
	"time"

	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
)

// QuoteRequest is the HTTP request body for POST /hooks/quote.
type QuoteRequest struct {
	Buyer     string `json:"buyer"`
	Recipient string `json:"recipient"`
	Referrer  string `json:"referrer"`
	Data      string `json:"data"`

	// Parsed values (populated by Validate)
	parsedBuyer     id.Address
	parsedRecipient id.Address
	parsedReferrer  id.Address
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *QuoteRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	var err error
	if r.parsedBuyer, err = parseRequired("buyer", r.Buyer); err != nil {
		return err
	}
	if r.parsedRecipient, err = parseRequired("recipient", r.Recipient); err != nil {
		return err
	}
	if r.parsedReferrer, err = parseOptional("referrer", r.Referrer); err != nil {
		return err
	}
	return nil
}

// ParsedBuyer returns the validated buyer address.
func (r *QuoteRequest) ParsedBuyer() id.Address { return r.parsedBuyer }

// ParsedRecipient returns the validated recipient address.
func (r *QuoteRequest) ParsedRecipient() id.Address { return r.parsedRecipient }

// ParsedReferrer returns the validated referrer address.
func (r *QuoteRequest) ParsedReferrer() id.Address { return r.parsedReferrer }

// PurchaseRequest is the HTTP request body for POST /hooks/purchase.
type PurchaseRequest struct {
	SaleID    string `json:"sale_id"`
	Payer     string `json:"payer"`
	Recipient string `json:"recipient"`
	Referrer  string `json:"referrer"`
	Data      string `json:"data"`
	MinPrice  uint64 `json:"min_price"`
	PricePaid uint64 `json:"price_paid"`

	parsedSaleID    id.SaleID
	parsedPayer     id.Address
	parsedRecipient id.Address
	parsedReferrer  id.Address
}

// Validate validates and parses the request.
func (r *PurchaseRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.SaleID = strings.TrimSpace(r.SaleID)
	if r.SaleID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "sale_id is required")
	}
	saleID, err := id.ParseSaleID(r.SaleID)
	if err != nil {
		return err
	}
	r.parsedSaleID = saleID

	if r.parsedPayer, err = parseRequired("payer", r.Payer); err != nil {
		return err
	}
	if r.parsedRecipient, err = parseRequired("recipient", r.Recipient); err != nil {
		return err
	}
	if r.parsedReferrer, err = parseOptional("referrer", r.Referrer); err != nil {
		return err
	}
	return nil
}

// ParsedSaleID returns the validated sale ID.
func (r *PurchaseRequest) ParsedSaleID() id.SaleID { return r.parsedSaleID }

// ParsedPayer returns the validated payer address.
func (r *PurchaseRequest) ParsedPayer() id.Address { return r.parsedPayer }

// ParsedRecipient returns the validated recipient address.
func (r *PurchaseRequest) ParsedRecipient() id.Address { return r.parsedRecipient }

// ParsedReferrer returns the validated referrer address.
func (r *PurchaseRequest) ParsedReferrer() id.Address { return r.parsedReferrer }

// TransferRequest is the HTTP request body for POST /hooks/transfer.
type TransferRequest struct {
	SaleID    string    `json:"sale_id"`
	Operator  string    `json:"operator"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	ExpiresAt time.Time `json:"expires_at"`

	parsedSaleID   id.SaleID
	parsedOperator id.Address
	parsedFrom     id.Address
	parsedTo       id.Address
}

// Validate validates and parses the request.
// Zero-value operator, from, and to are legal: mint- and burn-shaped
// transfers carry zero addresses and the transfer policy decides on them.
func (r *TransferRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.SaleID = strings.TrimSpace(r.SaleID)
	if r.SaleID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "sale_id is required")
	}
	saleID, err := id.ParseSaleID(r.SaleID)
	if err != nil {
		return err
	}
	r.parsedSaleID = saleID

	if r.parsedOperator, err = parseOptional("operator", r.Operator); err != nil {
		return err
	}
	if r.parsedFrom, err = parseOptional("from", r.From); err != nil {
		return err
	}
	if r.parsedTo, err = parseOptional("to", r.To); err != nil {
		return err
	}
	return nil
}

// ParsedSaleID returns the validated sale ID.
func (r *TransferRequest) ParsedSaleID() id.SaleID { return r.parsedSaleID }

// ParsedOperator returns the validated operator address.
func (r *TransferRequest) ParsedOperator() id.Address { return r.parsedOperator }

// ParsedFrom returns the validated sender address.
func (r *TransferRequest) ParsedFrom() id.Address { return r.parsedFrom }

// ParsedTo returns the validated recipient address.
func (r *TransferRequest) ParsedTo() id.Address { return r.parsedTo }

// SetReferrerFeeRequest is the HTTP request body for POST /admin/referrer-fee.
type SetReferrerFeeRequest struct {
	FeeBasisPoints uint16 `json:"fee_basis_points"`

	parsedFee id.BasisPoints
}

// Validate validates and parses the request.
func (r *SetReferrerFeeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	fee, err := id.ParseBasisPoints(uint64(r.FeeBasisPoints))
	if err != nil {
		return err
	}
	r.parsedFee = fee
	return nil
}

// ParsedFee returns the validated fee.
func (r *SetReferrerFeeRequest) ParsedFee() id.BasisPoints { return r.parsedFee }

func parseRequired(field, raw string) (id.Address, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return id.Address{}, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", field)
	}
	addr, err := id.ParseAddress(raw)
	if err != nil {
		return id.Address{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, field+" is not a valid address")
	}
	return addr, nil
}

func parseOptional(field, raw string) (id.Address, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return id.Address{}, nil
	}
	addr, err := id.ParseAddress(raw)
	if err != nil {
		return id.Address{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, field+" is not a valid address")
	}
	return addr, nil
}
