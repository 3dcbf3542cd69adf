package handler

// QuoteResponse is the HTTP response for POST /hooks/quote.
type QuoteResponse struct {
	Price uint64 `json:"price"`
}
