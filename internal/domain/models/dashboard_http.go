package models

// Requests for dashboard HTTP endpoints. Defined in domain for consistency and reuse.

type MoversRequest struct {
	N int `query:"n" json:"n" default:"10" validate:"gte=1,lte=50"`
}

type QuoteRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type NewsRequest struct {
	Symbol string `query:"symbol" json:"symbol"`
	Limit  int    `query:"limit" json:"limit" default:"25" validate:"gte=1,lte=100"`
}
