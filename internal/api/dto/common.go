package dto

import (
	"github.com/shopspring/decimal"
)

func init() {
	// money goes over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// SuccessResponse represents a generic success response
type SuccessResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
