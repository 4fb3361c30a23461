// Package api provides the interface and types for fuel price feed providers.
package api

import (
	"context"

	"github.com/andygrunwald/fuel-tracker/internal/models"
)

// Provider defines the interface for fuel price feed providers.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// FetchPrices fetches the historical price list for one product code.
	// Malformed entries inside the document are dropped; an error means the
	// request failed or the document could not be read at all.
	FetchPrices(ctx context.Context, productCode string) ([]models.PriceObservation, error)
}
