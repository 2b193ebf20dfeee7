package http

import (
	"context"

	"corrsvc/internal/dataset"
	"corrsvc/internal/services"
)

// CorrelationServiceInterface is the contract the correlation handler needs
// from the service layer. Defined handler-side so tests can substitute mocks.
type CorrelationServiceInterface interface {
	ComputeReport(ctx context.Context, table *dataset.Table) []services.SectorResult
}
