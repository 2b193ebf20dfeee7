// Package services holds the request-scoped application services sitting
// between the HTTP transport and the pure computation packages.
package services

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"corrsvc/internal/attributes"
	"corrsvc/internal/correlation"
	"corrsvc/internal/dataset"
	"corrsvc/internal/infrastructure"
)

// SectorResult is one per-sector entry of the response document: the sector
// identifier and the correlation matrix of every indicator group that
// produced one.
type SectorResult struct {
	Sector        string                         `json:"sector_name"`
	GroupMatrices map[string]*correlation.Result `json:"group_correlation_matrices"`
}

// computeFunc matches correlation.Compute; swappable for tests.
type computeFunc func(frame correlation.Frame, fields []string) (*correlation.Result, bool)

// CorrelationService runs the sector-by-group correlation report over an
// uploaded dataset. The attribute description table is injected at
// construction and never mutated, so a single service instance serves
// concurrent requests.
type CorrelationService struct {
	desc    *attributes.Description
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
	compute computeFunc
}

// NewCorrelationService creates a correlation service around the loaded
// attribute description table. metrics may be nil.
func NewCorrelationService(desc *attributes.Description, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *CorrelationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CorrelationService{
		desc:    desc,
		logger:  logger.With(slog.String("component", "correlation_service")),
		metrics: metrics,
		compute: correlation.Compute,
	}
}

// ComputeReport iterates the dataset's sectors and, per sector, every
// indicator group, assembling the nested result document. Groups without
// enough clean data are omitted; a sector appears only when at least one of
// its groups produced a matrix.
func (s *CorrelationService) ComputeReport(ctx context.Context, table *dataset.Table) []SectorResult {
	start := time.Now()
	slices := table.PartitionBySector()

	results := make([]SectorResult, 0, len(slices))
	matrices := 0

	for _, slice := range slices {
		groups := make(map[string]*correlation.Result)

		for _, group := range s.desc.Groups() {
			fields := s.desc.FieldsForGroup(group)
			if res, ok := s.computeGroup(ctx, slice, group, fields); ok {
				groups[group] = res
			}
		}

		if len(groups) > 0 {
			results = append(results, SectorResult{
				Sector:        slice.Sector,
				GroupMatrices: groups,
			})
			matrices += len(groups)
		}
	}

	elapsed := time.Since(start)
	s.logger.InfoContext(ctx, "correlation report computed",
		slog.Int("rows", table.NumRows()),
		slog.Int("sectors", len(slices)),
		slog.Int("sectors_with_results", len(results)),
		slog.Int("matrices", matrices),
		slog.String("duration", elapsed.String()),
	)

	if s.metrics != nil {
		s.metrics.UploadsTotal.Add(ctx, 1)
		s.metrics.SectorsComputed.Add(ctx, int64(len(slices)))
		s.metrics.MatricesProduced.Add(ctx, int64(matrices),
			metric.WithAttributes(attribute.Int("sectors", len(results))))
		s.metrics.ComputationDuration.Record(ctx, elapsed.Seconds())
	}

	return results
}

// computeGroup invokes the engine for one (sector, group) pair, isolating
// panics so a single failing pair cannot abort the whole response. A
// recovered pair is logged and omitted, same as any other non-result.
func (s *CorrelationService) computeGroup(ctx context.Context, slice *dataset.SectorSlice, group string, fields []string) (res *correlation.Result, ok bool) {
	defer func() {
		if rvr := recover(); rvr != nil {
			s.logger.ErrorContext(ctx, "correlation computation panicked",
				slog.String("sector", slice.Sector),
				slog.String("group", group),
				slog.Any("panic", rvr),
				slog.String("stack", string(debug.Stack())),
			)
			res, ok = nil, false
		}
	}()

	return s.compute(slice, fields)
}

// NumGroups reports how many indicator groups the service resolves against.
func (s *CorrelationService) NumGroups() int {
	return s.desc.NumGroups()
}
