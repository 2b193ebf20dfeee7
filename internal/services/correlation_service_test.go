package services

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corrsvc/internal/attributes"
	"corrsvc/internal/correlation"
	"corrsvc/internal/dataset"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDescription() *attributes.Description {
	desc := attributes.NewDescription()
	desc.Add("profitability", "roe")
	desc.Add("profitability", "roa")
	desc.Add("leverage", "debt_ratio")
	desc.Add("leverage", "equity_ratio")
	return desc
}

func parseTable(t *testing.T, csv string) *dataset.Table {
	t.Helper()
	table, err := dataset.ParseCSV(strings.NewReader(csv))
	require.NoError(t, err)
	return table
}

func TestComputeReport(t *testing.T) {
	svc := NewCorrelationService(testDescription(), testLogger(), nil)

	table := parseTable(t, "sector_unique_id,roe,roa,debt_ratio\n"+
		"tech,0.10,0.05,1.0\n"+
		"tech,0.20,0.10,1.5\n"+
		"tech,0.30,0.15,2.0\n"+
		"energy,0.01,0.02,0.5\n")

	results := svc.ComputeReport(context.Background(), table)

	// energy has a single row, so no group can produce a matrix there and
	// the sector is omitted entirely.
	require.Len(t, results, 1)
	assert.Equal(t, "tech", results[0].Sector)

	// profitability has both fields; leverage has only debt_ratio in the
	// data, which is fewer than two fields, so it is silently absent.
	require.Contains(t, results[0].GroupMatrices, "profitability")
	assert.NotContains(t, results[0].GroupMatrices, "leverage")

	matrix := results[0].GroupMatrices["profitability"]
	assert.Equal(t, []string{"roe", "roa"}, matrix.Headers)
	require.True(t, matrix.Matrix[0][1].Valid)
	assert.InDelta(t, 1.0, matrix.Matrix[0][1].Value, 1e-12)
}

func TestComputeReport_SectorOrderIsDeterministic(t *testing.T) {
	svc := NewCorrelationService(testDescription(), testLogger(), nil)

	table := parseTable(t, "sector_unique_id,roe,roa\n"+
		"zeta,0.1,0.2\n"+
		"zeta,0.2,0.4\n"+
		"zeta,0.3,0.5\n"+
		"alpha,0.1,0.3\n"+
		"alpha,0.2,0.5\n"+
		"alpha,0.3,0.6\n")

	results := svc.ComputeReport(context.Background(), table)
	require.Len(t, results, 2)
	assert.Equal(t, "alpha", results[0].Sector)
	assert.Equal(t, "zeta", results[1].Sector)

	// Idempotence: a second run yields an identical document
	again := svc.ComputeReport(context.Background(), table)
	assert.Equal(t, results, again)
}

func TestComputeReport_CoversAllSectorsWithResults(t *testing.T) {
	svc := NewCorrelationService(testDescription(), testLogger(), nil)

	table := parseTable(t, "sector_unique_id,roe,roa\n"+
		"a,1,2\n"+"a,2,4\n"+"a,3,6\n"+
		"b,5,1\n"+"b,6,3\n"+"b,7,4\n")

	results := svc.ComputeReport(context.Background(), table)
	require.Len(t, results, 2)

	seen := map[string]bool{}
	for _, r := range results {
		seen[r.Sector] = true
		assert.NotEmpty(t, r.GroupMatrices)
	}
	assert.True(t, seen["a"])
	assert.True(t, seen["b"])
}

func TestComputeReport_EmptyTable(t *testing.T) {
	svc := NewCorrelationService(testDescription(), testLogger(), nil)

	table := parseTable(t, "sector_unique_id,roe,roa\n")
	results := svc.ComputeReport(context.Background(), table)
	assert.Empty(t, results)
}

func TestComputeReport_PanicIsolation(t *testing.T) {
	svc := NewCorrelationService(testDescription(), testLogger(), nil)

	// A panicking engine call for one group must not abort the others.
	svc.compute = func(frame correlation.Frame, fields []string) (*correlation.Result, bool) {
		if fields[0] == "debt_ratio" {
			panic("boom")
		}
		return correlation.Compute(frame, fields)
	}

	table := parseTable(t, "sector_unique_id,roe,roa,debt_ratio,equity_ratio\n"+
		"tech,0.10,0.05,1.0,0.9\n"+
		"tech,0.20,0.10,1.5,0.8\n"+
		"tech,0.30,0.15,2.0,0.7\n")

	var results []SectorResult
	require.NotPanics(t, func() {
		results = svc.ComputeReport(context.Background(), table)
	})

	require.Len(t, results, 1)
	assert.Contains(t, results[0].GroupMatrices, "profitability")
	assert.NotContains(t, results[0].GroupMatrices, "leverage")
}
