package infrastructure

import "go.opentelemetry.io/otel/metric"

// BusinessMetrics holds application-specific instruments
type BusinessMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	UploadsTotal        metric.Int64Counter
	SectorsComputed     metric.Int64Counter
	MatricesProduced    metric.Int64Counter
	ComputationDuration metric.Float64Histogram
}

// CreateBusinessMetrics creates application-specific metrics
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	// HTTP metrics
	httpRequestsTotal, err := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	httpRequestDuration, err := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	httpActiveRequests, err := meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	// Correlation computation metrics
	uploadsTotal, err := meter.Int64Counter(
		"correlation_uploads_total",
		metric.WithDescription("Total number of dataset uploads processed"),
	)
	if err != nil {
		return nil, err
	}

	sectorsComputed, err := meter.Int64Counter(
		"correlation_sectors_total",
		metric.WithDescription("Total number of sectors processed"),
	)
	if err != nil {
		return nil, err
	}

	matricesProduced, err := meter.Int64Counter(
		"correlation_matrices_total",
		metric.WithDescription("Total number of correlation matrices produced"),
	)
	if err != nil {
		return nil, err
	}

	computationDuration, err := meter.Float64Histogram(
		"correlation_computation_duration_seconds",
		metric.WithDescription("Per-upload correlation computation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &BusinessMetrics{
		HTTPRequestsTotal:   httpRequestsTotal,
		HTTPRequestDuration: httpRequestDuration,
		HTTPActiveRequests:  httpActiveRequests,
		UploadsTotal:        uploadsTotal,
		SectorsComputed:     sectorsComputed,
		MatricesProduced:    matricesProduced,
		ComputationDuration: computationDuration,
	}, nil
}
