package services

import (
	"context"
	"log/slog"
	"time"

	"corrsvc/internal/attributes"
)

// HealthStatus is the health endpoint payload
type HealthStatus struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// VersionInfo is the version endpoint payload
type VersionInfo struct {
	Version   string `json:"version"`
	Service   string `json:"service"`
	BuildTime string `json:"build_time,omitempty"`
}

// HealthService reports service liveness, readiness, and version
type HealthService struct {
	desc      *attributes.Description
	logger    *slog.Logger
	version   VersionInfo
	startedAt time.Time
}

// NewHealthService creates a health service
func NewHealthService(desc *attributes.Description, version VersionInfo, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		desc:      desc,
		logger:    logger.With(slog.String("component", "health_service")),
		version:   version,
		startedAt: time.Now(),
	}
}

// HealthCheck reports overall service health
func (s *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	checks := map[string]string{
		"attribute_description": "ok",
	}
	status := "healthy"
	if s.desc == nil || s.desc.NumGroups() == 0 {
		checks["attribute_description"] = "no indicator groups loaded"
		status = "degraded"
	}

	return HealthStatus{
		Status:    status,
		Version:   s.version.Version,
		Uptime:    time.Since(s.startedAt).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	}
}

// ReadinessCheck reports whether the service can serve computation requests.
// Ready means the attribute description table loaded with at least one group.
func (s *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := "ready"
	if s.desc == nil || s.desc.NumGroups() == 0 {
		status = "not_ready"
	}
	return HealthStatus{
		Status:    status,
		Version:   s.version.Version,
		Uptime:    time.Since(s.startedAt).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
	}
}

// LivenessCheck reports process liveness
func (s *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Version:   s.version.Version,
		Uptime:    time.Since(s.startedAt).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
	}
}

// Version returns version information
func (s *HealthService) Version() VersionInfo {
	return s.version
}
