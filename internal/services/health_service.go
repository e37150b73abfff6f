package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"licensegate/internal/license"
	"licensegate/pkg/contracts"
	api "licensegate/pkg/contracts/api/v1"
)

// HealthChecker reports the state of the license subsystem.
type HealthChecker interface {
	Health(ctx context.Context) license.HealthReport
}

// HealthService provides health check functionality
type HealthService struct {
	variant   license.Variant
	license   HealthChecker
	startTime time.Time
	now       func() time.Time
	logger    *slog.Logger
}

// NewHealthService creates a health service for the running variant.
func NewHealthService(variant license.Variant, checker HealthChecker, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		variant:   variant,
		license:   checker,
		startTime: time.Now(),
		now:       time.Now,
		logger:    logger.With(slog.String("service", "health")),
	}
}

// LivenessCheck reports that the process is serving requests.
func (hs *HealthService) LivenessCheck(ctx context.Context) *api.HealthResponse {
	return &api.HealthResponse{
		Status:    "alive",
		Variant:   string(hs.variant),
		Version:   contracts.Version,
		Timestamp: hs.now().Unix(),
		Checks: map[string]interface{}{
			"uptime_seconds": int64(time.Since(hs.startTime).Seconds()),
			"goroutines":     runtime.NumGoroutine(),
			"go_version":     runtime.Version(),
		},
	}
}

// ReadinessCheck reports whether validations can be served. The second
// return value is false when the license subsystem is unhealthy.
func (hs *HealthService) ReadinessCheck(ctx context.Context) (*api.HealthResponse, bool) {
	report := hs.license.Health(ctx)
	ready := report.Ready()

	status := "ready"
	if !ready {
		status = "not_ready"
		hs.logger.WarnContext(ctx, "readiness check failed",
			slog.String("license_status", string(report.Status)),
			slog.String("message", report.Message))
	}

	return &api.HealthResponse{
		Status:    status,
		Variant:   string(hs.variant),
		Version:   contracts.Version,
		Timestamp: hs.now().Unix(),
		Checks: map[string]interface{}{
			"license": report,
		},
	}, ready
}

// Version returns build information.
func (hs *HealthService) Version() contracts.VersionInfo {
	return contracts.GetVersionInfo()
}
