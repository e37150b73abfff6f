package license

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// HealthStatus represents the overall health status
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthReport describes the license subsystem for readiness probes.
type HealthReport struct {
	Status  HealthStatus   `json:"status"`
	Variant Variant        `json:"variant"`
	Message string         `json:"message"`
	Records int            `json:"records"`
	Cache   *KeyCacheState `json:"cache,omitempty"`
}

// Ready reports whether the subsystem can serve validations.
func (r HealthReport) Ready() bool {
	return r.Status != HealthStatusUnhealthy
}

// Health reports the static store. A static manager is always healthy.
func (m *Manager) Health(ctx context.Context) HealthReport {
	_, span := otel.Tracer(TracerName).Start(ctx, "license.health")
	defer span.End()

	report := HealthReport{
		Status:  HealthStatusHealthy,
		Variant: VariantStatic,
		Message: "license store ready",
		Records: m.store.Len(),
	}
	span.SetAttributes(attribute.String("license.health", string(report.Status)))
	return report
}

// Health reports the activation table and key cache. The remote variant is
// unhealthy until the first successful fetch and degraded while the last
// attempt failed or the list is stale.
func (m *RemoteManager) Health(ctx context.Context) HealthReport {
	_, span := otel.Tracer(TracerName).Start(ctx, "license.health")
	defer span.End()

	state := m.cache.State()
	report := HealthReport{
		Variant: VariantRemote,
		Records: m.store.Len(),
		Cache:   &state,
	}

	switch {
	case !state.Loaded && state.Keys == 0:
		report.Status = HealthStatusUnhealthy
		report.Message = "key list has not been loaded"
	case state.LastError != "":
		report.Status = HealthStatusDegraded
		report.Message = "last key list refresh failed, serving cached keys"
	case state.Stale:
		report.Status = HealthStatusDegraded
		report.Message = "key list is stale"
	default:
		report.Status = HealthStatusHealthy
		report.Message = "key list loaded"
	}

	span.SetAttributes(
		attribute.String("license.health", string(report.Status)),
		attribute.Int("license.cached_keys", state.Keys),
	)
	return report
}
