package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	apperrors "licensegate/internal/errors"
	"licensegate/internal/license"
	api "licensegate/pkg/contracts/api/v1"
)

// LicenseService is the request-level API shared by both variants.
type LicenseService interface {
	Validate(ctx context.Context, req api.ValidateRequest) (*api.ValidateResponse, error)
	Revoke(ctx context.Context, req api.RevokeRequest) (*api.MessageResponse, error)
	Variant() license.Variant
	Health(ctx context.Context) license.HealthReport
}

// LicenseIssuer creates new licenses. Only the static variant implements it.
type LicenseIssuer interface {
	AddLicense(ctx context.Context, req api.AddLicenseRequest) (*api.MessageResponse, error)
}

// KeyRegistry manages the remote key list. Only the remote variant
// implements it.
type KeyRegistry interface {
	AddKey(ctx context.Context, req api.AddKeyRequest) (*api.MessageResponse, error)
	ListKeys(ctx context.Context) (*api.KeysResponse, error)
}

// StaticManager is the subset of *license.Manager used by the static service.
type StaticManager interface {
	Validate(ctx context.Context, key, hardwareID string) license.Outcome
	Add(ctx context.Context, key string, daysValid int) (license.Record, error)
	Revoke(ctx context.Context, key string) bool
	Health(ctx context.Context) license.HealthReport
}

// RemoteManager is the subset of *license.RemoteManager used by the remote
// service.
type RemoteManager interface {
	Validate(ctx context.Context, key, hardwareID string) license.Outcome
	AddKey(ctx context.Context, key string) (bool, error)
	Revoke(ctx context.Context, key string) bool
	ListKeys(ctx context.Context) []string
	Health(ctx context.Context) license.HealthReport
}

// StaticLicenseService serves the seeded license list.
type StaticLicenseService struct {
	manager StaticManager
	logger  *slog.Logger
}

// NewStaticLicenseService creates the static variant service.
func NewStaticLicenseService(manager StaticManager, logger *slog.Logger) *StaticLicenseService {
	if logger == nil {
		logger = slog.Default()
	}
	return &StaticLicenseService{
		manager: manager,
		logger:  logger.With(slog.String("service", "license"), slog.String("variant", string(license.VariantStatic))),
	}
}

// Variant returns license.VariantStatic.
func (s *StaticLicenseService) Variant() license.Variant {
	return license.VariantStatic
}

// Validate checks the key against the seeded list.
func (s *StaticLicenseService) Validate(ctx context.Context, req api.ValidateRequest) (*api.ValidateResponse, error) {
	return validateResponse(s.manager.Validate(ctx, req.Key, req.HardwareID)), nil
}

// AddLicense creates an unbound license valid for the requested days.
func (s *StaticLicenseService) AddLicense(ctx context.Context, req api.AddLicenseRequest) (*api.MessageResponse, error) {
	if _, err := s.manager.Add(ctx, req.Key, req.Days()); err != nil {
		return nil, mapLicenseError(ctx, s.logger, "add", err)
	}
	return &api.MessageResponse{Message: api.MessageLicenseAdded}, nil
}

// Revoke deactivates the license. Unknown keys succeed without effect.
func (s *StaticLicenseService) Revoke(ctx context.Context, req api.RevokeRequest) (*api.MessageResponse, error) {
	s.manager.Revoke(ctx, req.Key)
	return &api.MessageResponse{Message: api.MessageLicenseRevoked}, nil
}

// Health reports the license subsystem.
func (s *StaticLicenseService) Health(ctx context.Context) license.HealthReport {
	return s.manager.Health(ctx)
}

// RemoteLicenseService serves the remote key list and activation table.
type RemoteLicenseService struct {
	manager RemoteManager
	logger  *slog.Logger
}

// NewRemoteLicenseService creates the remote variant service.
func NewRemoteLicenseService(manager RemoteManager, logger *slog.Logger) *RemoteLicenseService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteLicenseService{
		manager: manager,
		logger:  logger.With(slog.String("service", "license"), slog.String("variant", string(license.VariantRemote))),
	}
}

// Variant returns license.VariantRemote.
func (s *RemoteLicenseService) Variant() license.Variant {
	return license.VariantRemote
}

// Validate checks the key against the cached key list, activating it on
// first use.
func (s *RemoteLicenseService) Validate(ctx context.Context, req api.ValidateRequest) (*api.ValidateResponse, error) {
	return validateResponse(s.manager.Validate(ctx, req.Key, req.HardwareID)), nil
}

// AddKey appends the key to the cached key list.
func (s *RemoteLicenseService) AddKey(ctx context.Context, req api.AddKeyRequest) (*api.MessageResponse, error) {
	added, err := s.manager.AddKey(ctx, req.Key)
	if err != nil {
		return nil, mapLicenseError(ctx, s.logger, "add_key", err)
	}
	if !added {
		return &api.MessageResponse{Message: api.MessageKeyAlreadyListed}, nil
	}
	return &api.MessageResponse{Message: api.MessageKeyAdded}, nil
}

// ListKeys returns the cached key list, refreshing it first when stale.
func (s *RemoteLicenseService) ListKeys(ctx context.Context) (*api.KeysResponse, error) {
	return api.NewKeysResponse(s.manager.ListKeys(ctx)), nil
}

// Revoke deactivates an activated key. Keys never validated succeed without
// effect.
func (s *RemoteLicenseService) Revoke(ctx context.Context, req api.RevokeRequest) (*api.MessageResponse, error) {
	s.manager.Revoke(ctx, req.Key)
	return &api.MessageResponse{Message: api.MessageLicenseRevoked}, nil
}

// Health reports the license subsystem including the key cache.
func (s *RemoteLicenseService) Health(ctx context.Context) license.HealthReport {
	return s.manager.Health(ctx)
}

func validateResponse(outcome license.Outcome) *api.ValidateResponse {
	if outcome.Valid() {
		return &api.ValidateResponse{IsValid: true, Message: api.MessageLicenseValid}
	}
	return &api.ValidateResponse{IsValid: false, Message: api.MessageLicenseInvalid}
}

// mapLicenseError converts license sentinel errors to API errors. Anything
// unrecognised is logged, wrapped and becomes a 500.
func mapLicenseError(ctx context.Context, logger *slog.Logger, op string, err error) error {
	switch {
	case errors.Is(err, license.ErrDuplicateKey):
		return apperrors.ErrLicenseExists
	case errors.Is(err, license.ErrEmptyKey):
		return apperrors.NewWithDetails(http.StatusBadRequest, apperrors.CodeValidationFailed, "key is required", err.Error())
	default:
		logger.ErrorContext(ctx, "license operation failed",
			slog.String("operation", op),
			slog.String("error", err.Error()))
		return fmt.Errorf("license %s failed: %w", op, err)
	}
}
