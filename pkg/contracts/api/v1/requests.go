// Package api contains API contract definitions for licensegate.
// Version v1 represents the current stable API version.
package api

// DefaultDaysValid is applied when an add request omits daysValid.
const DefaultDaysValid = 30

// License API Requests

// ValidateRequest asks whether key is valid for hardwareId. Timestamp is
// accepted for client compatibility and ignored. An empty key is an unknown
// key, not a malformed request.
type ValidateRequest struct {
	Key        string `json:"key" validate:"max=256"`
	HardwareID string `json:"hardwareId" validate:"max=256"`
	Timestamp  int64  `json:"timestamp,omitempty"`
}

// AddLicenseRequest creates a new unbound license (static variant).
type AddLicenseRequest struct {
	Key       string `json:"key" validate:"required,max=256"`
	DaysValid *int   `json:"daysValid,omitempty" validate:"omitempty,min=0,max=36500"`
}

// Days returns the requested validity, defaulting to DefaultDaysValid.
func (r AddLicenseRequest) Days() int {
	if r.DaysValid == nil {
		return DefaultDaysValid
	}
	return *r.DaysValid
}

// AddKeyRequest appends a key to the cached key list (remote variant).
type AddKeyRequest struct {
	Key string `json:"key" validate:"required,max=256"`
}

// RevokeRequest deactivates a license. Revoking an empty or unknown key
// succeeds without effect.
type RevokeRequest struct {
	Key string `json:"key" validate:"max=256"`
}
