package license

import (
	"time"
)

// DefaultValidityDays is the validity period applied when a caller does not
// supply one, and the lifetime of records created lazily by the remote variant.
const DefaultValidityDays = 30

// Variant names which deployment shape a manager implements.
type Variant string

const (
	VariantStatic Variant = "static"
	VariantRemote Variant = "remote"
)

// Clock returns the current time. Managers and caches take one so tests can
// move time without sleeping.
type Clock func() time.Time

// Record is the unit of license state.
type Record struct {
	Key        string `json:"key"`
	HardwareID string `json:"hardwareId"`
	IsActive   bool   `json:"isActive"`
	CreatedAt  int64  `json:"createdAt"`
	ExpiresAt  int64  `json:"expiresAt"`
}

// NewRecord creates an active record for key that expires validity after now.
// hardwareID may be empty, which leaves the record unbound.
func NewRecord(key, hardwareID string, now time.Time, validity time.Duration) Record {
	return Record{
		Key:        key,
		HardwareID: hardwareID,
		IsActive:   true,
		CreatedAt:  now.Unix(),
		ExpiresAt:  now.Add(validity).Unix(),
	}
}

// Expired reports whether now is strictly past the record's expiry second.
func (r Record) Expired(now time.Time) bool {
	return now.Unix() > r.ExpiresAt
}

// Bound reports whether a hardware identifier has claimed the record.
func (r Record) Bound() bool {
	return r.HardwareID != ""
}

// Days converts a whole number of days into a duration.
func Days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

// Outcome is the result of a validation attempt.
type Outcome int

const (
	OutcomeUnknownKey Outcome = iota
	OutcomeExpired
	OutcomeRevoked
	OutcomeHardwareMismatch
	OutcomeValid
	// OutcomeBound means the record was unbound and the caller's hardware
	// identifier has just claimed it.
	OutcomeBound
	// OutcomeCreated means the remote variant created the record on this call.
	OutcomeCreated
)

// Valid reports whether the outcome grants the license.
func (o Outcome) Valid() bool {
	return o == OutcomeValid || o == OutcomeBound || o == OutcomeCreated
}

func (o Outcome) String() string {
	switch o {
	case OutcomeUnknownKey:
		return "unknown_key"
	case OutcomeExpired:
		return "expired"
	case OutcomeRevoked:
		return "revoked"
	case OutcomeHardwareMismatch:
		return "hardware_mismatch"
	case OutcomeValid:
		return "valid"
	case OutcomeBound:
		return "bound"
	case OutcomeCreated:
		return "created"
	default:
		return "unknown"
	}
}

// checkBinding applies the expiry, revocation and hardware rules to an
// existing record, claiming it for hardwareID when it is still unbound.
// The caller must hold the lock of the store that owns rec.
func checkBinding(rec *Record, hardwareID string, now time.Time) Outcome {
	if rec.Expired(now) {
		return OutcomeExpired
	}
	if !rec.IsActive {
		return OutcomeRevoked
	}
	if !rec.Bound() {
		rec.HardwareID = hardwareID
		return OutcomeBound
	}
	if rec.HardwareID == hardwareID {
		return OutcomeValid
	}
	return OutcomeHardwareMismatch
}
