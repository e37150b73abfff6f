package api

// Response messages.
const (
	MessageLicenseValid     = "License valid"
	MessageLicenseInvalid   = "Invalid license or expired"
	MessageLicenseAdded     = "License added successfully"
	MessageLicenseExists    = "License key already exists"
	MessageKeyAdded         = "Key added successfully"
	MessageKeyAlreadyListed = "Key already present"
	MessageLicenseRevoked   = "License revoked successfully"
)

// ValidateResponse is returned by /validate, including for malformed input.
type ValidateResponse struct {
	IsValid bool   `json:"isValid"`
	Message string `json:"message"`
}

// MessageResponse is returned by /add, /add-key and /revoke.
type MessageResponse struct {
	Message string `json:"message"`
}

// KeysResponse is returned by /keys. Count always equals len(Keys).
type KeysResponse struct {
	Keys  []string `json:"keys"`
	Count int      `json:"count"`
}

// NewKeysResponse builds a KeysResponse, never encoding a null array.
func NewKeysResponse(keys []string) *KeysResponse {
	if keys == nil {
		keys = []string{}
	}
	return &KeysResponse{Keys: keys, Count: len(keys)}
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Variant   string                 `json:"variant,omitempty"`
	Version   string                 `json:"version,omitempty"`
	Timestamp int64                  `json:"timestamp"`
	Checks    map[string]interface{} `json:"checks,omitempty"`
}
