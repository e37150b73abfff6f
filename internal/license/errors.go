package license

import "errors"

var (
	// ErrDuplicateKey is returned when a record for the key already exists.
	ErrDuplicateKey = errors.New("license key already exists")

	// ErrEmptyKey is returned when an operation is given a blank key.
	ErrEmptyKey = errors.New("license key is required")

	// ErrNoKeySource is returned by a key cache constructed without a source.
	ErrNoKeySource = errors.New("no key source configured")

	// ErrRefreshThrottled is returned by KeyCache.EnsureFresh when the cache
	// is stale but the previous attempt failed too recently to retry.
	ErrRefreshThrottled = errors.New("key refresh throttled after recent failure")
)
