// Package license implements license validation for licensegate.
//
// A license record pairs a key with an optional hardware identifier, an
// active flag and an expiry second. Validation applies the same rules in
// both deployment variants:
//
//	1. Unknown key: invalid, nothing is created
//	2. Expired record: invalid (the remote variant evicts it)
//	3. Revoked record: invalid
//	4. Unbound record: the caller's hardware identifier claims it
//	5. Bound record: valid only for the bound hardware identifier
//
// # Static Variant
//
// Manager serves a Store seeded at startup. New unbound records are added
// through Manager.Add; a key can only be added once.
//
// # Remote Variant
//
// RemoteManager takes key membership from a KeyCache, which periodically
// fetches the key list from a KeySource (HTTPKeySource or SheetsKeySource).
// A cached key with no record is activated on its first validation with a
// fresh 30 day record bound to the caller.
//
// The cache refreshes lazily when a request finds it stale. Concurrent
// stale requests share one fetch, and after a fetch, request-driven
// attempts are spaced by the minimum retry interval. A failed fetch keeps
// the previous list.
//
// # Concurrency
//
// Each Store has one mutex, held for a single lookup and mutation. The
// KeyCache list lock is never held during a fetch.
package license
