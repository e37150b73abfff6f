// Package shared holds code used across licensegate packages that belongs to
// no single layer. Its testutil subpackage provides a capturing slog handler
// and a fake key list server for tests.
package shared
