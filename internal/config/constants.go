package config

import "time"

// Application constants
const (
	// Application Info
	AppName = "licensegate"

	// EnvPrefix namespaces all environment variables (LICENSEGATE_*).
	EnvPrefix = "LICENSEGATE"

	// ConfigFileEnv names the variable holding the YAML config file path.
	ConfigFileEnv = "LICENSEGATE_CONFIG"

	// Variants
	VariantStatic = "static"
	VariantRemote = "remote"

	// Key source types
	KeySourceHTTP   = "http"
	KeySourceSheets = "sheets"

	// Trace exporters
	TraceExporterNone   = "none"
	TraceExporterStdout = "stdout"

	// Log outputs
	LogOutputConsole = "console"
	LogOutputFile    = "file"
	LogOutputBoth    = "both"

	// Server defaults
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 8080
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultRequestTimeout  = 30 * time.Second
	DefaultMaxHeaderBytes  = 1 << 20
	DefaultMaxRequestBytes = 64 << 10

	// License defaults
	DefaultValidityDays = 30

	// Key source defaults
	DefaultCacheInterval    = 5 * time.Minute
	DefaultMinRetryInterval = 30 * time.Second
	DefaultFetchTimeout     = 10 * time.Second
	DefaultMaxBodyBytes     = 1 << 20
	DefaultSheetsRange      = "A:A"

	// Log rotation defaults
	DefaultLogFile       = "logs/licensegate.log"
	DefaultLogMaxSizeMB  = 100
	DefaultLogMaxBackups = 5
	DefaultLogMaxAgeDays = 30
)

// DefaultSeedKeys are loaded into the static store when no keys are configured.
var DefaultSeedKeys = []string{
	"ABCD-EFGH-IJKL-MNOP",
	"QRST-UVWX-YZAB-CDEF",
}
