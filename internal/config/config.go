package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Variant   string          `yaml:"variant" split_words:"true"`
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	License   LicenseConfig   `yaml:"license" envconfig:"LICENSE"`
	KeySource KeySourceConfig `yaml:"key_source" envconfig:"KEY_SOURCE"`
}

// ServerConfig contains HTTP server configuration. Port also honours the
// plain PORT variable.
type ServerConfig struct {
	Host            string        `yaml:"host" split_words:"true"`
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
	RequestTimeout  time.Duration `yaml:"request_timeout" split_words:"true"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" split_words:"true"`
	MaxRequestBytes int64         `yaml:"max_request_bytes" split_words:"true"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" split_words:"true"`
	Output     string `yaml:"output" split_words:"true"`
	FilePath   string `yaml:"file_path" split_words:"true"`
	MaxSizeMB  int    `yaml:"max_size_mb" split_words:"true"`
	MaxBackups int    `yaml:"max_backups" split_words:"true"`
	MaxAgeDays int    `yaml:"max_age_days" split_words:"true"`
	Compress   bool   `yaml:"compress" split_words:"true"`
	AddSource  bool   `yaml:"add_source" split_words:"true"`
}

// TelemetryConfig contains metrics and tracing configuration
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" split_words:"true"`
	MetricsEnabled bool   `yaml:"metrics_enabled" split_words:"true"`
	TraceExporter  string `yaml:"trace_exporter" split_words:"true"`
}

// LicenseConfig contains license store configuration
type LicenseConfig struct {
	// SeedKeys populate the static store at startup.
	SeedKeys []string `yaml:"seed_keys" split_words:"true"`
	// SeedValidityDays is the lifetime of seeded records.
	SeedValidityDays int `yaml:"seed_validity_days" split_words:"true"`
	// ActivationValidityDays is the lifetime of records the remote variant
	// creates on first validation.
	ActivationValidityDays int `yaml:"activation_validity_days" split_words:"true"`
}

// KeySourceConfig configures where the remote variant fetches keys from
type KeySourceConfig struct {
	Type             string        `yaml:"type" split_words:"true"`
	URL              string        `yaml:"url" split_words:"true"`
	CacheInterval    time.Duration `yaml:"cache_interval" split_words:"true"`
	MinRetryInterval time.Duration `yaml:"min_retry_interval" split_words:"true"`
	FetchTimeout     time.Duration `yaml:"fetch_timeout" split_words:"true"`
	MaxBodyBytes     int64         `yaml:"max_body_bytes" split_words:"true"`
	WarmOnStart      bool          `yaml:"warm_on_start" split_words:"true"`
	Sheets           SheetsConfig  `yaml:"sheets" envconfig:"SHEETS"`
}

// SheetsConfig locates the key column of a Google Sheet
type SheetsConfig struct {
	SpreadsheetID   string `yaml:"spreadsheet_id" split_words:"true"`
	Range           string `yaml:"range" split_words:"true"`
	APIKey          string `yaml:"api_key" split_words:"true"`
	CredentialsFile string `yaml:"credentials_file" split_words:"true"`
}

// Load builds the configuration from defaults, then the YAML file at path
// (or $LICENSEGATE_CONFIG when path is empty), then environment variables.
// Each layer only overrides the values it sets.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(ConfigFileEnv)
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func (c *Config) normalize() {
	c.Variant = strings.ToLower(strings.TrimSpace(c.Variant))
	c.KeySource.Type = strings.ToLower(strings.TrimSpace(c.KeySource.Type))
	c.Logging.Output = strings.ToLower(strings.TrimSpace(c.Logging.Output))
	c.Telemetry.TraceExporter = strings.ToLower(strings.TrimSpace(c.Telemetry.TraceExporter))

	keys := c.License.SeedKeys[:0]
	for _, k := range c.License.SeedKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	c.License.SeedKeys = keys
}

// Validate checks the configuration for values the service cannot run with
func (c *Config) Validate() error {
	var errs []error

	switch c.Variant {
	case VariantStatic, VariantRemote:
	default:
		errs = append(errs, fmt.Errorf("invalid variant %q: must be %q or %q", c.Variant, VariantStatic, VariantRemote))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port: %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, errors.New("server read timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, errors.New("server write timeout must be positive"))
	}
	if c.Server.MaxRequestBytes <= 0 {
		errs = append(errs, errors.New("server max request bytes must be positive"))
	}

	switch c.Logging.Output {
	case LogOutputConsole, LogOutputFile, LogOutputBoth:
	default:
		errs = append(errs, fmt.Errorf("invalid logging output %q", c.Logging.Output))
	}
	if c.Logging.Output != LogOutputConsole && c.Logging.FilePath == "" {
		errs = append(errs, errors.New("logging file path is required for file output"))
	}

	switch c.Telemetry.TraceExporter {
	case TraceExporterNone, TraceExporterStdout:
	default:
		errs = append(errs, fmt.Errorf("invalid trace exporter %q", c.Telemetry.TraceExporter))
	}

	if c.License.SeedValidityDays < 0 {
		errs = append(errs, errors.New("license seed validity days must not be negative"))
	}
	if c.License.ActivationValidityDays <= 0 {
		errs = append(errs, errors.New("license activation validity days must be positive"))
	}

	if c.Variant == VariantRemote {
		errs = append(errs, c.KeySource.validate()...)
	}

	return errors.Join(errs...)
}

func (k KeySourceConfig) validate() []error {
	var errs []error

	switch k.Type {
	case KeySourceHTTP:
		if k.URL == "" {
			errs = append(errs, errors.New("key source url is required for the remote variant"))
		} else if u, err := url.Parse(k.URL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Errorf("invalid key source url %q", k.URL))
		}
	case KeySourceSheets:
		if k.Sheets.SpreadsheetID == "" {
			errs = append(errs, errors.New("key source sheets spreadsheet id is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid key source type %q", k.Type))
	}

	if k.CacheInterval <= 0 {
		errs = append(errs, errors.New("key source cache interval must be positive"))
	}
	if k.MinRetryInterval < 0 {
		errs = append(errs, errors.New("key source min retry interval must not be negative"))
	}
	if k.FetchTimeout <= 0 {
		errs = append(errs, errors.New("key source fetch timeout must be positive"))
	}
	if k.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("key source max body bytes must be positive"))
	}
	return errs
}

// Address returns the listen address.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// InsecureURL reports whether the HTTP key source uses plain HTTP.
func (k KeySourceConfig) InsecureURL() bool {
	return k.Type == KeySourceHTTP && strings.HasPrefix(strings.ToLower(k.URL), "http://")
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Variant: VariantStatic,
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			IdleTimeout:     DefaultIdleTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
			RequestTimeout:  DefaultRequestTimeout,
			MaxHeaderBytes:  DefaultMaxHeaderBytes,
			MaxRequestBytes: DefaultMaxRequestBytes,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     LogOutputConsole,
			FilePath:   DefaultLogFile,
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
			Compress:   true,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    AppName,
			MetricsEnabled: true,
			TraceExporter:  TraceExporterNone,
		},
		License: LicenseConfig{
			SeedKeys:               append([]string(nil), DefaultSeedKeys...),
			SeedValidityDays:       DefaultValidityDays,
			ActivationValidityDays: DefaultValidityDays,
		},
		KeySource: KeySourceConfig{
			Type:             KeySourceHTTP,
			CacheInterval:    DefaultCacheInterval,
			MinRetryInterval: DefaultMinRetryInterval,
			FetchTimeout:     DefaultFetchTimeout,
			MaxBodyBytes:     DefaultMaxBodyBytes,
			WarmOnStart:      true,
			Sheets: SheetsConfig{
				Range: DefaultSheetsRange,
			},
		},
	}
}
