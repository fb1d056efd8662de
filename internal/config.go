package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Source  SourceConfig      `yaml:"source"`
	Output  OutputConfig      `yaml:"output"`
	State   StateConfig       `yaml:"state"`
	Catalog CatalogConfig     `yaml:"catalog"`
	Sync    SyncConfig        `yaml:"sync"`
	OCR     OCRConfig         `yaml:"ocr"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Source.Validate(); err != nil {
		return err
	}
	if err := c.Output.Validate(); err != nil {
		return err
	}
	if err := c.State.Validate(); err != nil {
		return err
	}
	if err := c.Catalog.Validate(); err != nil {
		return err
	}
	if err := c.Sync.Validate(); err != nil {
		return err
	}
	if err := c.OCR.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SourceConfig holds the path to the folder the device exports .note files to.
type SourceConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the source configuration.
func (c *SourceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// OutputConfig controls where and how imported artifacts are written.
type OutputConfig struct {
	Path             string  `yaml:"path"`
	Format           string  `yaml:"format"`       // png|svg|both
	Organization     string  `yaml:"organization"` // flat|book
	Overwrite        string  `yaml:"overwrite"`    // overwrite|skip|backup
	FilePrefix       string  `yaml:"file_prefix"`
	Background       string  `yaml:"background"`
	SVGWidth         int     `yaml:"svg_width"`
	Smoothness       float64 `yaml:"smoothness"`
	HistoryLimit     int     `yaml:"history_limit"`
	IncludeThumbnail bool    `yaml:"include_thumbnail"`
}

// Validate validates the output configuration.
func (c *OutputConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Format, validation.Required, validation.In("png", "svg", "both")),
		validation.Field(&c.Organization, validation.Required, validation.In("flat", "book")),
		validation.Field(&c.Overwrite, validation.Required, validation.In("overwrite", "skip", "backup")),
		validation.Field(&c.SVGWidth, validation.Min(64), validation.Max(8192)),
		validation.Field(&c.Smoothness, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.HistoryLimit, validation.Min(0)),
	)
}

// StateConfig holds the directory where manifests and watcher state live.
type StateConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the state configuration.
func (c *StateConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// CatalogConfig holds the SQLite catalog configuration.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the catalog configuration.
func (c *CatalogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SyncConfig controls the auto-sync scanner.
type SyncConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Interval     time.Duration `yaml:"interval"`
	ScanOnStart  bool          `yaml:"scan_on_start"`
	StartupDelay time.Duration `yaml:"startup_delay"`
	BatchSize    int           `yaml:"batch_size"`
}

// Validate validates the sync configuration.
func (c *SyncConfig) Validate() error {
	if c.Enabled && c.Interval < time.Second {
		return fmt.Errorf("sync: interval must be at least 1s, got %s", c.Interval)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.BatchSize, validation.Min(0)),
	)
}

// OCRConfig configures the external text-extraction collaborator.
type OCRConfig struct {
	Enabled             bool          `yaml:"enabled"`
	Command             string        `yaml:"command"`
	Languages           []string      `yaml:"languages"`
	ConfidenceThreshold float64       `yaml:"confidence_threshold"`
	Timeout             time.Duration `yaml:"timeout"`
}

// Validate validates the OCR configuration.
func (c *OCRConfig) Validate() error {
	if c.Enabled && c.Command == "" {
		return fmt.Errorf("ocr: enabled but no command configured")
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.ConfidenceThreshold, validation.Min(0.0), validation.Max(1.0)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Source: SourceConfig{
			Path: "./source",
		},
		Output: OutputConfig{
			Path:             "./vault",
			Format:           "both",
			Organization:     "book",
			Overwrite:        "overwrite",
			SVGWidth:         794,
			Smoothness:       0.6,
			HistoryLimit:     50,
			IncludeThumbnail: true,
		},
		State: StateConfig{
			Path: "./state",
		},
		Catalog: CatalogConfig{
			Path: "./viwoods.db",
		},
		Sync: SyncConfig{
			Enabled:      true,
			Interval:     5 * time.Minute,
			ScanOnStart:  true,
			StartupDelay: 3 * time.Second,
			BatchSize:    10,
		},
		OCR: OCRConfig{
			Languages:           []string{"en-US"},
			ConfidenceThreshold: 0.5,
			Timeout:             30 * time.Second,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
