package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quicknote/internal/parser"
	"github.com/starford/quicknote/internal/settings"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Settings SettingsConfig    `yaml:"settings"`
	Notes    NotesConfig       `yaml:"notes"`
	Watch    WatchConfig       `yaml:"watch"`
	Auth     AuthConfig        `yaml:"auth"`
	SSE      SSEConfig         `yaml:"sse"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Settings.Validate(); err != nil {
		return err
	}
	if err := c.Notes.Validate(); err != nil {
		return err
	}
	if err := c.Watch.Validate(); err != nil {
		return err
	}
	if err := c.SSE.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
	// LogFile receives logs in TUI mode, where stdout belongs to the terminal.
	LogFile string `yaml:"log_file"`
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

// SettingsConfig selects where the notes file path is remembered.
//
// Path is the settings file for the "file" backend (empty means
// ~/.quicknote_config.json) and the database file for "sqlite".
type SettingsConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// Validate validates the settings configuration.
func (c *SettingsConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = settings.BackendFile
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required,
			validation.In(settings.BackendFile, settings.BackendSQLite, settings.BackendMemory)),
		validation.Field(&c.Path, validation.When(c.Backend == settings.BackendSQLite, validation.Required)),
	)
}

// NotesConfig controls how the notes file is parsed and searched.
type NotesConfig struct {
	// TimestampLayouts are tried in order against every bracket-stripped
	// line. Empty means parser.DefaultLayouts.
	TimestampLayouts []string `yaml:"timestamp_layouts"`
	// SearchLayouts are the timestamp renderings a query can match. Empty
	// means query.DefaultLayouts.
	SearchLayouts []string `yaml:"search_layouts"`
	// Location is the IANA zone timestamps are read in. Empty means local.
	Location string `yaml:"location"`
	// Separator is the delimiter row between records. Empty keeps every
	// line as content.
	Separator   string `yaml:"separator"`
	NewestFirst bool   `yaml:"newest_first"`
}

// Validate validates the notes configuration.
func (c *NotesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TimestampLayouts, validation.Each(validation.Required)),
		validation.Field(&c.SearchLayouts, validation.Each(validation.Required)),
		validation.Field(&c.Location, validation.By(func(any) error {
			_, err := c.TimeLocation()
			return err
		})),
	)
}

// TimeLocation resolves Location.
func (c *NotesConfig) TimeLocation() (*time.Location, error) {
	if c.Location == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q", c.Location)
	}
	return loc, nil
}

// WatchConfig controls automatic reloads when the notes file changes.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.When(c.Enabled, validation.Required, validation.Min(time.Millisecond))),
	)
}

// SSEConfig holds server-sent events configuration.
type SSEConfig struct {
	// Throttle is the minimum gap between two notes.reloaded events.
	Throttle time.Duration `yaml:"throttle"`
}

// Validate validates the SSE configuration.
func (c *SSEConfig) Validate() error {
	if c.Throttle < 0 {
		return errors.New("sse: throttle must not be negative")
	}
	return nil
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
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
			LogFile: "quicknote.log",
		},
		Settings: SettingsConfig{
			Backend: settings.BackendFile,
		},
		Notes: NotesConfig{
			Separator: parser.DefaultSeparator,
		},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: 300 * time.Millisecond,
		},
		SSE: SSEConfig{
			Throttle: time.Second,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
