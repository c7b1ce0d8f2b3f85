package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/wikifeed/internal/feed"
	"github.com/starford/wikifeed/internal/gitsync"
	"github.com/starford/wikifeed/internal/models"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Wiki    WikiConfig        `yaml:"wiki"`
	Repo    RepoConfig        `yaml:"repo"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Roadmap []models.Phase    `yaml:"roadmap"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Wiki.Validate(); err != nil {
		return err
	}
	if c.Repo.Path == "" {
		c.Repo.Path = c.Wiki.Path
	}
	if err := c.Repo.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	for i := range c.Roadmap {
		if err := validatePhase(&c.Roadmap[i]); err != nil {
			return fmt.Errorf("roadmap[%d]: %w", i, err)
		}
	}
	return nil
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

// WikiConfig describes the directory of Markdown pages.
//
// With CheckModTime set, a cached card is rebuilt when its file is newer
// than the card. Watch does the same eagerly through fsnotify.
type WikiConfig struct {
	Path             string `yaml:"path"`
	SummaryMaxLength int    `yaml:"summary_max_length"`
	Watch            bool   `yaml:"watch"`
	CheckModTime     bool   `yaml:"check_mtime"`
	DefaultAuthor    string `yaml:"default_author"`
}

// Validate validates the wiki configuration.
func (c *WikiConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.SummaryMaxLength, validation.Required, validation.Min(10)),
	)
}

// RepoConfig controls the git working copy the wiki is pulled into.
// An empty Path falls back to the wiki path.
type RepoConfig struct {
	Path             string        `yaml:"path"`
	GitBinary        string        `yaml:"git_binary"`
	CommandTimeout   time.Duration `yaml:"command_timeout"`
	HistoryLimit     int           `yaml:"history_limit"`
	AutoSyncInterval time.Duration `yaml:"auto_sync_interval"`
}

// Validate validates the repository configuration.
func (c *RepoConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.GitBinary, validation.Required),
		validation.Field(&c.CommandTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.HistoryLimit, validation.Required, validation.Min(1)),
		validation.Field(&c.AutoSyncInterval, validation.Min(time.Duration(0))),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
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

func validatePhase(p *models.Phase) error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Phase, validation.Required),
		validation.Field(&p.Status, validation.Required),
		validation.Field(&p.Progress, validation.Min(0), validation.Max(100)),
	)
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
		Wiki: WikiConfig{
			Path:             "./wiki",
			SummaryMaxLength: 150,
			CheckModTime:     true,
			DefaultAuthor:    feed.DefaultAuthor,
		},
		Repo: RepoConfig{
			GitBinary:      "git",
			CommandTimeout: 60 * time.Second,
			HistoryLimit:   gitsync.DefaultHistoryLimit,
		},
		SQLite: SQLiteConfig{
			Path: "./wikifeed.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Roadmap: feed.DefaultRoadmap(),
	}
}
