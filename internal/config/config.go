// Package config loads and validates clerkbot configuration via Viper.
package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	DB      DBConfig      `mapstructure:"db"`
	Wiki    WikiConfig    `mapstructure:"wiki"`
	Pages   []PageConfig  `mapstructure:"pages"`
}

// ServerConfig controls the status HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// DBConfig controls access to the run-history database. An empty DSN
// disables persistence.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// WikiConfig configures the MediaWiki API client.
type WikiConfig struct {
	APIURL         string  `mapstructure:"api_url"`
	UserAgent      string  `mapstructure:"user_agent"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	EditsPerMinute float64 `mapstructure:"edits_per_minute"`
	DryRun         bool    `mapstructure:"dry_run"`
}

// MarkerConfig describes one closing-marker template.
type MarkerConfig struct {
	Name       string   `mapstructure:"name"`
	OpenValues []string `mapstructure:"open_values"`
	BareClosed bool     `mapstructure:"bare_closed"`
}

// PageConfig is the per-page archiving task definition.
type PageConfig struct {
	Page string `mapstructure:"page"`
	// Mode is "rolling" (single flat archive with a capacity window) or
	// "grouped" (dated archives with top-level groups).
	Mode string `mapstructure:"mode"`

	SectionHeader string `mapstructure:"section_header"`
	GroupHeader   string `mapstructure:"group_header"`

	ClosingMarkers []MarkerConfig `mapstructure:"closing_markers"`

	Blockers            []string       `mapstructure:"blockers"`
	DelaySeconds        map[string]int `mapstructure:"delays"`
	DefaultDelaySeconds int            `mapstructure:"default_delay_seconds"`

	ArchivePage        string `mapstructure:"archive_page"`
	ArchivePreamble    string `mapstructure:"archive_preamble"`
	ArchiveMaxSections int    `mapstructure:"archive_max_sections"`

	// Annotators lists the pipeline stages to run over open sections, in
	// order. Recognized names: blocked-user-notice, no-filters-triggered,
	// page-name-repair, private-filter-notice.
	Annotators []string `mapstructure:"annotators"`
	// PageTitlePattern locates the reported page name inside a section
	// body (first capture group); used by the page-name annotators.
	PageTitlePattern string `mapstructure:"page_title_pattern"`

	EditSummary string `mapstructure:"edit_summary"`
}

// DefaultDelay returns the page's default delay as a duration.
func (p PageConfig) DefaultDelay() time.Duration {
	return time.Duration(p.DefaultDelaySeconds) * time.Second
}

// Delays converts the per-keyword delay table into durations.
func (p PageConfig) Delays() map[string]time.Duration {
	out := make(map[string]time.Duration, len(p.DelaySeconds))
	for keyword, seconds := range p.DelaySeconds {
		out[keyword] = time.Duration(seconds) * time.Second
	}
	return out
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CLERKBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("db.table", "runs")
	v.SetDefault("wiki.user_agent", "clerkbot/0.1")
	v.SetDefault("wiki.timeout_seconds", 15)
	v.SetDefault("wiki.edits_per_minute", 6)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Wiki.TimeoutSeconds <= 0 {
		return fmt.Errorf("wiki.timeout_seconds must be > 0")
	}
	for i, page := range c.Pages {
		if err := page.Validate(); err != nil {
			return fmt.Errorf("pages[%d]: %w", i, err)
		}
	}
	return nil
}

// Validate checks one page task definition.
func (p PageConfig) Validate() error {
	if p.Page == "" {
		return fmt.Errorf("page is required")
	}
	if p.Mode != "rolling" && p.Mode != "grouped" {
		return fmt.Errorf("mode must be rolling or grouped, got %q", p.Mode)
	}
	if p.SectionHeader == "" {
		return fmt.Errorf("section_header is required")
	}
	if _, err := regexp.Compile(p.SectionHeader); err != nil {
		return fmt.Errorf("section_header: %w", err)
	}
	if p.GroupHeader != "" {
		if _, err := regexp.Compile(p.GroupHeader); err != nil {
			return fmt.Errorf("group_header: %w", err)
		}
	}
	if p.PageTitlePattern != "" {
		if _, err := regexp.Compile(p.PageTitlePattern); err != nil {
			return fmt.Errorf("page_title_pattern: %w", err)
		}
	}
	if p.ArchivePage == "" {
		return fmt.Errorf("archive_page is required")
	}
	if p.Mode == "rolling" && p.ArchiveMaxSections < 0 {
		return fmt.Errorf("archive_max_sections must be >= 0")
	}
	if p.DefaultDelaySeconds <= 0 {
		return fmt.Errorf("default_delay_seconds must be > 0")
	}
	return nil
}
