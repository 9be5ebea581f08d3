package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendBolt = "bolt"
	BackendREST = "rest"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Store    StoreConfig    `mapstructure:"store"`
	Remote   RemoteConfig   `mapstructure:"remote"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Log      LogConfig      `mapstructure:"log"`
	UI       UIConfig       `mapstructure:"ui"`
	Opener   OpenerConfig   `mapstructure:"opener"`
	Keys     KeyConfig      `mapstructure:"keys"`
}

type DatabaseConfig struct {
	Path    string        `mapstructure:"path"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StoreConfig selects where records are read from.
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	Table   string `mapstructure:"table"`
}

type RemoteConfig struct {
	URL          string        `mapstructure:"url"`
	APIKey       string        `mapstructure:"api_key"`
	UserAgent    string        `mapstructure:"user_agent"`
	RetryMax     int           `mapstructure:"retry_max"`
	RetryWaitMin time.Duration `mapstructure:"retry_wait_min"`
	RetryWaitMax time.Duration `mapstructure:"retry_wait_max"`
	AllowHTTP    bool          `mapstructure:"allow_http"`
}

// FetchConfig bounds a single page load.
type FetchConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	TickInterval time.Duration `mapstructure:"tick_interval"`
	PageSize     int           `mapstructure:"page_size"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type UIConfig struct {
	Colors  UIColors      `mapstructure:"colors"`
	Content ContentConfig `mapstructure:"content"`
}

type UIColors struct {
	Primary    string `mapstructure:"primary"`
	Secondary  string `mapstructure:"secondary"`
	Accent     string `mapstructure:"accent"`
	Background string `mapstructure:"background"`
	Surface    string `mapstructure:"surface"`
	Text       string `mapstructure:"text"`
	Muted      string `mapstructure:"muted"`
	Error      string `mapstructure:"error"`
	Success    string `mapstructure:"success"`
}

type ContentConfig struct {
	SidebarWidth     int  `mapstructure:"sidebar_width"`
	WordWrapMaxWidth int  `mapstructure:"word_wrap_max_width"`
	WordWrapMinWidth int  `mapstructure:"word_wrap_min_width"`
	Highlight        bool `mapstructure:"highlight"`
}

// OpenerConfig lists candidate programs per content kind; the first one
// found on PATH wins.
type OpenerConfig struct {
	HTML          []string `mapstructure:"html"`
	Markdown      []string `mapstructure:"markdown"`
	Text          []string `mapstructure:"text"`
	DefaultOpener string   `mapstructure:"default_opener"`
}

type KeyConfig struct {
	Modifier string      `mapstructure:"modifier"`
	Bindings KeyBindings `mapstructure:"bindings"`
}

type KeyBindings struct {
	Quit     string `mapstructure:"quit"`
	NextPage string `mapstructure:"next_page"`
	PrevPage string `mapstructure:"prev_page"`
	Reload   string `mapstructure:"reload"`
	Open     string `mapstructure:"open"`
	Upload   string `mapstructure:"upload"`
	Focus    string `mapstructure:"focus"`
	Back     string `mapstructure:"back"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dbPath := filepath.Join(homeDir, ".fbrowse.db")

	return &Config{
		Database: DatabaseConfig{
			Path:    dbPath,
			Timeout: 1 * time.Second,
		},
		Store: StoreConfig{
			Backend: BackendBolt,
			Table:   "html_files",
		},
		Remote: RemoteConfig{
			UserAgent:    "fbrowse/1.0 (https://github.com/pders01/fbrowse)",
			RetryMax:     2,
			RetryWaitMin: 500 * time.Millisecond,
			RetryWaitMax: 5 * time.Second,
		},
		Fetch: FetchConfig{
			Timeout:      60 * time.Second,
			TickInterval: 1 * time.Second,
			PageSize:     5,
		},
		Log: LogConfig{
			Level: "off",
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:    "#FF6B6B",
				Secondary:  "#4ECDC4",
				Accent:     "#95E1D3",
				Background: "#1A1A2E",
				Surface:    "#16213E",
				Text:       "#EAEAEA",
				Muted:      "#94A3B8",
				Error:      "#F87171",
				Success:    "#4ADE80",
			},
			Content: ContentConfig{
				SidebarWidth:     32,
				WordWrapMaxWidth: 120,
				WordWrapMinWidth: 40,
				Highlight:        true,
			},
		},
		Opener: OpenerConfig{
			HTML:          []string{"firefox", "chromium", "google-chrome"},
			Markdown:      []string{"glow"},
			Text:          []string{},
			DefaultOpener: getDefaultOpener(),
		},
		Keys: KeyConfig{
			Modifier: "ctrl",
			Bindings: KeyBindings{
				Quit:     "q",
				NextPage: "right",
				PrevPage: "left",
				Reload:   "r",
				Open:     "o",
				Upload:   "u",
				Focus:    "tab",
				Back:     "esc",
			},
		},
	}
}

func getDefaultOpener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "linux":
		return "xdg-open"
	case "windows":
		return "start"
	default:
		return "open"
	}
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v, defaultConfig())

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		homeDir, _ := os.UserHomeDir()
		configDir := filepath.Join(homeDir, ".config", "fbrowse")

		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("FBROWSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand paths after loading
	expandPaths(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults registers every leaf key so that partial config files and
// FBROWSE_* variables merge with the defaults instead of replacing whole
// sections.
func setDefaults(v *viper.Viper, cfg *Config) {
	defaults := map[string]any{
		"database.path":    cfg.Database.Path,
		"database.timeout": cfg.Database.Timeout,

		"store.backend": cfg.Store.Backend,
		"store.table":   cfg.Store.Table,

		"remote.url":            cfg.Remote.URL,
		"remote.api_key":        cfg.Remote.APIKey,
		"remote.user_agent":     cfg.Remote.UserAgent,
		"remote.retry_max":      cfg.Remote.RetryMax,
		"remote.retry_wait_min": cfg.Remote.RetryWaitMin,
		"remote.retry_wait_max": cfg.Remote.RetryWaitMax,
		"remote.allow_http":     cfg.Remote.AllowHTTP,

		"fetch.timeout":       cfg.Fetch.Timeout,
		"fetch.tick_interval": cfg.Fetch.TickInterval,
		"fetch.page_size":     cfg.Fetch.PageSize,

		"log.level": cfg.Log.Level,
		"log.file":  cfg.Log.File,

		"ui.colors.primary":    cfg.UI.Colors.Primary,
		"ui.colors.secondary":  cfg.UI.Colors.Secondary,
		"ui.colors.accent":     cfg.UI.Colors.Accent,
		"ui.colors.background": cfg.UI.Colors.Background,
		"ui.colors.surface":    cfg.UI.Colors.Surface,
		"ui.colors.text":       cfg.UI.Colors.Text,
		"ui.colors.muted":      cfg.UI.Colors.Muted,
		"ui.colors.error":      cfg.UI.Colors.Error,
		"ui.colors.success":    cfg.UI.Colors.Success,

		"ui.content.sidebar_width":       cfg.UI.Content.SidebarWidth,
		"ui.content.word_wrap_max_width": cfg.UI.Content.WordWrapMaxWidth,
		"ui.content.word_wrap_min_width": cfg.UI.Content.WordWrapMinWidth,
		"ui.content.highlight":           cfg.UI.Content.Highlight,

		"opener.html":           cfg.Opener.HTML,
		"opener.markdown":       cfg.Opener.Markdown,
		"opener.text":           cfg.Opener.Text,
		"opener.default_opener": cfg.Opener.DefaultOpener,

		"keys.modifier":           cfg.Keys.Modifier,
		"keys.bindings.quit":      cfg.Keys.Bindings.Quit,
		"keys.bindings.next_page": cfg.Keys.Bindings.NextPage,
		"keys.bindings.prev_page": cfg.Keys.Bindings.PrevPage,
		"keys.bindings.reload":    cfg.Keys.Bindings.Reload,
		"keys.bindings.open":      cfg.Keys.Bindings.Open,
		"keys.bindings.upload":    cfg.Keys.Bindings.Upload,
		"keys.bindings.focus":     cfg.Keys.Bindings.Focus,
		"keys.bindings.back":      cfg.Keys.Bindings.Back,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// Validate rejects settings the fetch controller cannot work with.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendBolt, BackendREST:
	default:
		return fmt.Errorf("unknown store backend %q (want %q or %q)", c.Store.Backend, BackendBolt, BackendREST)
	}
	if c.Store.Backend == BackendREST && c.Remote.URL == "" {
		return fmt.Errorf("remote.url is required for the %q backend", BackendREST)
	}
	if c.Store.Table == "" {
		return fmt.Errorf("store.table cannot be empty")
	}
	if c.Fetch.PageSize <= 0 {
		return fmt.Errorf("fetch.page_size must be positive, got %d", c.Fetch.PageSize)
	}
	if c.Fetch.TickInterval <= 0 {
		return fmt.Errorf("fetch.tick_interval must be positive")
	}
	if c.Fetch.Timeout < c.Fetch.TickInterval {
		return fmt.Errorf("fetch.timeout (%s) must be at least fetch.tick_interval (%s)", c.Fetch.Timeout, c.Fetch.TickInterval)
	}
	return nil
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}

	// Expand tilde
	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func expandPaths(cfg *Config) {
	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.Log.File = expandPath(cfg.Log.File)
}

func Save(config *Config, path string) error {
	v := viper.New()

	// Durations are written as strings for TOML readability, and every
	// section is a map so keys keep their snake_case names.
	dbCfg := map[string]interface{}{
		"path":    config.Database.Path,
		"timeout": config.Database.Timeout.String(),
	}

	storeCfg := map[string]interface{}{
		"backend": config.Store.Backend,
		"table":   config.Store.Table,
	}

	remoteCfg := map[string]interface{}{
		"url":            config.Remote.URL,
		"api_key":        config.Remote.APIKey,
		"user_agent":     config.Remote.UserAgent,
		"retry_max":      config.Remote.RetryMax,
		"retry_wait_min": config.Remote.RetryWaitMin.String(),
		"retry_wait_max": config.Remote.RetryWaitMax.String(),
		"allow_http":     config.Remote.AllowHTTP,
	}

	fetchCfg := map[string]interface{}{
		"timeout":       config.Fetch.Timeout.String(),
		"tick_interval": config.Fetch.TickInterval.String(),
		"page_size":     config.Fetch.PageSize,
	}

	logCfg := map[string]interface{}{
		"level": config.Log.Level,
		"file":  config.Log.File,
	}

	c := config.UI.Colors
	uiCfg := map[string]interface{}{
		"colors": map[string]interface{}{
			"primary":    c.Primary,
			"secondary":  c.Secondary,
			"accent":     c.Accent,
			"background": c.Background,
			"surface":    c.Surface,
			"text":       c.Text,
			"muted":      c.Muted,
			"error":      c.Error,
			"success":    c.Success,
		},
		"content": map[string]interface{}{
			"sidebar_width":       config.UI.Content.SidebarWidth,
			"word_wrap_max_width": config.UI.Content.WordWrapMaxWidth,
			"word_wrap_min_width": config.UI.Content.WordWrapMinWidth,
			"highlight":           config.UI.Content.Highlight,
		},
	}

	openerCfg := map[string]interface{}{
		"html":           config.Opener.HTML,
		"markdown":       config.Opener.Markdown,
		"text":           config.Opener.Text,
		"default_opener": config.Opener.DefaultOpener,
	}

	b := config.Keys.Bindings
	keysCfg := map[string]interface{}{
		"modifier": config.Keys.Modifier,
		"bindings": map[string]interface{}{
			"quit":      b.Quit,
			"next_page": b.NextPage,
			"prev_page": b.PrevPage,
			"reload":    b.Reload,
			"open":      b.Open,
			"upload":    b.Upload,
			"focus":     b.Focus,
			"back":      b.Back,
		},
	}

	v.Set("database", dbCfg)
	v.Set("store", storeCfg)
	v.Set("remote", remoteCfg)
	v.Set("fetch", fetchCfg)
	v.Set("log", logCfg)
	v.Set("ui", uiCfg)
	v.Set("opener", openerCfg)
	v.Set("keys", keysCfg)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
