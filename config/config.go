// Package config loads engine settings from defaults, an optional YAML file
// and PDFENGINE_ environment variables, and reloads them when the file
// changes.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/wudi/pdfengine/engine"
	"github.com/wudi/pdfengine/observability"
	"github.com/wudi/pdfengine/ocr"
	"github.com/wudi/pdfengine/render"
	"github.com/wudi/pdfengine/render/fitz"
	"github.com/wudi/pdfengine/security"
)

const EnvPrefix = "PDFENGINE"

type Config struct {
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Limits    LimitsConfig    `mapstructure:"limits" yaml:"limits"`
	Render    RenderConfig    `mapstructure:"render" yaml:"render"`
	OCR       OCRConfig       `mapstructure:"ocr" yaml:"ocr"`
	Scripting ScriptingConfig `mapstructure:"scripting" yaml:"scripting"`
	Watch     WatchConfig     `mapstructure:"watch" yaml:"watch"`
}

type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `mapstructure:"level" yaml:"level"`
	// Format is text or json.
	Format string `mapstructure:"format" yaml:"format"`
}

type LimitsConfig struct {
	MaxDocumentSize     int64         `mapstructure:"max_document_size" yaml:"max_document_size"`
	MaxOutlineDepth     int           `mapstructure:"max_outline_depth" yaml:"max_outline_depth"`
	MaxOutlineItems     int           `mapstructure:"max_outline_items" yaml:"max_outline_items"`
	MaxLinksPerPage     int           `mapstructure:"max_links_per_page" yaml:"max_links_per_page"`
	MaxCommentsPerPage  int           `mapstructure:"max_comments_per_page" yaml:"max_comments_per_page"`
	MaxImagesPerPage    int           `mapstructure:"max_images_per_page" yaml:"max_images_per_page"`
	MaxAutoLinksPerPage int           `mapstructure:"max_autolinks_per_page" yaml:"max_autolinks_per_page"`
	MaxXObjectDepth     int           `mapstructure:"max_xobject_depth" yaml:"max_xobject_depth"`
	MaxPasswordAttempts int           `mapstructure:"max_password_attempts" yaml:"max_password_attempts"`
	MaxLabelRanges      int           `mapstructure:"max_label_ranges" yaml:"max_label_ranges"`
	MaxLabelNumber      int           `mapstructure:"max_label_number" yaml:"max_label_number"`
	MaxScriptTime       time.Duration `mapstructure:"max_script_time" yaml:"max_script_time"`
}

type RenderConfig struct {
	// Backend is blank or fitz.
	Backend       string `mapstructure:"backend" yaml:"backend"`
	ThumbnailSize int    `mapstructure:"thumbnail_size" yaml:"thumbnail_size"`
}

type OCRConfig struct {
	Enabled   bool     `mapstructure:"enabled" yaml:"enabled"`
	Languages []string `mapstructure:"languages" yaml:"languages"`
	DPI       int      `mapstructure:"dpi" yaml:"dpi"`
}

type ScriptingConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type WatchConfig struct {
	Debounce      time.Duration `mapstructure:"debounce" yaml:"debounce"`
	RetryAttempts uint          `mapstructure:"retry_attempts" yaml:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
}

func DefaultConfig() *Config {
	l := security.DefaultLimits()
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Limits: LimitsConfig{
			MaxDocumentSize:     l.MaxDocumentSize,
			MaxOutlineDepth:     l.MaxOutlineDepth,
			MaxOutlineItems:     l.MaxOutlineItems,
			MaxLinksPerPage:     l.MaxLinksPerPage,
			MaxCommentsPerPage:  l.MaxCommentsPerPage,
			MaxImagesPerPage:    l.MaxImagesPerPage,
			MaxAutoLinksPerPage: l.MaxAutoLinksPerPage,
			MaxXObjectDepth:     l.MaxXObjectDepth,
			MaxPasswordAttempts: l.MaxPasswordAttempts,
			MaxLabelRanges:      l.MaxLabelRanges,
			MaxLabelNumber:      l.MaxLabelNumber,
			MaxScriptTime:       l.MaxScriptTime,
		},
		Render:    RenderConfig{Backend: "blank", ThumbnailSize: 256},
		OCR:       OCRConfig{Languages: []string{"eng"}, DPI: 300},
		Scripting: ScriptingConfig{Timeout: l.MaxScriptTime},
		Watch:     WatchConfig{Debounce: 250 * time.Millisecond, RetryAttempts: 5, RetryDelay: 200 * time.Millisecond},
	}
}

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	v *viper.Viper

	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager loads defaults, then cfgFile (or ./pdfengine.yaml and
// $HOME/.pdfengine/config.yaml when empty), then the environment.
func NewManager(cfgFile string) (*Manager, error) {
	m := &Manager{v: viper.New()}
	if err := m.initViper(cfgFile); err != nil {
		return nil, err
	}
	cfg, err := m.load()
	if err != nil {
		return nil, err
	}
	m.config = cfg
	return m, nil
}

func (m *Manager) initViper(cfgFile string) error {
	v := m.v
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("pdfengine")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.pdfengine")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("config: read %s: %w", cfgFile, err)
		}
	}
	return nil
}

// setDefaults registers every key so environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("limits.max_document_size", d.Limits.MaxDocumentSize)
	v.SetDefault("limits.max_outline_depth", d.Limits.MaxOutlineDepth)
	v.SetDefault("limits.max_outline_items", d.Limits.MaxOutlineItems)
	v.SetDefault("limits.max_links_per_page", d.Limits.MaxLinksPerPage)
	v.SetDefault("limits.max_comments_per_page", d.Limits.MaxCommentsPerPage)
	v.SetDefault("limits.max_images_per_page", d.Limits.MaxImagesPerPage)
	v.SetDefault("limits.max_autolinks_per_page", d.Limits.MaxAutoLinksPerPage)
	v.SetDefault("limits.max_xobject_depth", d.Limits.MaxXObjectDepth)
	v.SetDefault("limits.max_password_attempts", d.Limits.MaxPasswordAttempts)
	v.SetDefault("limits.max_label_ranges", d.Limits.MaxLabelRanges)
	v.SetDefault("limits.max_label_number", d.Limits.MaxLabelNumber)
	v.SetDefault("limits.max_script_time", d.Limits.MaxScriptTime)

	v.SetDefault("render.backend", d.Render.Backend)
	v.SetDefault("render.thumbnail_size", d.Render.ThumbnailSize)

	v.SetDefault("ocr.enabled", d.OCR.Enabled)
	v.SetDefault("ocr.languages", d.OCR.Languages)
	v.SetDefault("ocr.dpi", d.OCR.DPI)

	v.SetDefault("scripting.enabled", d.Scripting.Enabled)
	v.SetDefault("scripting.timeout", d.Scripting.Timeout)

	v.SetDefault("watch.debounce", d.Watch.Debounce)
	v.SetDefault("watch.retry_attempts", d.Watch.RetryAttempts)
	v.SetDefault("watch.retry_delay", d.Watch.RetryDelay)
}

func (m *Manager) load() (*Config, error) {
	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// ConfigFile is the file in use, empty when running on defaults.
func (m *Manager) ConfigFile() string { return m.v.ConfigFileUsed() }

// OnChange registers a callback for config changes.
func (m *Manager) OnChange(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// WatchConfig reloads the file when it changes. Invalid edits are logged
// and the previous configuration stays active.
func (m *Manager) WatchConfig(log observability.Logger) {
	if log == nil {
		log = observability.Default()
	}
	m.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := m.load()
		if err != nil {
			log.Warn("config reload rejected", observability.String("file", e.Name), observability.Error("error", err))
			return
		}
		m.mu.Lock()
		m.config = cfg
		callbacks := make([]func(*Config), len(m.callbacks))
		copy(callbacks, m.callbacks)
		m.mu.Unlock()

		log.Info("config reloaded", observability.String("file", e.Name))
		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	m.v.WatchConfig()
}

func (c *Config) Validate() error {
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format %q is not text or json", c.Log.Format)
	}
	switch c.Render.Backend {
	case "blank", "fitz":
	default:
		return fmt.Errorf("config: render.backend %q is not blank or fitz", c.Render.Backend)
	}
	if c.OCR.Enabled && c.OCR.DPI <= 0 {
		return fmt.Errorf("config: ocr.dpi must be positive, got %d", c.OCR.DPI)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: log.level: %w", err)
	}
	return l, nil
}

// NewLogger builds a logger writing to w in the configured format.
func (c *Config) NewLogger(w io.Writer) observability.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if c.Log.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return observability.NewSlogLogger(slog.New(h))
}

func (c *Config) SecurityLimits() security.Limits {
	l := c.Limits
	return security.Limits{
		MaxDocumentSize:     l.MaxDocumentSize,
		MaxOutlineDepth:     l.MaxOutlineDepth,
		MaxOutlineItems:     l.MaxOutlineItems,
		MaxLinksPerPage:     l.MaxLinksPerPage,
		MaxCommentsPerPage:  l.MaxCommentsPerPage,
		MaxImagesPerPage:    l.MaxImagesPerPage,
		MaxAutoLinksPerPage: l.MaxAutoLinksPerPage,
		MaxXObjectDepth:     l.MaxXObjectDepth,
		MaxPasswordAttempts: l.MaxPasswordAttempts,
		MaxLabelRanges:      l.MaxLabelRanges,
		MaxLabelNumber:      l.MaxLabelNumber,
		MaxScriptTime:       l.MaxScriptTime,
	}
}

// EngineOptions converts the configuration into engine options. OCR uses
// the default OCR engine, which is a no-op unless a backend registered
// itself.
func (c *Config) EngineOptions(log observability.Logger) ([]engine.Option, error) {
	opts := []engine.Option{
		engine.WithLimits(c.SecurityLimits()),
		engine.WithScripting(c.Scripting.Enabled, c.Scripting.Timeout),
	}
	if log != nil {
		opts = append(opts, engine.WithLogger(log))
	}
	switch c.Render.Backend {
	case "fitz":
		if !fitz.Available {
			return nil, fmt.Errorf("config: render.backend fitz: %w", fitz.ErrNotAvailable)
		}
		opts = append(opts, engine.WithRenderer(fitz.New))
	default:
		opts = append(opts, engine.WithRenderer(render.NewBlank))
	}
	if c.OCR.Enabled {
		opts = append(opts, engine.WithOCR(ocr.DefaultEngine(), float64(c.OCR.DPI)/72, c.OCR.Languages...))
	}
	return opts, nil
}

// WriteDefault writes the default configuration to path.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	header := []byte("# pdfengine configuration\n# Every key can be overridden with PDFENGINE_<SECTION>_<KEY>, e.g. PDFENGINE_LOG_LEVEL=debug\n\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}
