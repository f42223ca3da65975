package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wudi/pdfengine/render/fitz"
	"github.com/wudi/pdfengine/security"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestDefaultsMatchSecurityLimits(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.SecurityLimits() != security.DefaultLimits() {
		t.Fatalf("default limits drifted: %+v", cfg.SecurityLimits())
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestNewManagerFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pdfengine.yaml")
	writeFile(t, path, `
log:
  level: debug
limits:
  max_links_per_page: 5
ocr:
  enabled: true
  languages: [deu, fra]
scripting:
  enabled: true
  timeout: 2s
`)
	t.Setenv("PDFENGINE_WATCH_DEBOUNCE", "1s")
	t.Setenv("PDFENGINE_LOG_FORMAT", "json")

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	cfg := m.Get()
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Fatalf("log section %+v", cfg.Log)
	}
	if cfg.Limits.MaxLinksPerPage != 5 || cfg.Limits.MaxCommentsPerPage != security.DefaultLimits().MaxCommentsPerPage {
		t.Fatalf("limits %+v", cfg.Limits)
	}
	if !cfg.OCR.Enabled || strings.Join(cfg.OCR.Languages, ",") != "deu,fra" || cfg.OCR.DPI != 300 {
		t.Fatalf("ocr section %+v", cfg.OCR)
	}
	if !cfg.Scripting.Enabled || cfg.Scripting.Timeout != 2*time.Second {
		t.Fatalf("scripting section %+v", cfg.Scripting)
	}
	if cfg.Watch.Debounce != time.Second || cfg.Watch.RetryAttempts != 5 {
		t.Fatalf("watch section %+v", cfg.Watch)
	}
	if m.ConfigFile() != path {
		t.Fatalf("ConfigFile() = %q", m.ConfigFile())
	}

	opts, err := cfg.EngineOptions(nil)
	if err != nil {
		t.Fatalf("EngineOptions: %v", err)
	}
	if len(opts) != 4 {
		t.Fatalf("expected limits, scripting, renderer and OCR options, got %d", len(opts))
	}
}

func TestManagerRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"level.yaml":   "log:\n  level: loud\n",
		"format.yaml":  "log:\n  format: xml\n",
		"backend.yaml": "render:\n  backend: gpu\n",
		"dpi.yaml":     "ocr:\n  enabled: true\n  dpi: 0\n",
		"broken.yaml":  "log: [\n",
	}
	for name, content := range cases {
		path := filepath.Join(dir, name)
		writeFile(t, path, content)
		if _, err := NewManager(path); err == nil {
			t.Fatalf("%s accepted", name)
		}
	}
}

func TestFitzBackendWithoutTag(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Render.Backend = "fitz"
	_, err := cfg.EngineOptions(nil)
	if err == nil && !fitz.Available {
		t.Fatalf("fitz backend accepted without the fitz build")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"
	log := cfg.NewLogger(&buf)
	log.Info("hidden")
	log.Warn("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"msg":"shown"`) {
		t.Fatalf("log output %q", out)
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pdfengine.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "max_script_time: 250ms") {
		t.Fatalf("durations not written as strings:\n%s", data)
	}
	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	got, want := m.Get(), DefaultConfig()
	if got.Limits != want.Limits || got.Watch != want.Watch || got.Scripting != want.Scripting {
		t.Fatalf("round trip changed values: %+v", got)
	}
}

func TestWatchConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pdfengine.yaml")
	writeFile(t, path, "log:\n  level: info\n")
	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	changed := make(chan *Config, 4)
	m.OnChange(func(c *Config) { changed <- c })
	m.WatchConfig(nil)

	writeFile(t, path, "log:\n  level: error\n")
	select {
	case c := <-changed:
		if c.Log.Level != "error" || m.Get().Log.Level != "error" {
			t.Fatalf("reloaded level %q", c.Log.Level)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no reload after file change")
	}
}
