package config

import (
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAndResolve(t *testing.T) {
	path := writeConfig(t, `{"width": 800, "height": 600, "sky_path": "sky.png", "capture_frame": 10}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Resolve(Flags{Height: 1080, Profile: true})

	if cfg.Width != 800 || cfg.Height != 1080 {
		t.Fatalf("size = %dx%d, want 800x1080", cfg.Width, cfg.Height)
	}
	if cfg.SkyPath != "sky.png" || cfg.CaptureFrame != 10 || !cfg.Profile {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Title != "oxy-trace" || cfg.TickRate != 60 || cfg.Seed != 1 || cfg.LogLevel != "info" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.CaptureWorkers <= 0 || cfg.CaptureExposure != 1 {
		t.Fatalf("capture defaults = %d workers, exposure %v", cfg.CaptureWorkers, cfg.CaptureExposure)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file loaded")
	}
	if _, err := Load(writeConfig(t, `{"width": "wide"}`)); err == nil {
		t.Error("bad json loaded")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"fov too wide", func(c *Config) { c.FovDegrees = 180 }, false},
		{"negative frame limit", func(c *Config) { c.FrameLimit = -1 }, false},
		{"negative capture frame", func(c *Config) { c.CaptureFrame = -3 }, false},
		{"exit without capture", func(c *Config) { c.ExitAfterCapture = true }, false},
		{"exit with capture", func(c *Config) {
			c.ExitAfterCapture = true
			c.CapturePath = "out.webp"
		}, true},
		{"bad horizon", func(c *Config) { c.SkyHorizon = "blue" }, false},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			cfg.Resolve(Flags{})
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err == nil) != tt.ok {
				t.Fatalf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestLevel(t *testing.T) {
	cfg := Config{LogLevel: "debug"}
	l, err := cfg.Level()
	if err != nil || l != slog.LevelDebug {
		t.Fatalf("Level() = %v, %v", l, err)
	}
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#3a6ea5")
	if err != nil {
		t.Fatal(err)
	}
	if want := (color.NRGBA{R: 0x3a, G: 0x6e, B: 0xa5, A: 255}); c != want {
		t.Fatalf("ParseColor = %v, want %v", c, want)
	}
	for _, bad := range []string{"", "#fff", "#gggggg", "3a6ea5ff"} {
		if _, err := ParseColor(bad); err == nil {
			t.Errorf("ParseColor(%q) succeeded", bad)
		}
	}
}
