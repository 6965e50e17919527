package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Config holds the window, render and capture settings of the oxytrace binary.
type Config struct {
	// Window
	Title  string `json:"title"`
	Width  int    `json:"width"`
	Height int    `json:"height"`

	// Render settings
	VSync          bool    `json:"vsync"`
	Software       bool    `json:"software"`
	FrameLimit     float64 `json:"frame_limit"`
	TickRate       float64 `json:"tick_rate"`
	Seed           uint64  `json:"seed"`
	ValidateKernel bool    `json:"validate_kernel"`
	Profile        bool    `json:"profile"`
	LogLevel       string  `json:"log_level"`

	// Camera
	FovDegrees  float32 `json:"fov_degrees"`
	OrbitRadius float32 `json:"orbit_radius"`
	OrbitSpeed  float32 `json:"orbit_speed"`

	// Sky
	SkyPath    string `json:"sky_path"`
	SkyHorizon string `json:"sky_horizon"`
	SkyZenith  string `json:"sky_zenith"`

	// Capture
	CapturePath      string  `json:"capture_path"`
	CaptureFrame     int     `json:"capture_frame"`
	CaptureExposure  float32 `json:"capture_exposure"`
	CaptureWorkers   int     `json:"capture_workers"`
	ExitAfterCapture bool    `json:"exit_after_capture"`
}

// Flags holds CLI flag values that override config file settings. Zero values leave the file
// setting alone.
type Flags struct {
	Width       int
	Height      int
	SkyPath     string
	CapturePath string
	Seed        uint64
	Software    bool
	Profile     bool
	LogLevel    string
}

// Load reads a JSON config file. Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Resolve applies flag overrides and then fills empty fields with defaults.
func (c *Config) Resolve(flags Flags) {
	if flags.Width > 0 {
		c.Width = flags.Width
	}
	if flags.Height > 0 {
		c.Height = flags.Height
	}
	if flags.SkyPath != "" {
		c.SkyPath = flags.SkyPath
	}
	if flags.CapturePath != "" {
		c.CapturePath = flags.CapturePath
	}
	if flags.Seed != 0 {
		c.Seed = flags.Seed
	}
	if flags.LogLevel != "" {
		c.LogLevel = flags.LogLevel
	}
	c.Software = c.Software || flags.Software
	c.Profile = c.Profile || flags.Profile

	if c.Title == "" {
		c.Title = "oxy-trace"
	}
	if c.Width <= 0 {
		c.Width = 1280
	}
	if c.Height <= 0 {
		c.Height = 720
	}
	if c.TickRate <= 0 {
		c.TickRate = 60
	}
	if c.Seed == 0 {
		c.Seed = 1
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.FovDegrees <= 0 {
		c.FovDegrees = 60
	}
	if c.OrbitRadius <= 0 {
		c.OrbitRadius = 6
	}
	if c.OrbitSpeed == 0 {
		c.OrbitSpeed = 0.25
	}
	if c.SkyHorizon == "" {
		c.SkyHorizon = "#d8e4f0"
	}
	if c.SkyZenith == "" {
		c.SkyZenith = "#3a6ea5"
	}
	if c.CaptureExposure <= 0 {
		c.CaptureExposure = 1
	}
	if c.CaptureWorkers <= 0 {
		c.CaptureWorkers = min(runtime.NumCPU(), 4)
	}
}

// Validate reports every setting that Resolve could not make usable.
func (c Config) Validate() error {
	var errs []error
	if c.FovDegrees >= 180 {
		errs = append(errs, fmt.Errorf("fov_degrees %v must be below 180", c.FovDegrees))
	}
	if c.FrameLimit < 0 {
		errs = append(errs, fmt.Errorf("frame_limit %v must not be negative", c.FrameLimit))
	}
	if c.CaptureFrame < 0 {
		errs = append(errs, fmt.Errorf("capture_frame %d must not be negative", c.CaptureFrame))
	}
	if c.ExitAfterCapture && c.CapturePath == "" {
		errs = append(errs, errors.New("exit_after_capture needs capture_path"))
	}
	if _, err := ParseColor(c.SkyHorizon); err != nil {
		errs = append(errs, fmt.Errorf("sky_horizon: %w", err))
	}
	if _, err := ParseColor(c.SkyZenith); err != nil {
		errs = append(errs, fmt.Errorf("sky_zenith: %w", err))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Level returns LogLevel as a slog level.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return l, nil
}

// ParseColor parses a "#rrggbb" hex colour. The alpha is always opaque.
func ParseColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return color.NRGBA{}, fmt.Errorf("colour %q is not #rrggbb", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("colour %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}
