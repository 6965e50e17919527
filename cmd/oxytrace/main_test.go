package main

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/engine/raytracer"
	"github.com/Carmen-Shannon/oxy-trace/internal/config"
)

type recordingCapturer struct {
	requests []string
}

func (c *recordingCapturer) Observe(raytracer.Frame) {}
func (c *recordingCapturer) Pending() int            { return len(c.requests) }
func (c *recordingCapturer) Wait() error             { return nil }
func (c *recordingCapturer) Close() error            { return nil }

func (c *recordingCapturer) Request(path string) {
	c.requests = append(c.requests, path)
}

func TestCaptureTrigger(t *testing.T) {
	tests := []struct {
		name   string
		cfg    config.Config
		want   int
		frames []uint64
	}{
		{"no path", config.Config{CaptureFrame: 3}, 0, []uint64{3}},
		{"matching frame", config.Config{CapturePath: "a.webp", CaptureFrame: 3}, 1, []uint64{3}},
		{"before frame", config.Config{CapturePath: "a.webp", CaptureFrame: 3}, 0, []uint64{1, 2}},
		{"zero means first", config.Config{CapturePath: "a.webp"}, 1, []uint64{1}},
		{"target frame skipped", config.Config{CapturePath: "a.webp", CaptureFrame: 3}, 1, []uint64{2, 4}},
		{"fires once", config.Config{CapturePath: "a.webp", CaptureFrame: 3}, 1, []uint64{3, 4, 5}},
		{"late start", config.Config{CapturePath: "a.webp", CaptureFrame: 3}, 1, []uint64{9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &recordingCapturer{}
			trigger := captureTrigger(tt.cfg, c)
			for _, f := range tt.frames {
				trigger.Observe(raytracer.Frame{Stats: raytracer.FrameStats{Frame: f}})
			}
			if len(c.requests) != tt.want {
				t.Fatalf("requests = %v, want %d", c.requests, tt.want)
			}
		})
	}
}

func TestLoadSkyGradientFallback(t *testing.T) {
	var cfg config.Config
	cfg.Resolve(config.Flags{})
	img, err := loadSky(cfg, 4096)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 512 || b.Dy() != 256 {
		t.Fatalf("gradient size = %v", b)
	}

	cfg.SkyPath = "does-not-exist.png"
	if _, err := loadSky(cfg, 4096); err == nil {
		t.Fatal("missing sky file loaded")
	}
}
