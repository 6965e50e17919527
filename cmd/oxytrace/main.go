package main

import (
	"flag"
	"fmt"
	"image"
	"log/slog"
	"math"
	"os"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine"
	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/capture"
	"github.com/Carmen-Shannon/oxy-trace/engine/raytracer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-trace/engine/sky"
	"github.com/Carmen-Shannon/oxy-trace/engine/window"
	"github.com/Carmen-Shannon/oxy-trace/internal/config"
)

func main() {
	configFile := flag.String("config", "", "Path to config.json file")
	width := flag.Int("width", 0, "Window width in pixels (default: 1280)")
	height := flag.Int("height", 0, "Window height in pixels (default: 720)")
	skyPath := flag.String("sky", "", "Equirectangular sky image (png, jpg, tga, bmp, tiff, webp)")
	capturePath := flag.String("capture", "", "Write a frame to this .webp file")
	seed := flag.Uint64("seed", 0, "Noise seed (default: 1)")
	software := flag.Bool("software", false, "Force the software adapter")
	profile := flag.Bool("profile", false, "Log frame statistics")
	logLevel := flag.String("log", "", "Log level: debug, info, warn, error (default: info)")

	flag.Parse()

	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	cfg.Resolve(config.Flags{
		Width:       *width,
		Height:      *height,
		SkyPath:     *skyPath,
		CapturePath: *capturePath,
		Seed:        *seed,
		Software:    *software,
		Profile:     *profile,
		LogLevel:    *logLevel,
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	level, _ := cfg.Level()
	common.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	// ── Window + Renderer ───────────────────────────────────────────────
	win := window.NewWindow(
		window.WithTitle(cfg.Title),
		window.WithSize(cfg.Width, cfg.Height),
	)
	defer win.Close()

	presentMode := renderer.PresentModeUncapped
	if cfg.VSync {
		presentMode = renderer.PresentModeVSync
	}
	r := renderer.NewRenderer(
		renderer.BackendTypeWGPU,
		win,
		renderer.WithPresentMode(presentMode),
		renderer.WithForceSoftwareRenderer(cfg.Software),
	)
	defer r.Release()

	// ── Camera ──────────────────────────────────────────────────────────
	orbit := camera.NewOrbitController(
		camera.WithRadius(cfg.OrbitRadius),
		camera.WithTarget(0, 1, 0),
		camera.WithOrbitSpeed(cfg.OrbitSpeed),
	)
	cam := camera.NewCamera(
		camera.WithFov(cfg.FovDegrees*math.Pi/180),
		camera.WithController(orbit),
	)
	cam.SetViewport(win.Width(), win.Height())

	// ── Sky ─────────────────────────────────────────────────────────────
	skyImg, err := loadSky(cfg, int(r.MaxTextureDimension2D()))
	if err != nil {
		return err
	}
	skyTex, err := sky.Upload(r, skyImg)
	if err != nil {
		return err
	}
	defer skyTex.Release()

	// ── Capture ─────────────────────────────────────────────────────────
	var eng engine.Engine
	capturer := capture.NewCapturer(r,
		capture.WithWorkers(cfg.CaptureWorkers),
		capture.WithExposure(cfg.CaptureExposure),
		capture.WithResultCallback(func(capture.Result) {
			if cfg.ExitAfterCapture {
				eng.Quit()
			}
		}),
	)
	defer capturer.Close()

	// ── Raytracer ───────────────────────────────────────────────────────
	kernel := shader.NewShaderFromSource("oxy.raytrace", shader.ShaderTypeCompute, raytracer.KernelSource)
	rt, err := raytracer.NewRaytracer(r, kernel,
		raytracer.WithSeedSource(raytracer.NewRandomSeedSource(cfg.Seed)),
		raytracer.WithSky(skyTex),
		raytracer.WithKernelValidation(cfg.ValidateKernel),
		raytracer.WithFrameObserver(captureTrigger(cfg, capturer)),
		raytracer.WithFrameObserver(capturer),
	)
	if err != nil {
		return err
	}
	defer rt.Release()

	// ── Engine ──────────────────────────────────────────────────────────
	eng = engine.NewEngine(
		engine.WithWindow(win),
		engine.WithSurface(r),
		engine.WithTitle(cfg.Title),
		engine.WithProfiling(cfg.Profile),
		engine.WithTickRate(cfg.TickRate),
		engine.WithRenderFrameLimit(cfg.FrameLimit),
		engine.WithLayer(0, engine.NewRaytraceLayer(rt, cam)),
	)
	eng.SetTickCallback(func(dt float32) {
		orbit.Advance(dt)
		cam.Update()
	})

	common.Logger().Info("starting", "width", win.Width(), "height", win.Height(), "seed", cfg.Seed)
	eng.Run()

	return capturer.Close()
}

// captureTrigger requests one capture on the first presented frame numbered CaptureFrame or
// later. Skipped and dropped frames still advance the counter but never reach observers, so an
// exact match could miss. It must be registered before the capturer so the request lands on the
// same frame.
func captureTrigger(cfg config.Config, c capture.Capturer) raytracer.FrameObserver {
	var fired atomic.Bool
	// frames count from 1, capture_frame 0 means the first one
	first := uint64(max(cfg.CaptureFrame, 1))
	return raytracer.FrameObserverFunc(func(frame raytracer.Frame) {
		if cfg.CapturePath == "" || frame.Stats.Frame < first {
			return
		}
		if fired.CompareAndSwap(false, true) {
			c.Request(cfg.CapturePath)
		}
	})
}

func loadSky(cfg config.Config, maxDim int) (*image.NRGBA, error) {
	if cfg.SkyPath != "" {
		img, err := sky.Load(cfg.SkyPath, maxDim)
		if err != nil {
			return nil, fmt.Errorf("loading sky: %w", err)
		}
		return img, nil
	}
	horizon, _ := config.ParseColor(cfg.SkyHorizon)
	zenith, _ := config.ParseColor(cfg.SkyZenith)
	return sky.Gradient(512, 256, horizon, zenith), nil
}
