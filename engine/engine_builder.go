package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-trace/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables frame statistics.
//
// Parameters:
//   - enabled: if true, logs frame statistics and shows them in the window title
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled.Store(enabled)
	}
}

// WithTitle sets the title the profiler prefixes its statistics with.
func WithTitle(title string) EngineBuilderOption {
	return func(e *engine) {
		e.baseTitle = title
	}
}

// WithTickRate sets the engine tick rate in ticks per second.
// Values <= 0 are treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithWindow sets the window whose framebuffer size drives the layers.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithSurface sets the surface reconfigured on framebuffer resize, usually the Renderer.
//
// Parameters:
//   - s: the surface to resize
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSurface(s SurfaceResizer) EngineBuilderOption {
	return func(e *engine) {
		e.surface = s
	}
}

// WithLayer registers a layer at the given z-index key.
//
// Parameters:
//   - key: the z-index determining render order (lower renders first)
//   - l: the Layer to register
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLayer(key int, l Layer) EngineBuilderOption {
	return func(e *engine) {
		e.layers[key] = l
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit = frameDuration(fps)
	}
}
