package engine

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/profiler"
	"github.com/Carmen-Shannon/oxy-trace/engine/window"
)

// Layer is one unit of per-frame GPU work driven by the render loop.
type Layer interface {
	// Render draws one frame at the current framebuffer size. Zero sizes are passed through so
	// the layer can decide how to skip.
	Render(deltaTime float32, width, height int) error

	// Resize is called on the render goroutine once per framebuffer size change. It is never
	// called with a zero dimension.
	Resize(width, height int)

	Active() bool
}

// SurfaceResizer reconfigures a presentation surface.
type SurfaceResizer interface {
	Resize(width, height int)
}

// engine implements the Engine interface.
// Coordinates engine, render, and window threads.
type engine struct {
	tickRateChannel chan time.Duration

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once

	window  window.Window
	surface SurfaceResizer

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool
	baseTitle        string

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	mu     sync.Mutex
	layers map[int]Layer

	resizePending atomic.Bool
	forceResize   atomic.Bool
	width, height int

	renderFrameLimit time.Duration
}

// Engine orchestrates the tick loop, the render loop and the window message pump.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// EnableProfiler enables frame statistics in the log and the window title.
	EnableProfiler()

	// DisableProfiler disables frame statistics.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after the layers each render frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddLayer registers a layer at the given z-index key.
	// Layers are rendered in ascending key order.
	//
	// Parameters:
	//   - key: the z-index determining render order (lower renders first)
	//   - l: the Layer to register
	AddLayer(key int, l Layer)

	// RemoveLayer removes the layer at the given z-index key.
	//
	// Parameters:
	//   - key: the z-index of the layer to remove
	RemoveLayer(key int)

	// Layer returns the layer at the given key, or nil.
	Layer(key int) Layer

	// Run starts the goroutines and pumps window messages on the calling goroutine until the
	// window closes or Quit is called, then waits for the goroutines to exit. Without a window
	// it blocks until Quit.
	Run()

	// Quit signals all engine goroutines to stop. Safe to call multiple times.
	Quit()

	// Wait blocks until the engine goroutines have exited.
	Wait()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
//
// Parameters:
//   - options: functional options for engine configuration (profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		layers:          make(map[int]Layer),
		profiler:        profiler.NewProfiler(time.Second),
		engineTickRate:  time.Second / 60,
		baseTitle:       "oxy-trace",
	}

	for _, opt := range options {
		opt(e)
	}

	// the first frame always applies the framebuffer size
	e.resizePending.Store(true)
	if e.window != nil {
		e.window.SetResizeCallback(func(width, height int) {
			e.resizePending.Store(true)
		})
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Run() {
	e.handle()
	if e.window != nil {
		e.window.ProcessMessages()
		e.signalQuit()
	}
	e.wg.Wait()
}

func (e *engine) Quit() {
	e.signalQuit()
	if e.window != nil {
		e.window.RequestClose()
	}
}

func (e *engine) Wait() {
	e.wg.Wait()
}

func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running.Store(false)
		close(e.quitChannel)
	})
}

func (e *engine) handle() {
	e.running.Store(true)
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate tick loop until the quit channel closes.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the render loop. A panic inside a frame is logged and shuts the engine down.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			common.Logger().Error("render goroutine recovered from panic", "panic", r)
			e.Quit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			e.renderFrame(dt)

			if e.renderFrameLimit > 0 {
				if remaining := e.renderFrameLimit - time.Since(now); remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// renderFrame applies a pending resize and then renders every active layer in z order.
func (e *engine) renderFrame(dt float32) {
	width, height := e.framebufferSize()
	layers := e.sortedLayers()

	// a minimized window keeps the resize pending until it has a size again
	if width > 0 && height > 0 && e.resizePending.Swap(false) {
		force := e.forceResize.Swap(false)
		if force || width != e.width || height != e.height {
			e.width, e.height = width, height
			if e.surface != nil {
				e.surface.Resize(width, height)
			}
			for _, l := range layers {
				l.Resize(width, height)
			}
			common.Logger().Debug("framebuffer resized", "width", width, "height", height)
		}
	}

	for _, l := range layers {
		if !l.Active() {
			continue
		}
		if err := l.Render(dt, width, height); err != nil {
			common.Logger().Warn("layer render failed", "err", err)
		}
	}

	if e.renderCallback != nil {
		e.renderCallback(dt)
	}

	if e.profilingEnabled.Load() && e.profiler != nil {
		if s, ok := e.profiler.Tick(); ok && e.window != nil {
			e.window.SetTitle(profileTitle(e.baseTitle, s))
		}
	}
}

func (e *engine) framebufferSize() (int, int) {
	if e.window == nil {
		return 0, 0
	}
	return e.window.Width(), e.window.Height()
}

func (e *engine) sortedLayers() []Layer {
	e.mu.Lock()
	defer e.mu.Unlock()
	keys := slices.Sorted(maps.Keys(e.layers))
	out := make([]Layer, 0, len(keys))
	for _, k := range keys {
		out = append(out, e.layers[k])
	}
	return out
}

func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect on the next tick.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	if !e.running.Load() {
		e.engineTickRate = newRate
		return
	}
	// replace any pending value
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameDuration(fps)
}

func (e *engine) AddLayer(key int, l Layer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.layers[key] = l
	// a new layer has not seen the current size yet
	e.forceResize.Store(true)
	e.resizePending.Store(true)
}

func (e *engine) RemoveLayer(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.layers, key)
}

func (e *engine) Layer(key int) Layer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.layers[key]
}

func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}

func profileTitle(base string, s profiler.Stats) string {
	return fmt.Sprintf("%s | %.0f fps | %.2f ms", base, s.FPS, float64(s.AvgFrame.Microseconds())/1000)
}
