package raytracer

import (
	_ "embed"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
)

// KernelSource is the reference raytracing kernel. It declares every binding in
// RequiredBindings and an 8x8x1 thread group.
//
//go:embed assets/raytrace.wgsl
var KernelSource string

// Viewport is the output size in pixels, read each frame from the display surface.
type Viewport struct {
	Width  int
	Height int
}

// FrameStats describes one Render call.
type FrameStats struct {
	// Frame counts Render calls, starting at 1.
	Frame uint64

	Width  int
	Height int

	// Groups is the dispatched thread-group grid, zero when skipped.
	Groups [3]uint32

	// Allocated is true when the render target was (re)allocated this frame.
	Allocated bool

	// Skipped is true when the viewport was degenerate and no GPU work was issued.
	Skipped bool

	Duration time.Duration
}

// Frame is handed to FrameObservers after a frame was presented.
type Frame struct {
	Stats  FrameStats
	Target renderer.RenderTarget
}

// FrameObserver is notified after each presented frame, on the render goroutine.
type FrameObserver interface {
	Observe(frame Frame)
}

// FrameObserverFunc adapts a function to FrameObserver.
type FrameObserverFunc func(frame Frame)

// Observe calls f(frame).
func (f FrameObserverFunc) Observe(frame Frame) {
	f(frame)
}

// Raytracer runs a raytracing compute kernel once per frame. Each Render binds the camera
// matrices, a fresh seed and the sky into the kernel, resizes the render target to the
// viewport, dispatches the kernel over the target and blits the target to the screen.
type Raytracer interface {
	// Render draws one frame. A viewport with a zero or negative dimension skips all GPU work.
	//
	// Parameters:
	//   - cam: the camera supplying the matrices
	//   - viewport: the display surface size in pixels
	//
	// Returns:
	//   - FrameStats: what the frame did
	//   - error: the failing step's error; the frame is dropped and the next Render starts fresh
	Render(cam CameraSource, viewport Viewport) (FrameStats, error)

	// SetSky replaces the sky texture from the next frame on. The caller keeps ownership.
	SetSky(sky renderer.Texture)

	// Target returns the current render target, or nil before the first frame.
	Target() renderer.RenderTarget

	// ThreadGroupSize returns the dispatch thread-group edge.
	ThreadGroupSize() uint32

	// Release releases the render target and kernel resources. The sky passed in by the caller
	// is not released.
	Release()
}

type raytracerImpl struct {
	mu *sync.Mutex

	binder    *ParameterBinder
	params    *kernelParameters
	targets   TargetManager
	presenter Presenter

	sky         renderer.Texture
	fallbackSky renderer.Texture

	observers []FrameObserver
	frame     uint64

	// options
	groupSize uint32
	seeds     SeedSource
	validate  bool
}

var _ Raytracer = &raytracerImpl{}

// NewRaytracer checks kernel against the binding contract, registers its compute pipeline on r
// and returns a Raytracer drawing with it.
//
// Parameters:
//   - r: the renderer hosting the kernel and the display surface
//   - kernel: a compute shader, for instance NewShaderFromSource over KernelSource
//   - options: functional options
//
// Returns:
//   - Raytracer: the raytracer
//   - error: ErrMissingBinding, ErrThreadGroupMismatch or ErrFormatMismatch for a kernel that
//     breaks the contract, or a GPU setup error
func NewRaytracer(r renderer.Renderer, kernel shader.Shader, options ...RaytracerBuilderOption) (Raytracer, error) {
	rt, err := newRaytracer(r, kernel, options...)
	if err != nil {
		return nil, err
	}
	return rt, nil
}

// raytracerHost is the part of renderer.Renderer a Raytracer uses.
type raytracerHost interface {
	kernelHost
	TargetAllocator
	Presenter
	UploadTexture(label string, stagingData common.TextureStagingData) (renderer.Texture, error)
}

var _ raytracerHost = renderer.Renderer(nil)

func newRaytracer(r raytracerHost, kernel shader.Shader, options ...RaytracerBuilderOption) (*raytracerImpl, error) {
	rt := &raytracerImpl{
		mu:        &sync.Mutex{},
		presenter: r,
		groupSize: DefaultThreadGroupSize,
	}
	for _, opt := range options {
		opt(rt)
	}
	if rt.seeds == nil {
		rt.seeds = NewRandomSeedSource(uint64(time.Now().UnixNano()))
	}

	if kernel == nil {
		return nil, ErrNoKernel
	}
	if rt.validate {
		if err := kernel.Validate(); err != nil {
			return nil, fmt.Errorf("kernel %s: %w", kernel.Key(), err)
		}
	}
	if err := CheckKernel(kernel, rt.groupSize); err != nil {
		return nil, err
	}

	params, err := newKernelParameters(r, kernel)
	if err != nil {
		return nil, fmt.Errorf("kernel %s: %w", kernel.Key(), err)
	}
	rt.params = params

	if rt.sky == nil {
		// 1x1 black so the bind group is complete before a sky is set
		rt.fallbackSky, err = r.UploadTexture("Fallback Sky", common.TextureStagingData{
			Pixels: []byte{0, 0, 0, 255},
			Width:  1,
			Height: 1,
		})
		if err != nil {
			params.Release()
			return nil, fmt.Errorf("fallback sky: %w", err)
		}
	}

	rt.binder = NewParameterBinder(rt.seeds)
	rt.targets = NewTargetManager(r, rt.groupSize)
	common.Logger().Info("raytracer ready",
		"kernel", kernel.Key(), "entry", kernel.EntryPoint(), "group", rt.groupSize)
	return rt, nil
}

// CheckKernel reports whether kernel declares every binding in RequiredBindings in group 0, an
// rgba32float output image and a groupSize x groupSize x 1 thread group.
//
// Parameters:
//   - kernel: the reflected compute shader
//   - groupSize: the dispatch thread-group edge
//
// Returns:
//   - error: nil, or an error wrapping ErrMissingBinding, ErrThreadGroupMismatch or ErrFormatMismatch
func CheckKernel(kernel shader.Shader, groupSize uint32) error {
	for _, name := range RequiredBindings {
		if _, ok := kernel.BindGroupFromVarName(0, name); !ok {
			return fmt.Errorf("%w: %s in kernel %s", ErrMissingBinding, name, kernel.Key())
		}
	}

	wg := kernel.WorkgroupSize()
	if wg[0] != groupSize || wg[1] != groupSize || wg[2] > 1 {
		return fmt.Errorf("%w: kernel %s declares %v, dispatch uses %dx%dx1",
			ErrThreadGroupMismatch, kernel.Key(), wg, groupSize, groupSize)
	}

	format, ok := kernel.StorageFormat(0, BindingTarget)
	if !ok {
		return fmt.Errorf("%w: %s is not a storage texture", ErrFormatMismatch, BindingTarget)
	}
	if format != renderer.RenderTargetFormat {
		return fmt.Errorf("%w: %s is %v, want %v", ErrFormatMismatch, BindingTarget, format, renderer.RenderTargetFormat)
	}
	return nil
}

func (rt *raytracerImpl) Render(cam CameraSource, viewport Viewport) (FrameStats, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	start := time.Now()
	rt.frame++

	rt.binder.Bind(rt.params, cam, common.Coalesce(rt.sky, rt.fallbackSky))
	stats, err := rt.targets.Render(viewport.Width, viewport.Height, rt.params, rt.presenter)
	stats.Frame = rt.frame
	stats.Duration = time.Since(start)
	if err != nil {
		common.Logger().Warn("frame dropped", "frame", rt.frame, "error", err)
		return stats, err
	}
	if stats.Skipped {
		return stats, nil
	}
	if stats.Allocated {
		common.Logger().Info("render target resized", "width", stats.Width, "height", stats.Height, "groups", stats.Groups)
	}

	frame := Frame{Stats: stats, Target: rt.targets.Target()}
	for _, o := range rt.observers {
		o.Observe(frame)
	}
	return stats, nil
}

func (rt *raytracerImpl) SetSky(sky renderer.Texture) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.sky = sky
}

func (rt *raytracerImpl) Target() renderer.RenderTarget {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.targets.Target()
}

func (rt *raytracerImpl) ThreadGroupSize() uint32 {
	return rt.groupSize
}

func (rt *raytracerImpl) Release() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.targets.Release()
	rt.params.Release()
	if rt.fallbackSky != nil {
		rt.fallbackSky.Release()
		rt.fallbackSky = nil
	}
}
