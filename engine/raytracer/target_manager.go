package raytracer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
)

// DefaultThreadGroupSize is the edge of the square thread group the kernel declares with
// @workgroup_size(8, 8, 1).
const DefaultThreadGroupSize uint32 = 8

// TargetAllocator creates render targets. renderer.Renderer satisfies it.
type TargetAllocator interface {
	CreateRenderTarget(width, height int) (renderer.RenderTarget, error)
}

// Kernel is a compute kernel that writes one render target per dispatch.
type Kernel interface {
	// BindTarget binds target as the kernel's output image.
	BindTarget(target renderer.RenderTarget) error

	// Dispatch submits the kernel over the given thread-group grid.
	Dispatch(groups [3]uint32) error
}

// Presenter copies a texture to the display surface. renderer.Renderer satisfies it.
type Presenter interface {
	Blit(target renderer.Texture) error
}

// TargetManager owns the single render target the kernel fills each frame. It reallocates the
// target only when the viewport size changes and never holds two targets at once.
type TargetManager interface {
	// Resize makes the target match width x height. With no target, or a target of another
	// size, the old target is released first and a new one allocated. Otherwise the current
	// target is returned as is.
	//
	// Parameters:
	//   - width, height: the viewport size in pixels, both > 0
	//
	// Returns:
	//   - renderer.RenderTarget: the target sized exactly width x height
	//   - error: ErrInvalidViewport for a degenerate size, or the allocation error
	Resize(width, height int) (renderer.RenderTarget, error)

	// Dispatch binds target as the kernel output and issues one dispatch covering it.
	//
	// Parameters:
	//   - kernel: the kernel to run
	//   - target: the output image
	//
	// Returns:
	//   - [3]uint32: the thread-group grid dispatched
	//   - error: an error if binding or dispatch fails
	Dispatch(kernel Kernel, target renderer.RenderTarget) ([3]uint32, error)

	// Present blits target over the whole display surface.
	Present(presenter Presenter, target renderer.RenderTarget) error

	// Render runs resize, dispatch and present for one frame. When either dimension is <= 0
	// nothing happens and the returned stats are marked Skipped.
	//
	// Parameters:
	//   - width, height: the viewport size in pixels
	//   - kernel: the kernel to dispatch
	//   - presenter: the display sink
	//
	// Returns:
	//   - FrameStats: the size, grid and allocation outcome of the frame
	//   - error: the first failing step's error; the frame is dropped
	Render(width, height int, kernel Kernel, presenter Presenter) (FrameStats, error)

	// Target returns the current target, or nil.
	Target() renderer.RenderTarget

	// ThreadGroupSize returns the thread-group edge length.
	ThreadGroupSize() uint32

	// Release releases the current target. The next Resize allocates a new one.
	Release()
}

type targetManager struct {
	allocator TargetAllocator
	groupSize uint32
	target    renderer.RenderTarget
}

var _ TargetManager = &targetManager{}

// NewTargetManager creates a TargetManager allocating from allocator. A groupSize of 0 selects
// DefaultThreadGroupSize.
//
// Parameters:
//   - allocator: the render target factory
//   - groupSize: the thread-group edge length the kernel declares
//
// Returns:
//   - TargetManager: the manager, holding no target yet
func NewTargetManager(allocator TargetAllocator, groupSize uint32) TargetManager {
	return &targetManager{
		allocator: allocator,
		groupSize: common.Coalesce(groupSize, DefaultThreadGroupSize),
	}
}

// DispatchSize returns the grid (ceil(width/groupSize), ceil(height/groupSize), 1). Degenerate
// sizes give a zero grid.
//
// Parameters:
//   - width, height: the image size in pixels
//   - groupSize: the thread-group edge length
//
// Returns:
//   - [3]uint32: the thread-group counts in x, y and z
func DispatchSize(width, height int, groupSize uint32) [3]uint32 {
	if width <= 0 || height <= 0 || groupSize == 0 {
		return [3]uint32{0, 0, 0}
	}
	return [3]uint32{
		common.CeilDiv(uint32(width), groupSize),
		common.CeilDiv(uint32(height), groupSize),
		1,
	}
}

func (m *targetManager) Resize(width, height int) (renderer.RenderTarget, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidViewport, width, height)
	}
	if m.target != nil && m.target.Width() == width && m.target.Height() == height {
		return m.target, nil
	}

	if m.target != nil {
		common.Logger().Debug("render target released",
			"width", m.target.Width(), "height", m.target.Height())
		m.target.Release()
		m.target = nil
	}

	target, err := m.allocator.CreateRenderTarget(width, height)
	if err != nil {
		return nil, fmt.Errorf("allocate render target %dx%d: %w", width, height, err)
	}
	if target.Width() != width || target.Height() != height {
		target.Release()
		return nil, fmt.Errorf("allocate render target %dx%d: got %dx%d", width, height, target.Width(), target.Height())
	}
	m.target = target
	common.Logger().Debug("render target allocated", "width", width, "height", height)
	return target, nil
}

func (m *targetManager) Dispatch(kernel Kernel, target renderer.RenderTarget) ([3]uint32, error) {
	if kernel == nil {
		return [3]uint32{}, ErrNoKernel
	}
	if target == nil {
		return [3]uint32{}, errors.New("dispatch without a render target")
	}
	if err := kernel.BindTarget(target); err != nil {
		return [3]uint32{}, fmt.Errorf("bind render target: %w", err)
	}
	groups := DispatchSize(target.Width(), target.Height(), m.groupSize)
	if err := kernel.Dispatch(groups); err != nil {
		return [3]uint32{}, fmt.Errorf("dispatch %v: %w", groups, err)
	}
	return groups, nil
}

func (m *targetManager) Present(presenter Presenter, target renderer.RenderTarget) error {
	if presenter == nil {
		return errors.New("present without a presenter")
	}
	if err := presenter.Blit(target); err != nil {
		return fmt.Errorf("present: %w", err)
	}
	return nil
}

func (m *targetManager) Render(width, height int, kernel Kernel, presenter Presenter) (FrameStats, error) {
	stats := FrameStats{Width: width, Height: height}
	if width <= 0 || height <= 0 {
		stats.Skipped = true
		return stats, nil
	}

	previous := m.target
	target, err := m.Resize(width, height)
	if err != nil {
		return stats, err
	}
	stats.Allocated = target != previous

	stats.Groups, err = m.Dispatch(kernel, target)
	if err != nil {
		return stats, err
	}
	return stats, m.Present(presenter, target)
}

func (m *targetManager) Target() renderer.RenderTarget {
	return m.target
}

func (m *targetManager) ThreadGroupSize() uint32 {
	return m.groupSize
}

func (m *targetManager) Release() {
	if m.target == nil {
		return
	}
	m.target.Release()
	m.target = nil
}
