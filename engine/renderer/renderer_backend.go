package renderer

import "github.com/cogentcore/webgpu/wgpu"

// RendererBackendType selects the GPU API behind a Renderer. WebGPU is the only one.
type RendererBackendType int

const (
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how blitted frames reach the display.
type PresentMode int

const (
	// PresentModeVSync waits for vertical blank. Frame rate is capped at the refresh rate.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents immediately and may tear. The raytracer's frame rate is only
	// bounded by the kernel.
	PresentModeUncapped
)

// String returns the lowercase mode name used in logs and config files.
func (m PresentMode) String() string {
	switch m {
	case PresentModeVSync:
		return "vsync"
	case PresentModeUncapped:
		return "uncapped"
	default:
		return "unknown"
	}
}

// wgpuPresentMode maps a PresentMode onto the surface modes WebGPU guarantees. Fifo is always
// available; Immediate falls back to Fifo in the backend when the surface lacks it.
func (m PresentMode) wgpuPresentMode() wgpu.PresentMode {
	if m == PresentModeUncapped {
		return wgpu.PresentModeImmediate
	}
	return wgpu.PresentModeFifo
}

// RendererBackend is what the Renderer drives each frame.
type RendererBackend interface {
	wgpuRendererBackend
}
