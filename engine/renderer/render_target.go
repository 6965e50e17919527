package renderer

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// Texture is a GPU texture with a single default view.
type Texture interface {
	// Width returns the texture width in pixels.
	Width() int

	// Height returns the texture height in pixels.
	Height() int

	// Format returns the texel format.
	Format() wgpu.TextureFormat

	// View returns the default view over the whole texture. The view belongs to the texture;
	// bind groups borrow it.
	View() *wgpu.TextureView

	// Release releases the view and the texture. Calling Release more than once is a no-op.
	Release()
}

// RenderTarget is a float texture a compute kernel writes into with random access and the
// presenter reads from. It is created by Renderer.CreateRenderTarget.
type RenderTarget interface {
	Texture

	// GPUTexture returns the underlying texture, used as a copy source for readback.
	GPUTexture() *wgpu.Texture
}

// RenderTargetFormat is the texel format of every render target: four 32-bit float channels,
// linear color.
const RenderTargetFormat = wgpu.TextureFormatRGBA32Float

// RenderTargetUsage lets the kernel write the target as a storage texture, the presenter sample it
// and readback copy from it.
const RenderTargetUsage = wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopySrc

// gpuTexture implements both Texture and RenderTarget.
type gpuTexture struct {
	width, height int
	format        wgpu.TextureFormat
	texture       *wgpu.Texture
	view          *wgpu.TextureView
}

var _ RenderTarget = &gpuTexture{}

func (t *gpuTexture) Width() int {
	return t.width
}

func (t *gpuTexture) Height() int {
	return t.height
}

func (t *gpuTexture) Format() wgpu.TextureFormat {
	return t.format
}

func (t *gpuTexture) View() *wgpu.TextureView {
	return t.view
}

func (t *gpuTexture) GPUTexture() *wgpu.Texture {
	return t.texture
}

func (t *gpuTexture) Release() {
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}
