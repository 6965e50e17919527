package renderer

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/blit.wgsl
var blitShaderSource string

// BlitPipelineKey is the cache key of the built-in present pipeline.
const BlitPipelineKey = "oxy.blit"

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend

	// blit state, created on first Blit
	blitProvider bind_group_provider.BindGroupProvider
	blitSource   *wgpu.TextureView

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
}

// SurfaceSource is anything that can host a WebGPU surface, typically a window.Window.
type SurfaceSource interface {
	// SurfaceDescriptor returns the platform descriptor used to create the surface.
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// Width returns the current framebuffer width in pixels.
	Width() int

	// Height returns the current framebuffer height in pixels.
	Height() int
}

// Renderer defines the interface for the rendering system.
//
// It owns the GPU device and swapchain, a cache of pipelines keyed by name, and the resources
// a compute kernel needs: bind groups, storage render targets, sampled textures and a present
// pass that copies a render target to the screen.
type Renderer interface {
	// Pipeline retrieves the cached Pipeline associated with the given key, or nil.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// RegisterPipelines creates the GPU pipeline objects (render or compute) for each pipeline
	// and caches them by PipelineKey. Already registered keys are skipped.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: an error if pipeline creation fails
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// Resize reconfigures the swapchain for a new framebuffer size. Zero sizes (a minimized
	// window) are ignored.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SetPresentMode sets the surface present mode. It takes effect on the next Resize.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// MaxTextureDimension2D returns the largest 2D texture edge the device accepts.
	MaxTextureDimension2D() uint32

	// InitBindGroup creates missing GPU buffers and (re)creates the bind group described by
	// descriptor on the provider. Texture and sampler bindings must already be set.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created bind group on
	//   - descriptor: the layout descriptor defining the bind group entries
	//   - bufferUsageOverrides: additional buffer usage flags keyed by binding index (nil safe)
	//   - bufferSizeOverrides: custom buffer sizes keyed by binding index (nil safe)
	//
	// Returns:
	//   - error: an error if bind group creation fails
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error

	// InitSampler creates a GPU sampler and stores it on the provider at bindingKey.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created sampler on
	//   - bindingKey: the binding index for this sampler
	//   - samplerStagingData: the sampler configuration
	//
	// Returns:
	//   - error: an error if sampler creation fails
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error

	// UploadTexture creates a sampled RGBA8 texture from staging data.
	//
	// Parameters:
	//   - label: debug label for the texture
	//   - stagingData: the pixel data and dimensions
	//
	// Returns:
	//   - Texture: the texture, owned by the caller
	//   - error: an error if texture creation fails
	UploadTexture(label string, stagingData common.TextureStagingData) (Texture, error)

	// CreateRenderTarget allocates a width x height rgba32float texture usable as a compute
	// storage texture, a sampled texture and a copy source.
	//
	// Parameters:
	//   - width, height: size in pixels, both > 0
	//
	// Returns:
	//   - RenderTarget: the target, owned by the caller
	//   - error: an error if allocation fails
	CreateRenderTarget(width, height int) (RenderTarget, error)

	// ReadTarget copies a render target back to host memory.
	//
	// Parameters:
	//   - target: the render target to read
	//
	// Returns:
	//   - []float32: width*height RGBA texels, row-major from the top-left
	//   - error: an error if the readback fails
	ReadTarget(target RenderTarget) ([]float32, error)

	// WriteBuffers writes all staged buffer writes to the GPU queue.
	//
	// Parameters:
	//   - writes: a slice of BufferWrite structs describing the data to write
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// BeginComputeFrame opens the command encoder all DispatchCompute calls of a frame share.
	//
	// Returns:
	//   - error: an error if the command encoder could not be created
	BeginComputeFrame() error

	// DispatchCompute encodes a compute pass for the cached compute pipeline pipelineKey.
	//
	// Parameters:
	//   - pipelineKey: the unique identifier for the cached compute Pipeline to use
	//   - computeProvider: the BindGroupProvider bound at group 0
	//   - workGroupCount: the number of workgroups to dispatch in the x, y, and z dimensions
	//
	// Returns:
	//   - error: an error if the pipeline is unknown or no compute frame is open
	DispatchCompute(pipelineKey string, computeProvider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error

	// EndComputeFrame submits the compute frame's commands to the queue.
	//
	// Returns:
	//   - error: an error if the command buffer could not be finished
	EndComputeFrame() error

	// Blit draws target over the whole swapchain image and presents it. Commands are
	// submitted after any compute work already on the queue, so the kernel's writes are visible.
	//
	// Parameters:
	//   - target: the render target to show
	//
	// Returns:
	//   - error: an error if the swapchain image cannot be acquired or the present pipeline fails
	Blit(target Texture) error

	// Release releases every cached pipeline, the present pass resources and the GPU device.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer for the given surface source. GPU bootstrap failures panic.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - surface: the surface host, usually a window.Window
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
func NewRenderer(backendType RendererBackendType, surface SurfaceSource, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
	}

	// options first so adapter selection sees forceFallbackAdapter
	for _, opt := range options {
		opt(r)
	}

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend = newWGPURendererBackend(surface.SurfaceDescriptor(), r.forceFallbackAdapter)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	r.backend.ConfigureSurface(surface.Width(), surface.Height())
	common.Logger().Info("renderer ready",
		"surface_format", r.backend.SurfaceFormat(),
		"max_texture_2d", r.backend.MaxTextureDimension2D(),
		"software", r.forceFallbackAdapter,
	)
	return r
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) MaxTextureDimension2D() uint32 {
	return r.backend.MaxTextureDimension2D()
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		var err error
		switch p.Type() {
		case pipeline.PipelineTypeCompute:
			err = r.backend.RegisterComputePipeline(p)
		case pipeline.PipelineTypeRender:
			err = r.backend.RegisterRenderPipeline(p)
		default:
			err = fmt.Errorf("unknown pipeline type %d", p.Type())
		}
		if err != nil {
			return fmt.Errorf("register pipeline %q: %w", key, err)
		}
		r.pipelineCache[key] = p
		common.Logger().Debug("pipeline registered", "key", key)
	}
	return nil
}

func (r *renderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error {
	return r.backend.InitBindGroup(provider, descriptor, bufferUsageOverrides, bufferSizeOverrides)
}

func (r *renderer) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error {
	return r.backend.InitSampler(provider, bindingKey, samplerStagingData)
}

func (r *renderer) UploadTexture(label string, stagingData common.TextureStagingData) (Texture, error) {
	return r.backend.CreateTexture(label, stagingData)
}

func (r *renderer) CreateRenderTarget(width, height int) (RenderTarget, error) {
	return r.backend.CreateRenderTarget(width, height)
}

func (r *renderer) ReadTarget(target RenderTarget) ([]float32, error) {
	return r.backend.ReadTexture(target)
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	r.backend.WriteBuffers(writes)
}

func (r *renderer) BeginComputeFrame() error {
	return r.backend.BeginComputeFrame()
}

func (r *renderer) EndComputeFrame() error {
	return r.backend.EndComputeFrame()
}

func (r *renderer) DispatchCompute(pipelineKey string, computeProvider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error {
	p := r.Pipeline(pipelineKey)
	if p == nil {
		return fmt.Errorf("compute pipeline %q not found in cache", pipelineKey)
	}
	return r.backend.DispatchCompute(p, computeProvider, workGroupCount)
}

// ensureBlit registers the present pipeline and rebinds its source when the target view changed.
func (r *renderer) ensureBlit(target Texture) (pipeline.Pipeline, error) {
	p := r.Pipeline(BlitPipelineKey)
	if p == nil {
		p = pipeline.NewPipeline(BlitPipelineKey, pipeline.PipelineTypeRender,
			pipeline.WithVertexShader(shader.NewShaderFromSource("blit_vs", shader.ShaderTypeVertex, blitShaderSource)),
			pipeline.WithFragmentShader(shader.NewShaderFromSource("blit_fs", shader.ShaderTypeFragment, blitShaderSource)),
			pipeline.WithSampleType(0, 0, wgpu.TextureSampleTypeUnfilterableFloat),
		)
		if err := r.RegisterPipelines(p); err != nil {
			return nil, err
		}
	}

	if r.blitProvider == nil {
		r.blitProvider = bind_group_provider.NewBindGroupProvider("Blit")
	}
	if r.blitSource != target.View() || r.blitProvider.BindGroup() == nil {
		r.blitProvider.SetBorrowedTextureView(0, target.View())
		if err := r.InitBindGroup(r.blitProvider, p.BindGroupLayoutDescriptor(0), nil, nil); err != nil {
			return nil, err
		}
		r.blitSource = target.View()
	}
	return p, nil
}

func (r *renderer) Blit(target Texture) error {
	if target == nil || target.View() == nil {
		return errors.New("blit of released texture")
	}
	p, err := r.ensureBlit(target)
	if err != nil {
		return fmt.Errorf("blit: %w", err)
	}
	if err := r.backend.BeginFrame(); err != nil {
		return fmt.Errorf("blit: acquire swapchain: %w", err)
	}
	r.backend.Draw(p, 3, []bind_group_provider.BindGroupProvider{r.blitProvider})
	r.backend.EndFrame()
	r.backend.Present()
	return nil
}

func (r *renderer) Release() {
	r.mu.Lock()
	for key, p := range r.pipelineCache {
		p.Release()
		delete(r.pipelineCache, key)
	}
	r.mu.Unlock()

	if r.blitProvider != nil {
		r.blitProvider.Release()
		r.blitProvider = nil
		r.blitSource = nil
	}
	r.backend.Release()
}
