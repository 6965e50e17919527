package renderer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"runtime"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// readbackRowAlignment is the WebGPU requirement on bytesPerRow for texture-to-buffer copies.
const readbackRowAlignment = 256

// maxMapPolls bounds how long ReadTexture waits for a buffer mapping.
const maxMapPolls = 10000

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat *wgpu.TextureFormat
	surfaceWidth  int
	surfaceHeight int
	presentMode   wgpu.PresentMode
	limits        wgpu.Limits

	// Frame state for the present pass
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView

	// Compute frame state for batching all compute dispatches into a single GPU submission
	computeFrameEncoder *wgpu.CommandEncoder
}

type wgpuRendererBackend interface {
	// ConfigureSurface (re)configures the swapchain for a new framebuffer size. Zero or negative
	// sizes are ignored, the surface keeps its previous configuration.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	ConfigureSurface(width, height int)

	// SurfaceFormat returns the swapchain texel format, or TextureFormatUndefined before the
	// first ConfigureSurface.
	SurfaceFormat() wgpu.TextureFormat

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// MaxTextureDimension2D returns the largest 2D texture edge the device accepts.
	MaxTextureDimension2D() uint32

	// BeginComputeFrame creates a single command encoder for batching all compute dispatches
	// within a frame into one GPU submission. Must be paired with EndComputeFrame.
	//
	// Returns:
	//   - error: an error if the command encoder could not be created
	BeginComputeFrame() error

	// EndComputeFrame finishes the batched compute command encoder and submits it to the queue.
	//
	// Returns:
	//   - error: an error if the command buffer could not be finished
	EndComputeFrame() error

	// DispatchCompute encodes a compute pass within the current batched compute frame.
	//
	// Parameters:
	//   - p: the compute Pipeline
	//   - computeProvider: the BindGroupProvider bound at group 0
	//   - workGroupCount: the number of workgroups to dispatch in the x, y, and z dimensions
	//
	// Returns:
	//   - error: an error if no compute frame is open
	DispatchCompute(p pipeline.Pipeline, computeProvider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error

	// RegisterRenderPipeline creates the shader modules, layout and render pipeline for p.
	// The color target uses the surface format.
	//
	// Parameters:
	//   - p: the pipeline object with vertex and fragment shaders
	//
	// Returns:
	//   - error: an error if the pipeline could not be created, otherwise nil
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// RegisterComputePipeline creates the shader module, layout and compute pipeline for p.
	//
	// Parameters:
	//   - p: the pipeline object with a compute shader
	//
	// Returns:
	//   - error: an error if the pipeline could not be created, otherwise nil
	RegisterComputePipeline(p pipeline.Pipeline) error

	// InitBindGroup creates any missing buffers for the descriptor's buffer entries and (re)creates
	// the provider's bind group. Texture, storage texture and sampler entries must already be
	// present on the provider.
	//
	// Parameters:
	//   - provider: the BindGroupProvider describing the layout entries and storage for the bind group
	//   - descriptor: the BindGroupLayoutDescriptor describing the layout of the bind group
	//   - bufferUsageOverrides: extra buffer usage flags keyed by binding index (nil safe)
	//   - bufferSizeOverrides: buffer sizes keyed by binding index, replacing MinBindingSize (nil safe)
	//
	// Returns:
	//   - error: an error if the bind group could not be initialized, otherwise nil
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error

	// CreateTexture uploads RGBA8 staging data into a new sampled texture.
	//
	// Parameters:
	//   - label: debug label
	//   - stagingData: pixels and dimensions
	//
	// Returns:
	//   - Texture: the texture, owned by the caller
	//   - error: an error if the texture could not be created
	CreateTexture(label string, stagingData common.TextureStagingData) (Texture, error)

	// InitSampler creates a GPU sampler and stores it on the provider at bindingKey.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created sampler on
	//   - bindingKey: the binding index of the sampler
	//   - samplerStagingData: the sampler configuration, zero fields take defaults
	//
	// Returns:
	//   - error: an error if the sampler could not be created
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error

	// CreateRenderTarget allocates an rgba32float storage texture of the given size.
	//
	// Parameters:
	//   - width, height: the size in pixels, both > 0
	//
	// Returns:
	//   - RenderTarget: the new target, owned by the caller
	//   - error: an error if the size is invalid or allocation fails
	CreateRenderTarget(width, height int) (RenderTarget, error)

	// ReadTexture copies a render target to a mappable buffer, waits for the copy and returns the
	// texels as tightly packed RGBA float32 values, row-major from the top-left.
	//
	// Parameters:
	//   - target: the render target to read
	//
	// Returns:
	//   - []float32: width*height*4 values
	//   - error: an error if the copy or the mapping fails
	ReadTexture(target RenderTarget) ([]float32, error)

	// WriteBuffers writes all staged buffer writes to the GPU queue.
	//
	// Parameters:
	//   - writes: a slice of BufferWrite structs describing the data to write
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// BeginFrame acquires the next swapchain texture and begins a render pass that clears it.
	// Must be paired with EndFrame and Present.
	//
	// Returns:
	//   - error: an error if the swapchain texture could not be acquired
	BeginFrame() error

	// Draw encodes a non-indexed draw of vertexCount vertices with the given bind groups.
	//
	// Parameters:
	//   - p: the render Pipeline
	//   - vertexCount: the number of vertices, generated in the vertex shader
	//   - bindGroups: providers bound at groups 0..n-1
	Draw(p pipeline.Pipeline, vertexCount uint32, bindGroups []bind_group_provider.BindGroupProvider)

	// EndFrame ends the current render pass and submits the command buffer to the GPU.
	EndFrame()

	// Present presents the surface to the display and releases the swapchain texture.
	Present()

	// Release releases the device, queue, surface, adapter and instance.
	Release()
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) wgpuRendererBackend {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
	}
	w.surface = w.instance.CreateSurface(surfaceDescriptor)

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		panic(err)
	}
	w.adapter = a

	w.limits = wgpu.DefaultLimits()
	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: w.limits,
		},
	})
	if err != nil {
		panic(err)
	}
	w.device = d
	w.queue = d.GetQueue()

	return w
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]
	presentMode := b.presentMode
	if !slices.Contains(capabilities.PresentModes, presentMode) {
		presentMode = wgpu.PresentModeFifo
	}
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	b.surfaceWidth, b.surfaceHeight = width, height
}

func (b *wgpuRendererBackendImpl) SurfaceFormat() wgpu.TextureFormat {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.surfaceFormat == nil {
		return wgpu.TextureFormatUndefined
	}
	return *b.surfaceFormat
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.presentMode = mode.wgpuPresentMode()
}

func (b *wgpuRendererBackendImpl) MaxTextureDimension2D() uint32 {
	return b.limits.MaxTextureDimension2D
}

func (b *wgpuRendererBackendImpl) BeginComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computeFrameEncoder != nil {
		return errors.New("compute frame already open")
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	b.computeFrameEncoder = encoder
	return nil
}

func (b *wgpuRendererBackendImpl) EndComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computeFrameEncoder == nil {
		return nil
	}
	defer func() {
		b.computeFrameEncoder.Release()
		b.computeFrameEncoder = nil
	}()

	commandBuffer, err := b.computeFrameEncoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish compute frame: %w", err)
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) DispatchCompute(
	p pipeline.Pipeline,
	computeProvider bind_group_provider.BindGroupProvider,
	workGroupCount [3]uint32,
) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computeFrameEncoder == nil {
		return errors.New("dispatch outside of a compute frame")
	}
	computePipeline, ok := p.Pipeline().(*wgpu.ComputePipeline)
	if !ok || computePipeline == nil {
		return fmt.Errorf("pipeline %q is not a registered compute pipeline", p.PipelineKey())
	}
	if computeProvider.BindGroup() == nil {
		return fmt.Errorf("provider %q has no bind group", computeProvider.Label())
	}

	pass := b.computeFrameEncoder.BeginComputePass(nil)
	pass.SetPipeline(computePipeline)
	pass.SetBindGroup(0, computeProvider.BindGroup(), nil)
	pass.DispatchWorkgroups(workGroupCount[0], workGroupCount[1], workGroupCount[2])
	pass.End()
	return nil
}

// createPipelineLayout builds bind group layouts for groups 0..max and the pipeline layout over them.
func (b *wgpuRendererBackendImpl) createPipelineLayout(p pipeline.Pipeline) (*wgpu.PipelineLayout, error) {
	descriptors := p.BindGroupLayoutDescriptors()
	maxGroup := -1
	for g := range descriptors {
		maxGroup = max(maxGroup, g)
	}
	layouts := make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g := 0; g <= maxGroup; g++ {
		desc := descriptors[g]
		layout, err := b.device.CreateBindGroupLayout(&desc)
		if err != nil {
			return nil, fmt.Errorf("failed to create bind group layout for group %d: %w", g, err)
		}
		layouts[g] = layout
	}
	return b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: layouts,
	})
}

func (b *wgpuRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	vertexShader := p.Shader(shader.ShaderTypeVertex)
	fragmentShader := p.Shader(shader.ShaderTypeFragment)
	if vertexShader == nil || fragmentShader == nil {
		return errors.New("both vertex and fragment shaders must be set to create a render pipeline")
	}
	if b.surfaceFormat == nil {
		return errors.New("surface must be configured before registering render pipelines")
	}

	vs, err := b.device.CreateShaderModule(vertexShader.Module())
	if err != nil {
		return err
	}
	fs, err := b.device.CreateShaderModule(fragmentShader.Module())
	if err != nil {
		return err
	}

	layout, err := b.createPipelineLayout(p)
	if err != nil {
		return err
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexShader.EntryPoint(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets: []wgpu.ColorTargetState{{
				Format:    *b.surfaceFormat,
				WriteMask: p.WriteMask(),
				Blend:     p.BlendState(),
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: p.FrontFace(),
			CullMode:  p.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return err
	}

	p.SetRenderPipeline(created)
	return nil
}

func (b *wgpuRendererBackendImpl) RegisterComputePipeline(p pipeline.Pipeline) error {
	computeShader := p.Shader(shader.ShaderTypeCompute)
	if computeShader == nil {
		return errors.New("compute shader must be set to create a compute pipeline")
	}

	module, err := b.device.CreateShaderModule(computeShader.Module())
	if err != nil {
		return err
	}

	layout, err := b.createPipelineLayout(p)
	if err != nil {
		return err
	}

	created, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  p.PipelineKey() + " Compute Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: computeShader.EntryPoint(),
		},
	})
	if err != nil {
		return err
	}

	p.SetComputePipeline(created)
	return nil
}

func (b *wgpuRendererBackendImpl) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(descriptor.Entries) == 0 {
		return nil
	}

	layout := provider.BindGroupLayout()
	if layout == nil {
		var err error
		layout, err = b.device.CreateBindGroupLayout(&descriptor)
		if err != nil {
			return err
		}
		provider.SetBindGroupLayout(layout)
	}

	entries := make([]wgpu.BindGroupEntry, len(descriptor.Entries))
	for i, entry := range descriptor.Entries {
		binding := int(entry.Binding)

		switch {
		case entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined,
			entry.StorageTexture.Access != wgpu.StorageTextureAccessUndefined:
			tv := provider.TextureView(binding)
			if tv == nil {
				return fmt.Errorf("%s: texture binding %d has no texture view", provider.Label(), binding)
			}
			entries[i] = wgpu.BindGroupEntry{Binding: entry.Binding, TextureView: tv}

		case entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
			samp := provider.Sampler(binding)
			if samp == nil {
				return fmt.Errorf("%s: sampler binding %d has no sampler, call InitSampler first", provider.Label(), binding)
			}
			entries[i] = wgpu.BindGroupEntry{Binding: entry.Binding, Sampler: samp}

		default:
			buf := provider.Buffer(binding)
			if buf == nil {
				usage := wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
				if entry.Buffer.Type == wgpu.BufferBindingTypeUniform {
					usage = wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
				}
				if extra, ok := bufferUsageOverrides[binding]; ok {
					usage |= extra
				}
				size := entry.Buffer.MinBindingSize
				if override, ok := bufferSizeOverrides[binding]; ok {
					size = override
				}
				var err error
				buf, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
					Label: fmt.Sprintf("%s Buffer %d", provider.Label(), binding),
					Size:  size,
					Usage: usage,
				})
				if err != nil {
					return err
				}
				provider.SetBuffer(binding, buf)
			}
			entries[i] = wgpu.BindGroupEntry{
				Binding: entry.Binding,
				Buffer:  buf,
				Offset:  0,
				Size:    wgpu.WholeSize,
			}
		}
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return err
	}
	provider.SetBindGroup(bindGroup)

	return nil
}

func (b *wgpuRendererBackendImpl) CreateTexture(label string, stagingData common.TextureStagingData) (Texture, error) {
	if stagingData.Width == 0 || stagingData.Height == 0 {
		return nil, fmt.Errorf("%s: empty texture %dx%d", label, stagingData.Width, stagingData.Height)
	}
	if want := int(stagingData.Width * stagingData.Height * 4); len(stagingData.Pixels) != want {
		return nil, fmt.Errorf("%s: got %d bytes of pixels, want %d", label, len(stagingData.Pixels), want)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	format := wgpu.TextureFormatRGBA8UnormSrgb
	if stagingData.Linear {
		format = wgpu.TextureFormatRGBA8Unorm
	}
	size := wgpu.Extent3D{
		Width:              stagingData.Width,
		Height:             stagingData.Height,
		DepthOrArrayLayers: 1,
	}
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		Size:          size,
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		stagingData.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  stagingData.Width * 4,
			RowsPerImage: stagingData.Height,
		},
		&size,
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	return &gpuTexture{
		width:   int(stagingData.Width),
		height:  int(stagingData.Height),
		format:  format,
		texture: tex,
		view:    view,
	}, nil
}

func (b *wgpuRendererBackendImpl) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         provider.Label() + " Sampler",
		AddressModeU:  common.Coalesce(samplerStagingData.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(samplerStagingData.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  common.Coalesce(samplerStagingData.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     common.Coalesce(samplerStagingData.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(samplerStagingData.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(samplerStagingData.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   samplerStagingData.LodMinClamp,
		LodMaxClamp:   common.Coalesce(samplerStagingData.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(samplerStagingData.MaxAnisotropy, 1),
	})
	if err != nil {
		return err
	}
	provider.SetSampler(bindingKey, samp)

	return nil
}

func (b *wgpuRendererBackendImpl) CreateRenderTarget(width, height int) (RenderTarget, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid render target size %dx%d", width, height)
	}
	if uint32(width) > b.limits.MaxTextureDimension2D || uint32(height) > b.limits.MaxTextureDimension2D {
		return nil, fmt.Errorf("render target %dx%d exceeds device limit %d", width, height, b.limits.MaxTextureDimension2D)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: fmt.Sprintf("Render Target %dx%d", width, height),
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        RenderTargetFormat,
		Usage:         RenderTargetUsage,
	})
	if err != nil {
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	return &gpuTexture{
		width:   width,
		height:  height,
		format:  RenderTargetFormat,
		texture: tex,
		view:    view,
	}, nil
}

func (b *wgpuRendererBackendImpl) ReadTexture(target RenderTarget) ([]float32, error) {
	if target == nil || target.GPUTexture() == nil {
		return nil, errors.New("read of released render target")
	}
	width, height := uint32(target.Width()), uint32(target.Height())
	const texelSize = 16
	bytesPerRow := common.AlignUp(width*texelSize, readbackRowAlignment)
	size := uint64(bytesPerRow) * uint64(height)

	b.mu.Lock()
	defer b.mu.Unlock()

	readback, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Render Target Readback",
		Size:  size,
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		return nil, err
	}
	defer readback.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture: target.GPUTexture(),
			Aspect:  wgpu.TextureAspectAll,
		},
		&wgpu.ImageCopyBuffer{
			Buffer: readback,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  bytesPerRow,
				RowsPerImage: height,
			},
		},
		&wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
	)
	commandBuffer, err := encoder.Finish(nil)
	encoder.Release()
	if err != nil {
		return nil, err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()

	done := false
	status := wgpu.BufferMapAsyncStatusSuccess
	readback.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
		done = true
	})
	for i := 0; i < maxMapPolls && !done; i++ {
		b.device.Poll(true, nil)
	}
	if !done {
		return nil, errors.New("timed out waiting for readback mapping")
	}
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("readback mapping failed: %v", status)
	}

	data := readback.GetMappedRange(0, 0)
	out := make([]float32, int(width*height)*4)
	rowFloats := int(width) * 4
	for y := 0; y < int(height); y++ {
		row := data[y*int(bytesPerRow):]
		for x := 0; x < rowFloats; x++ {
			out[y*rowFloats+x] = math.Float32frombits(binary.LittleEndian.Uint32(row[x*4:]))
		}
	}
	readback.Unmap()
	return out, nil
}

func (b *wgpuRendererBackendImpl) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range writes {
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil {
			continue
		}
		b.queue.WriteBuffer(buf, w.Offset, w.Data)
	}
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface != nil {
		return errors.New("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	b.framePass = encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	b.frameEncoder = encoder
	b.frameSurface = surfaceTexture
	b.frameView = view

	return nil
}

func (b *wgpuRendererBackendImpl) Draw(p pipeline.Pipeline, vertexCount uint32, bindGroups []bind_group_provider.BindGroupProvider) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return
	}
	b.framePass.SetPipeline(p.Pipeline().(*wgpu.RenderPipeline))
	for i, bg := range bindGroups {
		b.framePass.SetBindGroup(uint32(i), bg.BindGroup(), nil)
	}
	b.framePass.Draw(vertexCount, 1, 0, 0)
}

func (b *wgpuRendererBackendImpl) EndFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return
	}
	b.framePass.End()
	b.framePass = nil

	commandBuffer, err := b.frameEncoder.Finish(nil)
	b.frameEncoder.Release()
	b.frameEncoder = nil
	if err != nil {
		common.Logger().Error("finish present pass", "err", err)
		return
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}

	b.surface.Present()

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	b.frameSurface.Release()
	b.frameSurface = nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
