package raytracer

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// kernelHost is the part of renderer.Renderer a kernel needs.
type kernelHost interface {
	RegisterPipelines(pipelines ...pipeline.Pipeline) error
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error
	WriteBuffers(writes []bind_group_provider.BufferWrite)
	BeginComputeFrame() error
	DispatchCompute(pipelineKey string, computeProvider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error
	EndComputeFrame() error
}

var _ kernelHost = renderer.Renderer(nil)

// kernelParameters backs ParameterBlock and Kernel with the kernel's group 0 bind group.
// Scalar and matrix values are staged and written right before the dispatch; texture changes
// rebuild the bind group.
type kernelParameters struct {
	host        kernelHost
	pipelineKey string
	provider    bind_group_provider.BindGroupProvider
	descriptor  wgpu.BindGroupLayoutDescriptor

	bindings map[string]int
	sizes    map[int]uint64

	// staged writes by binding, latest value wins
	pending map[int][]byte
	dirty   bool
}

var (
	_ ParameterBlock = &kernelParameters{}
	_ Kernel         = &kernelParameters{}
)

// newKernelParameters registers the kernel's compute pipeline and prepares its group 0
// resources. Buffers are created on the first dispatch.
func newKernelParameters(host kernelHost, kernel shader.Shader) (*kernelParameters, error) {
	p := pipeline.NewPipeline(kernel.Key(), pipeline.PipelineTypeCompute, pipeline.WithComputeShader(kernel))
	if err := host.RegisterPipelines(p); err != nil {
		return nil, err
	}

	kp := &kernelParameters{
		host:        host,
		pipelineKey: kernel.Key(),
		provider:    bind_group_provider.NewBindGroupProvider(kernel.Key() + " Parameters"),
		descriptor:  p.BindGroupLayoutDescriptor(0),
		bindings:    make(map[string]int),
		sizes:       make(map[int]uint64),
		pending:     make(map[int][]byte),
		dirty:       true,
	}

	for _, e := range kp.descriptor.Entries {
		binding := int(e.Binding)
		kp.bindings[kernel.BindGroupVarName(0, binding)] = binding
		switch {
		case e.Buffer.Type != wgpu.BufferBindingTypeUndefined:
			// uniform scalars are padded to a 16 byte buffer
			kp.sizes[binding] = uint64(common.AlignUp(uint32(max(e.Buffer.MinBindingSize, 16)), 16))
		case e.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
			if err := host.InitSampler(kp.provider, binding, common.SkySamplerData()); err != nil {
				kp.Release()
				return nil, fmt.Errorf("kernel %s: sampler %d: %w", kernel.Key(), binding, err)
			}
		}
	}
	return kp, nil
}

func (kp *kernelParameters) SetMatrix(name string, m [16]float32) {
	kp.stage(name, common.Mat4Bytes(m))
}

func (kp *kernelParameters) SetFloat(name string, v float32) {
	binding, ok := kp.bindings[name]
	if !ok {
		common.Logger().Debug("unknown kernel parameter", "name", name)
		return
	}
	kp.pending[binding] = common.Float32Bytes(v, int(kp.sizes[binding]))
}

func (kp *kernelParameters) SetTexture(name string, tex renderer.Texture) {
	if tex == nil {
		return
	}
	binding, ok := kp.bindings[name]
	if !ok {
		common.Logger().Debug("unknown kernel parameter", "name", name)
		return
	}
	kp.setView(binding, tex.View())
}

func (kp *kernelParameters) BindTarget(target renderer.RenderTarget) error {
	binding, ok := kp.bindings[BindingTarget]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingBinding, BindingTarget)
	}
	if target == nil || target.View() == nil {
		return fmt.Errorf("bind of released render target")
	}
	kp.setView(binding, target.View())
	return nil
}

func (kp *kernelParameters) Dispatch(groups [3]uint32) error {
	if err := kp.flush(); err != nil {
		return err
	}
	if err := kp.host.BeginComputeFrame(); err != nil {
		return err
	}
	if err := kp.host.DispatchCompute(kp.pipelineKey, kp.provider, groups); err != nil {
		// close the frame so the next one can open; nothing was recorded
		_ = kp.host.EndComputeFrame()
		return err
	}
	return kp.host.EndComputeFrame()
}

// Release releases the kernel's buffers, sampler and bind group. Borrowed views are left alone.
func (kp *kernelParameters) Release() {
	kp.provider.Release()
}

func (kp *kernelParameters) stage(name string, data []byte) {
	binding, ok := kp.bindings[name]
	if !ok {
		common.Logger().Debug("unknown kernel parameter", "name", name)
		return
	}
	kp.pending[binding] = data
}

func (kp *kernelParameters) setView(binding int, view *wgpu.TextureView) {
	if kp.provider.TextureView(binding) == view {
		return
	}
	kp.provider.SetBorrowedTextureView(binding, view)
	kp.dirty = true
}

// flush rebuilds the bind group if a view changed, then writes the staged values.
func (kp *kernelParameters) flush() error {
	if kp.dirty {
		if err := kp.host.InitBindGroup(kp.provider, kp.descriptor, nil, kp.sizes); err != nil {
			return fmt.Errorf("kernel %s: bind group: %w", kp.pipelineKey, err)
		}
		kp.dirty = false
	}
	if len(kp.pending) == 0 {
		return nil
	}

	bindings := make([]int, 0, len(kp.pending))
	for b := range kp.pending {
		bindings = append(bindings, b)
	}
	sort.Ints(bindings)
	writes := make([]bind_group_provider.BufferWrite, 0, len(bindings))
	for _, b := range bindings {
		writes = append(writes, bind_group_provider.BufferWrite{
			Provider: kp.provider,
			Binding:  b,
			Data:     kp.pending[b],
		})
	}
	kp.host.WriteBuffers(writes)
	clear(kp.pending)
	return nil
}
