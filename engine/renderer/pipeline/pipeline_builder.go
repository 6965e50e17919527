package pipeline

import (
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption configures a Pipeline in NewPipeline.
type PipelineBuilderOption func(*pipeline)

// WithVertexShader sets the vertex stage of a render pipeline. Its reflected bind groups are
// merged with the fragment stage's.
func WithVertexShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexShader = s
	}
}

// WithFragmentShader sets the fragment stage of a render pipeline.
func WithFragmentShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.fragmentShader = s
	}
}

// WithComputeShader sets the only stage of a compute pipeline.
//
// Parameters:
//   - s: a shader with a @compute entry point
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithComputeShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.computeShader = s
	}
}

// WithSampleType overrides the reflected sample type of the texture at group/binding.
// WGSL cannot express "unfilterable", so float textures read with textureLoad from an
// rgba32float source need wgpu.TextureSampleTypeUnfilterableFloat here.
//
// Parameters:
//   - group: the bind group index
//   - binding: the binding index within the group
//   - sampleType: the sample type to declare in the layout
//
// Returns:
//   - PipelineBuilderOption: a function that records the override
func WithSampleType(group, binding int, sampleType wgpu.TextureSampleType) PipelineBuilderOption {
	return func(p *pipeline) {
		p.sampleTypeOverrides[bindingKey{group, binding}] = sampleType
	}
}

// WithCullMode sets face culling. The default is none, which a fullscreen triangle needs.
func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cullMode = mode
	}
}

// WithTopology sets the primitive topology. The default is a triangle list.
func WithTopology(topology wgpu.PrimitiveTopology) PipelineBuilderOption {
	return func(p *pipeline) {
		p.topology = topology
	}
}

// WithFrontFace sets the winding that counts as front facing. The default is CCW.
func WithFrontFace(frontFace wgpu.FrontFace) PipelineBuilderOption {
	return func(p *pipeline) {
		p.frontFace = frontFace
	}
}

// WithWriteMask limits which color channels the fragment stage writes.
func WithWriteMask(writeMask wgpu.ColorWriteMask) PipelineBuilderOption {
	return func(p *pipeline) {
		p.writeMask = writeMask
	}
}

// WithBlendState enables blending. Nil, the default, writes fragments opaque.
func WithBlendState(blendState *wgpu.BlendState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blendState = blendState
	}
}
