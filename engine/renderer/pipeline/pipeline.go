package pipeline

import (
	"sort"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineType identifies whether a pipeline is a compute pipeline or a render pipeline.
type PipelineType int

const (
	// PipelineTypeCompute indicates a compute pipeline with a single compute shader entry point.
	PipelineTypeCompute PipelineType = iota

	// PipelineTypeRender indicates a render pipeline with vertex and fragment shader entry points.
	PipelineTypeRender
)

// bindingKey addresses a single @group/@binding slot.
type bindingKey struct {
	group, binding int
}

// pipeline is the implementation of the Pipeline interface.
// It holds the underlying WebGPU pipeline objects and the configuration used to create them.
type pipeline struct {
	pipelineType PipelineType
	pipelineKey  string

	vertexShader, fragmentShader, computeShader shader.Shader

	renderPipeline  *wgpu.RenderPipeline
	computePipeline *wgpu.ComputePipeline

	// sampleTypeOverrides replaces the reflected sample type of texture bindings, needed for
	// formats such as rgba32float that cannot be filtered.
	sampleTypeOverrides map[bindingKey]wgpu.TextureSampleType

	// Render-only state, ignored by compute pipelines.
	cullMode   wgpu.CullMode
	topology   wgpu.PrimitiveTopology
	frontFace  wgpu.FrontFace
	writeMask  wgpu.ColorWriteMask
	blendState *wgpu.BlendState
}

// Pipeline defines the interface for a GPU pipeline, encapsulating either a render pipeline
// (vertex + fragment shaders) or a compute pipeline (compute shader), plus the layout
// information the renderer needs to create matching bind groups.
type Pipeline interface {
	// Type returns the type of the pipeline
	//
	// Returns:
	//   - PipelineType: the type of the pipeline (render or compute)
	Type() PipelineType

	// PipelineKey returns the unique key associated with this pipeline, used for caching and lookups.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader retrieves the shader associated with the specified stage if it exists, nil otherwise.
	//
	// Parameters:
	//   - shaderType: the stage of shader to retrieve (vertex, fragment, or compute)
	//
	// Returns:
	//   - shader.Shader: the shader associated with the specified stage, or nil if not set
	Shader(shaderType shader.ShaderType) shader.Shader

	// BindGroupLayoutDescriptors returns the layout of every bind group used by the pipeline.
	// Render pipelines merge vertex and fragment entries, OR-ing the visibility of shared bindings.
	// Sample type overrides are applied.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptor returns the layout of a single group, see BindGroupLayoutDescriptors.
	//
	// Parameters:
	//   - group: the group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor, empty if the group is unused
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// Pipeline returns the underlying pipeline object, either *wgpu.RenderPipeline or *wgpu.ComputePipeline.
	// The caller is responsible for type asserting the returned value.
	//
	// Returns:
	//   - any: the underlying pipeline object.
	Pipeline() any

	// CullMode returns the cull mode configured for this pipeline.
	CullMode() wgpu.CullMode

	// Topology returns the primitive topology configured for this pipeline.
	Topology() wgpu.PrimitiveTopology

	// FrontFace returns the front face winding order configured for this pipeline.
	FrontFace() wgpu.FrontFace

	// WriteMask returns the color write mask configured for this pipeline.
	WriteMask() wgpu.ColorWriteMask

	// BlendState returns the blend state configured for this pipeline, or nil when blending is off.
	BlendState() *wgpu.BlendState

	// SetRenderPipeline sets the render pipeline
	//
	// Parameters:
	//   - p: the WebGPU render pipeline to set
	SetRenderPipeline(p *wgpu.RenderPipeline)

	// SetComputePipeline sets the compute pipeline
	//
	// Parameters:
	//   - p: the WebGPU compute pipeline to set
	SetComputePipeline(p *wgpu.ComputePipeline)

	// Release releases the GPU pipeline object, if one was created.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline is the entry point to create a new Pipeline interface. A PipelineType must be specified and provided upon creation.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - pipelineType: the type of pipeline to create (render or compute)
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified type and configuration
func NewPipeline(pipelineKey string, pipelineType PipelineType, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:         pipelineKey,
		pipelineType:        pipelineType,
		sampleTypeOverrides: make(map[bindingKey]wgpu.TextureSampleType),
		cullMode:            wgpu.CullModeNone,
		topology:            wgpu.PrimitiveTopologyTriangleList,
		frontFace:           wgpu.FrontFaceCCW,
		writeMask:           wgpu.ColorWriteMaskAll,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Type() PipelineType {
	return p.pipelineType
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Pipeline() any {
	switch p.pipelineType {
	case PipelineTypeRender:
		return p.renderPipeline
	case PipelineTypeCompute:
		return p.computePipeline
	default:
		return nil
	}
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	case shader.ShaderTypeCompute:
		return p.computeShader
	default:
		return nil
	}
}

func (p *pipeline) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	var layouts map[int]wgpu.BindGroupLayoutDescriptor
	switch p.pipelineType {
	case PipelineTypeCompute:
		if p.computeShader == nil {
			return map[int]wgpu.BindGroupLayoutDescriptor{}
		}
		layouts = MergeBindGroupLayouts(p.computeShader.BindGroupLayoutDescriptors())
	default:
		var stages []map[int]wgpu.BindGroupLayoutDescriptor
		for _, s := range []shader.Shader{p.vertexShader, p.fragmentShader} {
			if s != nil {
				stages = append(stages, s.BindGroupLayoutDescriptors())
			}
		}
		layouts = MergeBindGroupLayouts(stages...)
	}

	for g, desc := range layouts {
		for i := range desc.Entries {
			if st, ok := p.sampleTypeOverrides[bindingKey{g, int(desc.Entries[i].Binding)}]; ok {
				desc.Entries[i].Texture.SampleType = st
			}
		}
		desc.Label = p.pipelineKey
		layouts[g] = desc
	}
	return layouts
}

func (p *pipeline) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return p.BindGroupLayoutDescriptors()[group]
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	return p.blendState
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.renderPipeline = rp
}

func (p *pipeline) SetComputePipeline(cp *wgpu.ComputePipeline) {
	p.computePipeline = cp
}

func (p *pipeline) Release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
	if p.computePipeline != nil {
		p.computePipeline.Release()
		p.computePipeline = nil
	}
}

// MergeBindGroupLayouts combines per-stage layout descriptors into one set. Bindings declared by
// more than one stage keep the first declaration with the visibility flags OR-ed together.
// Entries of every group are returned sorted by binding. The input maps are not modified.
//
// Parameters:
//   - stages: descriptors keyed by group index, one map per shader stage
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: the merged descriptors keyed by group index
func MergeBindGroupLayouts(stages ...map[int]wgpu.BindGroupLayoutDescriptor) map[int]wgpu.BindGroupLayoutDescriptor {
	byGroup := make(map[int]map[uint32]wgpu.BindGroupLayoutEntry)
	for _, stage := range stages {
		for g, desc := range stage {
			if byGroup[g] == nil {
				byGroup[g] = make(map[uint32]wgpu.BindGroupLayoutEntry)
			}
			for _, e := range desc.Entries {
				if existing, ok := byGroup[g][e.Binding]; ok {
					existing.Visibility |= e.Visibility
					byGroup[g][e.Binding] = existing
					continue
				}
				byGroup[g][e.Binding] = e
			}
		}
	}

	merged := make(map[int]wgpu.BindGroupLayoutDescriptor, len(byGroup))
	for g, entries := range byGroup {
		list := make([]wgpu.BindGroupLayoutEntry, 0, len(entries))
		for _, e := range entries {
			list = append(list, e)
		}
		sort.Slice(list, func(i, j int) bool { return list[i].Binding < list[j].Binding })
		merged[g] = wgpu.BindGroupLayoutDescriptor{Entries: list}
	}
	return merged
}
