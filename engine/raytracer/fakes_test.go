package raytracer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

type fakeTarget struct {
	owner    *fakeAllocator
	id       int
	w, h     int
	view     *wgpu.TextureView
	released bool
}

func (t *fakeTarget) Width() int                 { return t.w }
func (t *fakeTarget) Height() int                { return t.h }
func (t *fakeTarget) Format() wgpu.TextureFormat { return renderer.RenderTargetFormat }
func (t *fakeTarget) GPUTexture() *wgpu.Texture  { return nil }

func (t *fakeTarget) View() *wgpu.TextureView {
	if t.released {
		return nil
	}
	return t.view
}

func (t *fakeTarget) Release() {
	if t.released {
		return
	}
	t.released = true
	if t.owner != nil {
		t.owner.releases++
		t.owner.live--
	}
}

// fakeAllocator counts allocations and releases and records any moment two targets were live.
type fakeAllocator struct {
	allocs   int
	releases int
	live     int
	overlap  bool
	fail     error
}

func (a *fakeAllocator) CreateRenderTarget(width, height int) (renderer.RenderTarget, error) {
	if a.fail != nil {
		return nil, a.fail
	}
	if a.live > 0 {
		a.overlap = true
	}
	a.allocs++
	a.live++
	return &fakeTarget{owner: a, id: a.allocs, w: width, h: height, view: &wgpu.TextureView{}}, nil
}

type fakeKernel struct {
	bound      []renderer.RenderTarget
	dispatches [][3]uint32
	fail       error
}

func (k *fakeKernel) BindTarget(target renderer.RenderTarget) error {
	k.bound = append(k.bound, target)
	return nil
}

func (k *fakeKernel) Dispatch(groups [3]uint32) error {
	if k.fail != nil {
		return k.fail
	}
	k.dispatches = append(k.dispatches, groups)
	return nil
}

type fakePresenter struct {
	blits []renderer.Texture
}

func (p *fakePresenter) Blit(target renderer.Texture) error {
	if target == nil || target.View() == nil {
		return errors.New("blit of released texture")
	}
	p.blits = append(p.blits, target)
	return nil
}

type fakeCamera struct {
	toWorld [16]float32
	invProj [16]float32
}

func (c fakeCamera) CameraToWorldMatrix() [16]float32     { return c.toWorld }
func (c fakeCamera) InverseProjectionMatrix() [16]float32 { return c.invProj }

type fakeBlock struct {
	matrices map[string][16]float32
	floats   map[string]float32
	textures map[string]renderer.Texture
	order    []string
}

func newFakeBlock() *fakeBlock {
	return &fakeBlock{
		matrices: make(map[string][16]float32),
		floats:   make(map[string]float32),
		textures: make(map[string]renderer.Texture),
	}
}

func (b *fakeBlock) SetMatrix(name string, m [16]float32) {
	b.matrices[name] = m
	b.order = append(b.order, name)
}

func (b *fakeBlock) SetFloat(name string, v float32) {
	b.floats[name] = v
	b.order = append(b.order, name)
}

func (b *fakeBlock) SetTexture(name string, tex renderer.Texture) {
	b.textures[name] = tex
	b.order = append(b.order, name)
}

// fakeHost records what a kernel asks of the renderer.
type fakeHost struct {
	registered   []string
	bindGroups   int
	samplers     []int
	writes       [][]bind_group_provider.BufferWrite
	dispatches   [][3]uint32
	frameOpen    bool
	dispatchFail error
}

func (h *fakeHost) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	for _, p := range pipelines {
		h.registered = append(h.registered, p.PipelineKey())
	}
	return nil
}

func (h *fakeHost) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, _ map[int]wgpu.BufferUsage, sizes map[int]uint64) error {
	for _, e := range descriptor.Entries {
		if e.Texture.SampleType != wgpu.TextureSampleTypeUndefined || e.StorageTexture.Access != wgpu.StorageTextureAccessUndefined {
			if provider.TextureView(int(e.Binding)) == nil {
				return fmt.Errorf("binding %d has no view", e.Binding)
			}
		}
	}
	h.bindGroups++
	return nil
}

func (h *fakeHost) InitSampler(_ bind_group_provider.BindGroupProvider, binding int, _ common.SamplerStagingData) error {
	h.samplers = append(h.samplers, binding)
	return nil
}

func (h *fakeHost) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	h.writes = append(h.writes, writes)
}

func (h *fakeHost) BeginComputeFrame() error {
	if h.frameOpen {
		return errors.New("compute frame already open")
	}
	h.frameOpen = true
	return nil
}

func (h *fakeHost) DispatchCompute(_ string, _ bind_group_provider.BindGroupProvider, groups [3]uint32) error {
	if h.dispatchFail != nil {
		return h.dispatchFail
	}
	h.dispatches = append(h.dispatches, groups)
	return nil
}

func (h *fakeHost) EndComputeFrame() error {
	h.frameOpen = false
	return nil
}

type fakeTexture struct {
	view *wgpu.TextureView
}

func (t *fakeTexture) Width() int                 { return 1 }
func (t *fakeTexture) Height() int                { return 1 }
func (t *fakeTexture) Format() wgpu.TextureFormat { return wgpu.TextureFormatRGBA8UnormSrgb }
func (t *fakeTexture) View() *wgpu.TextureView    { return t.view }
func (t *fakeTexture) Release()                   {}
