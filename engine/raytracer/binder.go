package raytracer

import (
	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
)

// Binding names shared with the kernel WGSL. The kernel must declare each of them in @group(0).
const (
	BindingCameraToWorld     = "_CameraToWorldMat"
	BindingInverseProjection = "_CameraInvProjMat"
	BindingTime              = "_Time"
	BindingSky               = "_SkyboxTexture"
	BindingSkySampler        = "_SkyboxSampler"
	BindingTarget            = "Target"
)

// RequiredBindings lists every binding name a kernel must declare.
var RequiredBindings = []string{
	BindingTarget,
	BindingCameraToWorld,
	BindingInverseProjection,
	BindingTime,
	BindingSky,
	BindingSkySampler,
}

// ParameterBlock is the kernel's named input state. Every value is overwritten each frame.
type ParameterBlock interface {
	// SetMatrix sets a mat4x4<f32> binding from a column-major matrix.
	SetMatrix(name string, m [16]float32)

	// SetFloat sets an f32 binding.
	SetFloat(name string, v float32)

	// SetTexture sets a sampled texture binding. A nil texture leaves the binding unchanged.
	SetTexture(name string, tex renderer.Texture)
}

// CameraSource supplies the two camera matrices the kernel turns pixels into rays with.
// camera.Camera satisfies it.
type CameraSource interface {
	// CameraToWorldMatrix returns the camera-to-world transform (column-major).
	CameraToWorldMatrix() [16]float32

	// InverseProjectionMatrix returns the inverse projection (column-major).
	InverseProjectionMatrix() [16]float32
}

// ParameterBinder writes the per-frame kernel inputs: both camera matrices, a fresh seed from
// its SeedSource and the sky texture.
type ParameterBinder struct {
	seeds SeedSource
}

// NewParameterBinder creates a ParameterBinder drawing one seed per Bind from seeds.
//
// Parameters:
//   - seeds: the per-frame seed source
//
// Returns:
//   - *ParameterBinder: the binder
func NewParameterBinder(seeds SeedSource) *ParameterBinder {
	return &ParameterBinder{seeds: seeds}
}

// Bind writes the frame's parameters into block. A nil block is a no-op, and a nil camera
// leaves the matrices from the previous frame in place.
//
// Parameters:
//   - block: the kernel parameter block
//   - cam: the camera to read the matrices from
//   - sky: the sky texture, or nil to keep the current one
func (b *ParameterBinder) Bind(block ParameterBlock, cam CameraSource, sky renderer.Texture) {
	if block == nil {
		common.Logger().Debug("parameter bind skipped, no kernel parameter block")
		return
	}
	if cam != nil {
		block.SetMatrix(BindingCameraToWorld, cam.CameraToWorldMatrix())
		block.SetMatrix(BindingInverseProjection, cam.InverseProjectionMatrix())
	}
	block.SetFloat(BindingTime, b.seeds.Next())
	block.SetTexture(BindingSky, sky)
}
