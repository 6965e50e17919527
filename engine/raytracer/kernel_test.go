package raytracer

import (
	"errors"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

func referenceKernel() shader.Shader {
	return shader.NewShaderFromSource("raytrace", shader.ShaderTypeCompute, KernelSource)
}

func TestReferenceKernelPassesCheck(t *testing.T) {
	k := referenceKernel()
	if err := CheckKernel(k, DefaultThreadGroupSize); err != nil {
		t.Fatal(err)
	}
	if k.EntryPoint() != "CSMain" {
		t.Fatalf("entry point = %q", k.EntryPoint())
	}
}

func TestCheckKernelRejects(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
		group    uint32
		target   error
	}{
		{"missing time", "var<uniform> _Time", "var<uniform> _Seed", 8, ErrMissingBinding},
		{"missing sky", "_SkyboxTexture", "_Env", 8, ErrMissingBinding},
		{"kernel declares 16", "@workgroup_size(8, 8, 1)", "@workgroup_size(16, 16, 1)", 8, ErrThreadGroupMismatch},
		{"dispatch uses 16", "", "", 16, ErrThreadGroupMismatch},
		{"8 bit target", "rgba32float", "rgba8unorm", 8, ErrFormatMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := KernelSource
			if tt.from != "" {
				src = strings.ReplaceAll(src, tt.from, tt.to)
			}
			k := shader.NewShaderFromSource("edited", shader.ShaderTypeCompute, src)
			if err := CheckKernel(k, tt.group); !errors.Is(err, tt.target) {
				t.Fatalf("CheckKernel error = %v, want %v", err, tt.target)
			}
		})
	}
}

func TestKernelParametersStageAndFlush(t *testing.T) {
	host := &fakeHost{}
	kp, err := newKernelParameters(host, referenceKernel())
	if err != nil {
		t.Fatal(err)
	}
	defer kp.Release()

	if len(host.registered) != 1 || host.registered[0] != "raytrace" {
		t.Fatalf("registered = %v", host.registered)
	}
	if len(host.samplers) != 1 {
		t.Fatalf("samplers = %v, want the sky sampler", host.samplers)
	}
	if size := kp.sizes[kp.bindings[BindingTime]]; size != 16 {
		t.Fatalf("_Time buffer size = %d, want 16", size)
	}
	if size := kp.sizes[kp.bindings[BindingCameraToWorld]]; size != 64 {
		t.Fatalf("matrix buffer size = %d, want 64", size)
	}

	sky := &fakeTexture{view: &wgpu.TextureView{}}
	target := &fakeTarget{w: 64, h: 64, view: &wgpu.TextureView{}}

	kp.SetMatrix(BindingCameraToWorld, [16]float32{1})
	kp.SetFloat(BindingTime, 0.1)
	kp.SetFloat(BindingTime, 0.2)
	kp.SetTexture(BindingSky, sky)
	kp.SetFloat("_Unknown", 1)
	if err := kp.BindTarget(target); err != nil {
		t.Fatal(err)
	}
	if err := kp.Dispatch([3]uint32{8, 8, 1}); err != nil {
		t.Fatal(err)
	}

	if host.bindGroups != 1 {
		t.Fatalf("bind groups built = %d, want 1", host.bindGroups)
	}
	if len(host.writes) != 1 || len(host.writes[0]) != 2 {
		t.Fatalf("writes = %v, want one batch of two", host.writes)
	}
	for _, w := range host.writes[0] {
		if w.Binding == kp.bindings[BindingTime] && len(w.Data) != 16 {
			t.Fatalf("_Time write is %d bytes, want 16", len(w.Data))
		}
	}
	if len(host.dispatches) != 1 || host.frameOpen {
		t.Fatalf("dispatches=%v frameOpen=%v", host.dispatches, host.frameOpen)
	}

	// same views: no rebuild, no staged writes left over
	kp.SetTexture(BindingSky, sky)
	if err := kp.BindTarget(target); err != nil {
		t.Fatal(err)
	}
	if err := kp.Dispatch([3]uint32{8, 8, 1}); err != nil {
		t.Fatal(err)
	}
	if host.bindGroups != 1 || len(host.writes) != 1 {
		t.Fatalf("bindGroups=%d writes=%d after unchanged frame", host.bindGroups, len(host.writes))
	}

	// a new target view rebuilds the bind group
	resized := &fakeTarget{w: 128, h: 128, view: &wgpu.TextureView{}}
	if err := kp.BindTarget(resized); err != nil {
		t.Fatal(err)
	}
	if err := kp.Dispatch([3]uint32{16, 16, 1}); err != nil {
		t.Fatal(err)
	}
	if host.bindGroups != 2 {
		t.Fatalf("bind groups built = %d after resize, want 2", host.bindGroups)
	}
	if kp.provider.TextureView(kp.bindings[BindingTarget]) != resized.view {
		t.Fatal("kernel does not bind the resized target view")
	}
}

func TestKernelParametersClosesFrameOnDispatchError(t *testing.T) {
	boom := errors.New("lost")
	host := &fakeHost{dispatchFail: boom}
	kp, err := newKernelParameters(host, referenceKernel())
	if err != nil {
		t.Fatal(err)
	}
	kp.SetTexture(BindingSky, &fakeTexture{view: &wgpu.TextureView{}})
	if err := kp.BindTarget(&fakeTarget{w: 8, h: 8, view: &wgpu.TextureView{}}); err != nil {
		t.Fatal(err)
	}
	if err := kp.Dispatch([3]uint32{1, 1, 1}); !errors.Is(err, boom) {
		t.Fatalf("error = %v", err)
	}
	if host.frameOpen {
		t.Fatal("compute frame left open")
	}
}

func TestKernelParametersRejectsReleasedTarget(t *testing.T) {
	kp, err := newKernelParameters(&fakeHost{}, referenceKernel())
	if err != nil {
		t.Fatal(err)
	}
	target := &fakeTarget{w: 8, h: 8, view: &wgpu.TextureView{}}
	target.Release()
	if err := kp.BindTarget(target); err == nil {
		t.Fatal("bound a released target")
	}
}
