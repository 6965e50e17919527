package raytracer

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestBindWritesEveryParameter(t *testing.T) {
	cam := fakeCamera{}
	for i := range cam.toWorld {
		cam.toWorld[i] = float32(i)
		cam.invProj[i] = float32(-i)
	}
	sky := &fakeTexture{view: &wgpu.TextureView{}}
	block := newFakeBlock()

	NewParameterBinder(NewSequenceSeedSource(0.25)).Bind(block, cam, sky)

	if block.matrices[BindingCameraToWorld] != cam.toWorld {
		t.Error("camera-to-world not written")
	}
	if block.matrices[BindingInverseProjection] != cam.invProj {
		t.Error("inverse projection not written")
	}
	if block.floats[BindingTime] != 0.25 {
		t.Errorf("_Time = %v, want 0.25", block.floats[BindingTime])
	}
	if block.textures[BindingSky] != sky {
		t.Error("sky texture not written")
	}
	if len(block.order) != 4 {
		t.Errorf("%d writes, want 4", len(block.order))
	}
}

func TestBindDrawsFreshSeedEachFrame(t *testing.T) {
	binder := NewParameterBinder(NewSequenceSeedSource(0.1, 0.2, 0.3))
	block := newFakeBlock()
	var got []float32
	for range 4 {
		binder.Bind(block, fakeCamera{}, nil)
		got = append(got, block.floats[BindingTime])
	}
	want := []float32{0.1, 0.2, 0.3, 0.1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("seeds = %v, want %v", got, want)
		}
	}
}

func TestBindNilBlockIsNoop(t *testing.T) {
	seeds := NewSequenceSeedSource(0.5, 0.75)
	NewParameterBinder(seeds).Bind(nil, fakeCamera{}, nil)
	// the seed was not consumed
	if v := seeds.Next(); v != 0.5 {
		t.Fatalf("first seed = %v after no-op bind, want 0.5", v)
	}
}

func TestBindNilCameraKeepsMatrices(t *testing.T) {
	block := newFakeBlock()
	NewParameterBinder(NewSequenceSeedSource(0.5)).Bind(block, nil, nil)
	if len(block.matrices) != 0 {
		t.Fatalf("matrices written without a camera: %v", block.matrices)
	}
	if _, ok := block.floats[BindingTime]; !ok {
		t.Fatal("_Time not written")
	}
}

func TestSequenceSeedSourceWrapsIntoUnitRange(t *testing.T) {
	s := NewSequenceSeedSource(1.25, -0.25, 1, 0.5)
	want := []float32{0.25, 0.75, 0, 0.5, 0.25}
	for i, w := range want {
		if got := s.Next(); got != w {
			t.Fatalf("value %d = %v, want %v", i, got, w)
		}
	}
	if got := NewSequenceSeedSource().Next(); got != 0 {
		t.Fatalf("empty sequence = %v, want 0", got)
	}
}

func TestRandomSeedSource(t *testing.T) {
	a := NewRandomSeedSource(42)
	b := NewRandomSeedSource(42)
	for range 1000 {
		va, vb := a.Next(), b.Next()
		if va != vb {
			t.Fatal("same seed produced different sequences")
		}
		if va < 0 || va >= 1 {
			t.Fatalf("value %v outside [0, 1)", va)
		}
	}
}
