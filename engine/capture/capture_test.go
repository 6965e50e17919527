package capture

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/engine/raytracer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
	"golang.org/x/image/webp"
)

type fakeTarget struct{ w, h int }

func (t *fakeTarget) Width() int                 { return t.w }
func (t *fakeTarget) Height() int                { return t.h }
func (t *fakeTarget) Format() wgpu.TextureFormat { return renderer.RenderTargetFormat }
func (t *fakeTarget) View() *wgpu.TextureView    { return nil }
func (t *fakeTarget) GPUTexture() *wgpu.Texture  { return nil }
func (t *fakeTarget) Release()                   {}

type fakeReader struct {
	mu     sync.Mutex
	reads  int
	pixels []float32
	err    error
}

func (r *fakeReader) ReadTarget(renderer.RenderTarget) ([]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	return r.pixels, r.err
}

func frameOf(w, h int, n uint64) raytracer.Frame {
	return raytracer.Frame{
		Stats:  raytracer.FrameStats{Frame: n, Width: w, Height: h},
		Target: &fakeTarget{w: w, h: h},
	}
}

func TestToNRGBA(t *testing.T) {
	pixels := []float32{
		0, 0.5, 1, 1,
		2, -1, 0.001, 0.5,
	}
	img, err := ToNRGBA(pixels, 2, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	want := [][4]uint8{{0, 188, 255, 255}, {255, 0, 3, 128}}
	for x, w := range want {
		got := img.NRGBAAt(x, 0)
		if [4]uint8{got.R, got.G, got.B, got.A} != w {
			t.Errorf("texel %d = %v, want %v", x, got, w)
		}
	}

	bright, _ := ToNRGBA([]float32{0.25, 0, 0, 1}, 1, 1, 4)
	if bright.NRGBAAt(0, 0).R != 255 {
		t.Errorf("exposure 4 on 0.25 = %d, want 255", bright.NRGBAAt(0, 0).R)
	}

	if _, err := ToNRGBA(pixels, 3, 1, 1); err == nil {
		t.Error("short pixel slice accepted")
	}
}

func TestCaptureWritesWebP(t *testing.T) {
	pixels := make([]float32, 4*2*4)
	for i := 0; i < len(pixels); i += 4 {
		pixels[i], pixels[i+3] = 1, 1
	}
	reader := &fakeReader{pixels: pixels}
	var results []Result
	var mu sync.Mutex
	c := NewCapturer(reader, WithWorkers(1), WithResultCallback(func(r Result) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}))

	// no request: no readback
	c.Observe(frameOf(4, 2, 1))
	if reader.reads != 0 {
		t.Fatal("frame read without a request")
	}

	dir := t.TempDir()
	a := filepath.Join(dir, "a.webp")
	b := filepath.Join(dir, "nested", "b.webp")
	c.Request(a)
	c.Request(b)
	if c.Pending() != 2 {
		t.Fatalf("pending = %d", c.Pending())
	}
	c.Observe(frameOf(4, 2, 2))
	c.Observe(frameOf(4, 2, 3))
	if err := c.Wait(); err != nil {
		t.Fatal(err)
	}

	if reader.reads != 1 {
		t.Fatalf("reads = %d, want one for both requests", reader.reads)
	}
	if len(results) != 2 || results[0].Frame != 2 || results[1].Frame != 2 {
		t.Fatalf("results = %+v", results)
	}
	for _, p := range []string{a, b} {
		f, err := os.Open(p)
		if err != nil {
			t.Fatal(err)
		}
		img, err := webp.Decode(f)
		f.Close()
		if err != nil {
			t.Fatalf("%s: %v", p, err)
		}
		if img.Bounds() != image.Rect(0, 0, 4, 2) {
			t.Fatalf("%s: bounds %v", p, img.Bounds())
		}
		r, g, _, _ := img.At(3, 1).RGBA()
		if r>>8 != 255 || g != 0 {
			t.Fatalf("%s: texel = %d %d", p, r>>8, g>>8)
		}
	}
}

func TestCaptureReadbackFailure(t *testing.T) {
	boom := errors.New("map failed")
	c := NewCapturer(&fakeReader{err: boom})
	c.Request(filepath.Join(t.TempDir(), "x.webp"))
	c.Observe(frameOf(2, 2, 1))
	if err := c.Wait(); !errors.Is(err, boom) {
		t.Fatalf("Wait error = %v, want %v", err, boom)
	}
	if err := c.Wait(); err != nil {
		t.Fatalf("errors not cleared: %v", err)
	}
}

func TestCaptureWaitsForTarget(t *testing.T) {
	reader := &fakeReader{pixels: make([]float32, 16)}
	c := NewCapturer(reader)
	c.Request(filepath.Join(t.TempDir(), "y.webp"))
	c.Observe(raytracer.Frame{})
	if c.Pending() != 1 || reader.reads != 0 {
		t.Fatalf("pending=%d reads=%d after frame without target", c.Pending(), reader.reads)
	}
	c.Observe(frameOf(2, 2, 5))
	if err := c.Wait(); err != nil {
		t.Fatal(err)
	}
}

func TestCaptureClose(t *testing.T) {
	boom := errors.New("lost device")
	tests := []struct {
		name   string
		reader *fakeReader
		want   error
	}{
		{"written", &fakeReader{pixels: make([]float32, 16)}, nil},
		{"readback failure", &fakeReader{err: boom}, boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "z.webp")
			c := NewCapturer(tt.reader)
			c.Request(path)
			c.Observe(frameOf(2, 2, 1))
			if err := c.Close(); !errors.Is(err, tt.want) {
				t.Fatalf("Close error = %v, want %v", err, tt.want)
			}
			if err := c.Close(); err != nil {
				t.Fatalf("second Close = %v", err)
			}
			if tt.want != nil {
				return
			}
			if _, err := os.Stat(path); err != nil {
				t.Fatalf("capture not written before Close returned: %v", err)
			}
		})
	}
}
