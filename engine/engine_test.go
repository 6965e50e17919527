package engine

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/engine/profiler"
	"github.com/Carmen-Shannon/oxy-trace/engine/raytracer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

type fakeWindow struct {
	width, height  atomic.Int32
	onResize       func(width, height int)
	title          atomic.Pointer[string]
	closeRequested atomic.Bool
}

var _ window.Window = &fakeWindow{}

func newFakeWindow(w, h int) *fakeWindow {
	fw := &fakeWindow{}
	fw.width.Store(int32(w))
	fw.height.Store(int32(h))
	return fw
}

func (w *fakeWindow) resize(width, height int) {
	w.width.Store(int32(width))
	w.height.Store(int32(height))
	if w.onResize != nil {
		w.onResize(width, height)
	}
}

func (w *fakeWindow) SetUpdateCallback(func())                     {}
func (w *fakeWindow) SetResizeCallback(cb func(width, height int)) { w.onResize = cb }
func (w *fakeWindow) SetTitle(title string)                        { w.title.Store(&title) }
func (w *fakeWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor   { return nil }
func (w *fakeWindow) IsRunning() bool                              { return !w.closeRequested.Load() }
func (w *fakeWindow) RequestClose()                                { w.closeRequested.Store(true) }
func (w *fakeWindow) Close() error                                 { return nil }
func (w *fakeWindow) Width() int                                   { return int(w.width.Load()) }
func (w *fakeWindow) Height() int                                  { return int(w.height.Load()) }

func (w *fakeWindow) ProcessMessages() {
	for w.IsRunning() {
		time.Sleep(time.Millisecond)
	}
}

type fakeSurface struct {
	sizes [][2]int
}

func (s *fakeSurface) Resize(width, height int) {
	s.sizes = append(s.sizes, [2]int{width, height})
}

type fakeLayer struct {
	name     string
	order    *[]string
	inactive bool
	err      error
	renders  [][2]int
	resizes  [][2]int
}

func (l *fakeLayer) Render(_ float32, width, height int) error {
	if l.order != nil {
		*l.order = append(*l.order, l.name)
	}
	l.renders = append(l.renders, [2]int{width, height})
	return l.err
}

func (l *fakeLayer) Resize(width, height int) {
	l.resizes = append(l.resizes, [2]int{width, height})
}

func (l *fakeLayer) Active() bool { return !l.inactive }

func TestRenderFrameOrdersLayersByKey(t *testing.T) {
	var order []string
	top := &fakeLayer{name: "top", order: &order}
	bottom := &fakeLayer{name: "bottom", order: &order}
	hidden := &fakeLayer{name: "hidden", order: &order, inactive: true}
	failing := &fakeLayer{name: "failing", order: &order, err: errors.New("boom")}

	e := NewEngine(
		WithWindow(newFakeWindow(640, 480)),
		WithLayer(10, top),
		WithLayer(-1, bottom),
		WithLayer(5, hidden),
		WithLayer(7, failing),
	).(*engine)

	e.renderFrame(0.016)

	want := []string{"bottom", "failing", "top"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
	if len(hidden.resizes) != 1 {
		t.Errorf("inactive layer should still track size, got %v", hidden.resizes)
	}
}

func TestRenderFrameAppliesResizeOnce(t *testing.T) {
	w := newFakeWindow(800, 600)
	s := &fakeSurface{}
	l := &fakeLayer{}
	e := NewEngine(WithWindow(w), WithSurface(s), WithLayer(0, l)).(*engine)

	e.renderFrame(0)
	e.renderFrame(0)
	w.resize(1920, 1080)
	e.renderFrame(0)
	e.renderFrame(0)

	wantSizes := [][2]int{{800, 600}, {1920, 1080}}
	if len(s.sizes) != 2 || s.sizes[0] != wantSizes[0] || s.sizes[1] != wantSizes[1] {
		t.Fatalf("surface resizes = %v, want %v", s.sizes, wantSizes)
	}
	if len(l.resizes) != 2 || l.resizes[1] != wantSizes[1] {
		t.Fatalf("layer resizes = %v", l.resizes)
	}
	if len(l.renders) != 4 || l.renders[3] != [2]int{1920, 1080} {
		t.Fatalf("renders = %v", l.renders)
	}
}

func TestRenderFrameMinimized(t *testing.T) {
	w := newFakeWindow(800, 600)
	s := &fakeSurface{}
	l := &fakeLayer{}
	e := NewEngine(WithWindow(w), WithSurface(s), WithLayer(0, l)).(*engine)
	e.renderFrame(0)

	w.resize(0, 0)
	e.renderFrame(0)
	if len(s.sizes) != 1 || len(l.resizes) != 1 {
		t.Fatalf("zero size reached resize: surface %v layer %v", s.sizes, l.resizes)
	}
	if got := l.renders[1]; got != [2]int{0, 0} {
		t.Fatalf("minimized frame rendered at %v, want 0x0 passed through", got)
	}

	// restored to the same size, nothing to reconfigure
	w.resize(800, 600)
	e.renderFrame(0)
	if len(s.sizes) != 1 {
		t.Fatalf("restore to same size reconfigured surface: %v", s.sizes)
	}
}

func TestAddLayerReceivesCurrentSize(t *testing.T) {
	w := newFakeWindow(320, 240)
	e := NewEngine(WithWindow(w), WithLayer(0, &fakeLayer{})).(*engine)
	e.renderFrame(0)

	late := &fakeLayer{}
	e.AddLayer(1, late)
	e.renderFrame(0)
	if len(late.resizes) != 1 || late.resizes[0] != [2]int{320, 240} {
		t.Fatalf("late layer resizes = %v", late.resizes)
	}
	if e.Layer(1) != late {
		t.Fatal("Layer(1) did not return the added layer")
	}
	e.RemoveLayer(1)
	if e.Layer(1) != nil {
		t.Fatal("layer not removed")
	}
}

func TestProfilerUpdatesTitle(t *testing.T) {
	w := newFakeWindow(100, 100)
	e := NewEngine(WithWindow(w), WithProfiling(true), WithTitle("trace")).(*engine)
	e.profiler = profiler.NewProfiler(time.Nanosecond)
	time.Sleep(time.Millisecond)
	e.renderFrame(0)
	title := w.title.Load()
	if title == nil || !strings.HasPrefix(*title, "trace | ") {
		t.Fatalf("title = %v, want profiler stats", title)
	}

	e.DisableProfiler()
	w.title.Store(nil)
	time.Sleep(time.Millisecond)
	e.renderFrame(0)
	if w.title.Load() != nil {
		t.Fatal("title updated with profiling disabled")
	}
}

func TestRunQuitAndPanicRecovery(t *testing.T) {
	var once sync.Once
	w := newFakeWindow(64, 64)
	e := NewEngine(WithWindow(w), WithRenderFrameLimit(1000), WithTickRate(1000))
	e.SetRenderCallback(func(float32) {
		once.Do(func() { panic("frame exploded") })
	})

	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		e.Quit()
		t.Fatal("engine did not stop after a render panic")
	}
	if !w.closeRequested.Load() {
		t.Fatal("panic did not request window close")
	}
}

func TestTickCallbackRuns(t *testing.T) {
	ticks := make(chan float32, 1)
	e := NewEngine(WithTickRate(500))
	e.SetTickCallback(func(dt float32) {
		select {
		case ticks <- dt:
		default:
		}
	})
	go e.Run()
	defer func() {
		e.Quit()
		e.Wait()
	}()

	select {
	case dt := <-ticks:
		if dt <= 0 {
			t.Fatalf("dt = %v", dt)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no tick")
	}
	e.SetTickRate(250)
}

func TestFrameDuration(t *testing.T) {
	if frameDuration(0) != 0 || frameDuration(-5) != 0 {
		t.Error("non-positive fps should uncap")
	}
	if got := frameDuration(50); got != 20*time.Millisecond {
		t.Errorf("frameDuration(50) = %v", got)
	}
}

type stubRaytracer struct {
	viewports []raytracer.Viewport
}

func (r *stubRaytracer) Render(_ raytracer.CameraSource, vp raytracer.Viewport) (raytracer.FrameStats, error) {
	r.viewports = append(r.viewports, vp)
	return raytracer.FrameStats{Width: vp.Width, Height: vp.Height}, nil
}
func (r *stubRaytracer) SetSky(renderer.Texture)       {}
func (r *stubRaytracer) Target() renderer.RenderTarget { return nil }
func (r *stubRaytracer) ThreadGroupSize() uint32       { return raytracer.DefaultThreadGroupSize }
func (r *stubRaytracer) Release()                      {}

type stubCamera struct {
	viewports [][2]int
}

func (c *stubCamera) CameraToWorldMatrix() [16]float32     { return [16]float32{} }
func (c *stubCamera) InverseProjectionMatrix() [16]float32 { return [16]float32{} }

func (c *stubCamera) SetViewport(width, height int) {
	c.viewports = append(c.viewports, [2]int{width, height})
}

func TestRaytraceLayer(t *testing.T) {
	rt := &stubRaytracer{}
	cam := &stubCamera{}
	l := NewRaytraceLayer(rt, cam)
	if !l.Active() {
		t.Fatal("new layer should be active")
	}

	l.Resize(1280, 720)
	if err := l.Render(0, 1280, 720); err != nil {
		t.Fatal(err)
	}
	if len(cam.viewports) != 1 || cam.viewports[0] != [2]int{1280, 720} {
		t.Fatalf("camera viewports = %v", cam.viewports)
	}
	if len(rt.viewports) != 1 || rt.viewports[0] != (raytracer.Viewport{Width: 1280, Height: 720}) {
		t.Fatalf("raytracer viewports = %v", rt.viewports)
	}

	l.SetActive(false)
	if l.Active() {
		t.Fatal("SetActive(false) ignored")
	}
	if l.Raytracer() != rt {
		t.Fatal("Raytracer() returned a different value")
	}
}
