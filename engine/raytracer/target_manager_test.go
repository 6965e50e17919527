package raytracer

import (
	"errors"
	"testing"
)

func TestDispatchSize(t *testing.T) {
	tests := []struct {
		name      string
		w, h      int
		groupSize uint32
		want      [3]uint32
	}{
		{"full hd", 1920, 1080, 8, [3]uint32{240, 135, 1}},
		{"one past a group", 1921, 1080, 8, [3]uint32{241, 135, 1}},
		{"single pixel", 1, 1, 8, [3]uint32{1, 1, 1}},
		{"svga", 800, 600, 8, [3]uint32{100, 75, 1}},
		{"larger group", 1920, 1080, 16, [3]uint32{120, 68, 1}},
		{"zero width", 0, 1080, 8, [3]uint32{0, 0, 0}},
		{"negative height", 1920, -1, 8, [3]uint32{0, 0, 0}},
		{"zero group", 1920, 1080, 0, [3]uint32{0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DispatchSize(tt.w, tt.h, tt.groupSize); got != tt.want {
				t.Errorf("DispatchSize(%d, %d, %d) = %v, want %v", tt.w, tt.h, tt.groupSize, got, tt.want)
			}
		})
	}
}

func TestResizeFreshManagerAndReuse(t *testing.T) {
	sizes := [][2]int{{1, 1}, {7, 9}, {800, 600}, {1920, 1080}, {4096, 2160}}
	for _, s := range sizes {
		alloc := &fakeAllocator{}
		m := NewTargetManager(alloc, 8)

		first, err := m.Resize(s[0], s[1])
		if err != nil {
			t.Fatalf("Resize(%d, %d): %v", s[0], s[1], err)
		}
		if first.Width() != s[0] || first.Height() != s[1] {
			t.Fatalf("target = %dx%d, want %dx%d", first.Width(), first.Height(), s[0], s[1])
		}

		second, err := m.Resize(s[0], s[1])
		if err != nil {
			t.Fatalf("second Resize(%d, %d): %v", s[0], s[1], err)
		}
		if second != first {
			t.Fatalf("same size returned a new target for %dx%d", s[0], s[1])
		}
		if alloc.allocs != 1 || alloc.releases != 0 {
			t.Fatalf("%dx%d: allocs=%d releases=%d, want 1 and 0", s[0], s[1], alloc.allocs, alloc.releases)
		}
	}
}

func TestResizeChangeReleasesBeforeAllocating(t *testing.T) {
	pairs := [][4]int{
		{800, 600, 1920, 1080},
		{1920, 1080, 1920, 1081},
		{640, 480, 480, 640},
		{1, 2, 2, 1},
	}
	for _, p := range pairs {
		alloc := &fakeAllocator{}
		m := NewTargetManager(alloc, 8)
		if _, err := m.Resize(p[0], p[1]); err != nil {
			t.Fatal(err)
		}
		before := alloc.allocs

		got, err := m.Resize(p[2], p[3])
		if err != nil {
			t.Fatal(err)
		}
		if alloc.allocs-before != 1 || alloc.releases != 1 {
			t.Fatalf("%v: allocs=%d releases=%d, want one of each", p, alloc.allocs-before, alloc.releases)
		}
		if alloc.overlap {
			t.Fatalf("%v: two render targets were live at once", p)
		}
		if got.Width() != p[2] || got.Height() != p[3] {
			t.Fatalf("%v: final target %dx%d", p, got.Width(), got.Height())
		}
		if m.Target() != got {
			t.Fatal("Target() does not return the resized target")
		}
	}
}

func TestRenderSkipsDegenerateViewport(t *testing.T) {
	alloc := &fakeAllocator{}
	kernel := &fakeKernel{}
	presenter := &fakePresenter{}
	m := NewTargetManager(alloc, 8)

	if _, err := m.Render(640, 480, kernel, presenter); err != nil {
		t.Fatal(err)
	}
	kept := m.Target()

	for _, vp := range [][2]int{{0, 480}, {640, 0}, {0, 0}, {-5, 480}, {640, -1}} {
		stats, err := m.Render(vp[0], vp[1], kernel, presenter)
		if err != nil {
			t.Fatalf("%v: %v", vp, err)
		}
		if !stats.Skipped {
			t.Fatalf("%v: frame not marked skipped", vp)
		}
		if stats.Groups != [3]uint32{} {
			t.Fatalf("%v: groups = %v on skipped frame", vp, stats.Groups)
		}
	}

	if len(kernel.dispatches) != 1 || len(presenter.blits) != 1 {
		t.Fatalf("dispatches=%d blits=%d, want 1 each", len(kernel.dispatches), len(presenter.blits))
	}
	if alloc.allocs != 1 || alloc.releases != 0 {
		t.Fatalf("allocs=%d releases=%d after skipped frames", alloc.allocs, alloc.releases)
	}
	if m.Target() != kept {
		t.Fatal("skipped frames replaced the render target")
	}
}

func TestResizeRejectsDegenerateSize(t *testing.T) {
	alloc := &fakeAllocator{}
	m := NewTargetManager(alloc, 8)
	if _, err := m.Resize(0, 10); !errors.Is(err, ErrInvalidViewport) {
		t.Fatalf("Resize(0, 10) error = %v, want ErrInvalidViewport", err)
	}
	if alloc.allocs != 0 {
		t.Fatal("degenerate Resize allocated")
	}
}

func TestViewportGrowsMidRun(t *testing.T) {
	alloc := &fakeAllocator{}
	kernel := &fakeKernel{}
	presenter := &fakePresenter{}
	m := NewTargetManager(alloc, 8)

	for range 3 {
		if _, err := m.Render(800, 600, kernel, presenter); err != nil {
			t.Fatal(err)
		}
	}
	allocsBefore, releasesBefore := alloc.allocs, alloc.releases

	stats, err := m.Render(1920, 1080, kernel, presenter)
	if err != nil {
		t.Fatal(err)
	}
	if !stats.Allocated {
		t.Fatal("resize frame not marked allocated")
	}
	if alloc.allocs-allocsBefore != 1 || alloc.releases-releasesBefore != 1 {
		t.Fatalf("resize: allocs=%d releases=%d, want 1 and 1",
			alloc.allocs-allocsBefore, alloc.releases-releasesBefore)
	}
	// the kernel saw the new target on the resize frame itself
	if last := kernel.bound[len(kernel.bound)-1]; last.Width() != 1920 || last.Height() != 1080 {
		t.Fatalf("dispatch bound %dx%d", last.Width(), last.Height())
	}

	allocsBefore = alloc.allocs
	for range 5 {
		stats, err := m.Render(1920, 1080, kernel, presenter)
		if err != nil {
			t.Fatal(err)
		}
		if stats.Allocated {
			t.Fatal("steady frame marked allocated")
		}
	}
	if alloc.allocs != allocsBefore {
		t.Fatalf("steady frames allocated %d targets", alloc.allocs-allocsBefore)
	}
	if alloc.overlap {
		t.Fatal("two render targets were live at once")
	}
}

func TestConsecutiveFramesDispatchSameGrid(t *testing.T) {
	kernel := &fakeKernel{}
	m := NewTargetManager(&fakeAllocator{}, 8)
	for range 2 {
		if _, err := m.Render(1920, 1080, kernel, &fakePresenter{}); err != nil {
			t.Fatal(err)
		}
	}
	want := [3]uint32{240, 135, 1}
	if len(kernel.dispatches) != 2 || kernel.dispatches[0] != want || kernel.dispatches[1] != want {
		t.Fatalf("dispatches = %v, want two of %v", kernel.dispatches, want)
	}
}

func TestAllocationFailureDropsFrame(t *testing.T) {
	oom := errors.New("out of memory")
	alloc := &fakeAllocator{}
	kernel := &fakeKernel{}
	presenter := &fakePresenter{}
	m := NewTargetManager(alloc, 8)

	if _, err := m.Render(800, 600, kernel, presenter); err != nil {
		t.Fatal(err)
	}
	alloc.fail = oom
	if _, err := m.Render(1920, 1080, kernel, presenter); !errors.Is(err, oom) {
		t.Fatalf("error = %v, want %v", err, oom)
	}
	if m.Target() != nil {
		t.Fatal("failed resize left a target behind")
	}
	if alloc.live != 0 {
		t.Fatalf("%d targets live after failed resize", alloc.live)
	}
	if len(kernel.dispatches) != 1 || len(presenter.blits) != 1 {
		t.Fatal("failed frame reached dispatch or present")
	}

	// no retry within the frame, the next frame starts fresh
	alloc.fail = nil
	if _, err := m.Render(1920, 1080, kernel, presenter); err != nil {
		t.Fatal(err)
	}
	if got := m.Target(); got == nil || got.Width() != 1920 {
		t.Fatal("recovery frame did not allocate")
	}
}

func TestDispatchErrors(t *testing.T) {
	m := NewTargetManager(&fakeAllocator{}, 0)
	if m.ThreadGroupSize() != DefaultThreadGroupSize {
		t.Fatalf("group size = %d, want default", m.ThreadGroupSize())
	}
	target, err := m.Resize(16, 16)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Dispatch(nil, target); !errors.Is(err, ErrNoKernel) {
		t.Fatalf("nil kernel error = %v", err)
	}
	boom := errors.New("device lost")
	if _, err := m.Dispatch(&fakeKernel{fail: boom}, target); !errors.Is(err, boom) {
		t.Fatalf("dispatch error = %v", err)
	}
}

func TestReleaseDropsTarget(t *testing.T) {
	alloc := &fakeAllocator{}
	m := NewTargetManager(alloc, 8)
	if _, err := m.Resize(32, 32); err != nil {
		t.Fatal(err)
	}
	m.Release()
	m.Release()
	if m.Target() != nil || alloc.releases != 1 {
		t.Fatalf("target=%v releases=%d", m.Target(), alloc.releases)
	}
	if _, err := m.Resize(32, 32); err != nil || alloc.allocs != 2 {
		t.Fatalf("Resize after Release: err=%v allocs=%d", err, alloc.allocs)
	}
}
