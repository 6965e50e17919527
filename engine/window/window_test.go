package window

import "testing"

func TestFramebufferSizeNotifiesResize(t *testing.T) {
	w := &engineWindow{}
	var gotW, gotH int
	calls := 0
	w.SetResizeCallback(func(width, height int) {
		gotW, gotH = width, height
		calls++
	})

	w.setFramebufferSize(1920, 1080)
	if w.Width() != 1920 || w.Height() != 1080 {
		t.Fatalf("size = %dx%d, want 1920x1080", w.Width(), w.Height())
	}
	if calls != 1 || gotW != 1920 || gotH != 1080 {
		t.Fatalf("resize callback got %dx%d after %d calls", gotW, gotH, calls)
	}

	// minimized
	w.setFramebufferSize(0, 0)
	if w.Width() != 0 || w.Height() != 0 {
		t.Fatalf("minimized size = %dx%d, want 0x0", w.Width(), w.Height())
	}
}

func TestUninitializedWindow(t *testing.T) {
	w := &engineWindow{}
	if w.IsRunning() {
		t.Error("IsRunning on uninitialized window = true")
	}
	if w.SurfaceDescriptor() != nil {
		t.Error("SurfaceDescriptor on uninitialized window != nil")
	}
	if err := w.Close(); err == nil {
		t.Error("Close on uninitialized window returned nil error")
	}
}

func TestBuilderOptions(t *testing.T) {
	w := &engineWindow{}
	for _, opt := range []WindowBuilderOption{
		WithTitle("trace"),
		WithSize(800, 600),
		WithMinSize(100, 50),
		WithMaxSize(-1, 4000),
	} {
		opt(w)
	}
	if w.title != "trace" || w.Width() != 800 || w.Height() != 600 {
		t.Fatalf("title/size = %q %dx%d", w.title, w.Width(), w.Height())
	}
	if w.minWidth != 100 || w.minHeight != 50 || w.maxWidth != -1 || w.maxHeight != 4000 {
		t.Fatalf("limits = %d %d %d %d", w.minWidth, w.minHeight, w.maxWidth, w.maxHeight)
	}
	if glfwSizeLimit(-1) >= 0 {
		t.Error("negative limit should map to DontCare")
	}
}

func TestRequestCloseStopsMessageLoop(t *testing.T) {
	w := &engineWindow{}
	w.RequestClose()
	if !w.closeRequested.Load() {
		t.Fatal("RequestClose did not set the flag")
	}
	// returns at once: the window is uninitialized and close was requested
	w.ProcessMessages()
}
