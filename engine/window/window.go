package window

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window provides a platform window that hosts the WebGPU swapchain.
//
// Width and Height report framebuffer pixels, which differ from screen coordinates on high-DPI
// displays and are both 0 while the window is minimized.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer size changes.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetTitle updates the title bar text. Safe to call from any goroutine.
	//
	// Parameters:
	//   - title: the new window title
	SetTitle(title string)

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor created by the wgpuglfw bridge,
	// or nil if the window is not initialized.
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true until the window is closed or Escape is pressed.
	IsRunning() bool

	// RequestClose asks the message loop to return. Safe to call from any goroutine.
	RequestClose()

	// Close closes the window and releases platform resources. Must be called on the
	// goroutine that created the window.
	//
	// Returns:
	//   - error: error if the window was never initialized
	Close() error

	// ProcessMessages runs the window message loop on the calling (main) goroutine.
	// Blocks until the window is closed. Calls the update callback each iteration.
	ProcessMessages()

	// Width returns the current framebuffer width in pixels.
	Width() int

	// Height returns the current framebuffer height in pixels.
	Height() int
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	title string

	minWidth  int
	minHeight int
	maxWidth  int
	maxHeight int

	// framebuffer size, read by the render goroutine
	width  atomic.Int32
	height atomic.Int32

	// pendingTitle is applied on the message loop goroutine
	pendingTitle   atomic.Pointer[string]
	closeRequested atomic.Bool

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	onUpdate func()
	onResize func(width, height int)
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a new Window. Platform failures panic.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the spawned window
func NewWindow(options ...WindowBuilderOption) Window {
	w := &engineWindow{
		title:     "oxy-trace",
		minWidth:  320,
		minHeight: 200,
		maxWidth:  -1,
		maxHeight: -1,
	}
	w.width.Store(1280)
	w.height.Store(720)
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		panic(fmt.Sprintf("failed to create platform window: %v", err))
	}
	return w
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetTitle(title string) {
	w.pendingTitle.Store(&title)
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) RequestClose() {
	w.closeRequested.Store(true)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() && !w.closeRequested.Load() {
		if ok := platformProcessMessages(w); !ok {
			break
		}
		if t := w.pendingTitle.Swap(nil); t != nil {
			platformSetTitle(w, *t)
		}
		if w.onUpdate != nil {
			w.onUpdate()
		}
		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	return int(w.width.Load())
}

func (w *engineWindow) Height() int {
	return int(w.height.Load())
}

// setFramebufferSize stores the new size and notifies the resize callback.
func (w *engineWindow) setFramebufferSize(width, height int) {
	w.width.Store(int32(width))
	w.height.Store(int32(height))
	if w.onResize != nil {
		w.onResize(width, height)
	}
}
