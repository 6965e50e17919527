package engine

import (
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-trace/engine/raytracer"
)

// ViewportCamera is the camera surface a raytrace layer drives.
type ViewportCamera interface {
	raytracer.CameraSource
	SetViewport(width, height int)
}

type raytraceLayer struct {
	rt     raytracer.Raytracer
	cam    ViewportCamera
	active atomic.Bool
}

// RaytraceLayer is a Layer that renders a Raytracer from a camera.
type RaytraceLayer interface {
	Layer

	// SetActive enables or disables rendering of the layer.
	SetActive(active bool)

	// Raytracer returns the wrapped raytracer.
	Raytracer() raytracer.Raytracer
}

var _ RaytraceLayer = &raytraceLayer{}

// NewRaytraceLayer wraps a Raytracer and the camera it renders from. The layer starts active.
//
// Parameters:
//   - rt: the raytracer to drive
//   - cam: the camera whose aspect follows the framebuffer
//
// Returns:
//   - RaytraceLayer: the layer
func NewRaytraceLayer(rt raytracer.Raytracer, cam ViewportCamera) RaytraceLayer {
	l := &raytraceLayer{rt: rt, cam: cam}
	l.active.Store(true)
	return l
}

func (l *raytraceLayer) Render(_ float32, width, height int) error {
	_, err := l.rt.Render(l.cam, raytracer.Viewport{Width: width, Height: height})
	return err
}

func (l *raytraceLayer) Resize(width, height int) {
	l.cam.SetViewport(width, height)
}

func (l *raytraceLayer) Active() bool {
	return l.active.Load()
}

func (l *raytraceLayer) SetActive(active bool) {
	l.active.Store(active)
}

func (l *raytraceLayer) Raytracer() raytracer.Raytracer {
	return l.rt
}
