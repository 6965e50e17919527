package camera

import (
	"math"
	"sync"
)

// Controller supplies the camera's eye position and look-at target.
type Controller interface {
	// Position returns the eye position in world space.
	Position() (x, y, z float32)

	// Target returns the look-at point in world space.
	Target() (x, y, z float32)
}

// OrbitController circles a target at a fixed radius and elevation. Advance moves it around
// the target by its angular speed, so a tick loop can animate the view without user input.
type OrbitController interface {
	Controller

	// Advance rotates the eye around the target by speed*dt radians of azimuth.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	Advance(dt float32)

	// Azimuth returns the horizontal angle around the Y axis in radians.
	Azimuth() float32

	// SetAzimuth sets the horizontal angle.
	SetAzimuth(azimuth float32)

	// Elevation returns the angle above the horizontal plane in radians.
	Elevation() float32

	// SetElevation sets the elevation, clamped to just short of the poles.
	SetElevation(elevation float32)

	// Radius returns the distance from the target.
	Radius() float32

	// SetRadius sets the distance from the target; non-positive values are ignored.
	SetRadius(radius float32)
}

// orbitControllerImpl is the implementation of OrbitController.
type orbitControllerImpl struct {
	mu *sync.Mutex

	position [3]float32
	target   [3]float32

	radius    float32
	azimuth   float32
	elevation float32

	// radians per second
	speed float32
}

var _ OrbitController = &orbitControllerImpl{}

// maxElevation keeps the eye off the poles where LookAt degenerates against a +Y up vector.
const maxElevation = float32(math.Pi/2 - 0.01)

// NewOrbitController creates an OrbitController.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - OrbitController: the newly created controller
func NewOrbitController(options ...OrbitControllerOption) OrbitController {
	oc := &orbitControllerImpl{
		mu:        &sync.Mutex{},
		radius:    6.0,
		elevation: float32(math.Pi / 12),
	}
	for _, option := range options {
		option(oc)
	}
	oc.elevation = clampElevation(oc.elevation)
	oc.updatePosition()
	return oc
}

func clampElevation(e float32) float32 {
	return max(-maxElevation, min(maxElevation, e))
}

// updatePosition recomputes the eye from spherical coordinates. Caller must hold the mutex.
func (oc *orbitControllerImpl) updatePosition() {
	cosElev := float32(math.Cos(float64(oc.elevation)))
	sinElev := float32(math.Sin(float64(oc.elevation)))
	cosAzim := float32(math.Cos(float64(oc.azimuth)))
	sinAzim := float32(math.Sin(float64(oc.azimuth)))

	oc.position[0] = oc.target[0] + oc.radius*cosElev*sinAzim
	oc.position[1] = oc.target[1] + oc.radius*sinElev
	oc.position[2] = oc.target[2] + oc.radius*cosElev*cosAzim
}

func (oc *orbitControllerImpl) Position() (x, y, z float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.position[0], oc.position[1], oc.position[2]
}

func (oc *orbitControllerImpl) Target() (x, y, z float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.target[0], oc.target[1], oc.target[2]
}

func (oc *orbitControllerImpl) Advance(dt float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	if oc.speed == 0 || dt <= 0 {
		return
	}
	oc.azimuth = float32(math.Mod(float64(oc.azimuth+oc.speed*dt), 2*math.Pi))
	oc.updatePosition()
}

func (oc *orbitControllerImpl) Azimuth() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.azimuth
}

func (oc *orbitControllerImpl) SetAzimuth(azimuth float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.azimuth = azimuth
	oc.updatePosition()
}

func (oc *orbitControllerImpl) Elevation() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.elevation
}

func (oc *orbitControllerImpl) SetElevation(elevation float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.elevation = clampElevation(elevation)
	oc.updatePosition()
}

func (oc *orbitControllerImpl) Radius() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.radius
}

func (oc *orbitControllerImpl) SetRadius(radius float32) {
	if radius <= 0 {
		return
	}
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.radius = radius
	oc.updatePosition()
}
