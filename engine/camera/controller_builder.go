package camera

// OrbitControllerOption is a functional option applied by NewOrbitController.
type OrbitControllerOption func(*orbitControllerImpl)

// WithRadius sets the distance from the target.
//
// Parameters:
//   - radius: orbit radius in world units
//
// Returns:
//   - OrbitControllerOption: option function to apply
func WithRadius(radius float32) OrbitControllerOption {
	return func(oc *orbitControllerImpl) {
		if radius > 0 {
			oc.radius = radius
		}
	}
}

// WithAzimuth sets the initial horizontal angle in radians.
func WithAzimuth(azimuth float32) OrbitControllerOption {
	return func(oc *orbitControllerImpl) {
		oc.azimuth = azimuth
	}
}

// WithElevation sets the initial angle above the horizontal plane in radians.
func WithElevation(elevation float32) OrbitControllerOption {
	return func(oc *orbitControllerImpl) {
		oc.elevation = elevation
	}
}

// WithTarget sets the point the controller orbits and looks at.
//
// Parameters:
//   - x, y, z: world-space target
//
// Returns:
//   - OrbitControllerOption: option function to apply
func WithTarget(x, y, z float32) OrbitControllerOption {
	return func(oc *orbitControllerImpl) {
		oc.target = [3]float32{x, y, z}
	}
}

// WithOrbitSpeed sets the angular speed used by Advance, in radians per second.
func WithOrbitSpeed(speed float32) OrbitControllerOption {
	return func(oc *orbitControllerImpl) {
		oc.speed = speed
	}
}
