package raytracer

import "github.com/Carmen-Shannon/oxy-trace/engine/renderer"

// RaytracerBuilderOption is a functional option applied by NewRaytracer.
type RaytracerBuilderOption func(*raytracerImpl)

// WithSeedSource sets where the per-frame _Time value comes from. The default is a
// NewRandomSeedSource seeded from the clock.
//
// Parameters:
//   - seeds: the seed source
//
// Returns:
//   - RaytracerBuilderOption: option function to apply
func WithSeedSource(seeds SeedSource) RaytracerBuilderOption {
	return func(rt *raytracerImpl) {
		rt.seeds = seeds
	}
}

// WithSky sets the initial sky texture. The caller keeps ownership.
func WithSky(sky renderer.Texture) RaytracerBuilderOption {
	return func(rt *raytracerImpl) {
		rt.sky = sky
	}
}

// WithThreadGroupSize sets the dispatch thread-group edge. The kernel must declare the same
// @workgroup_size or NewRaytracer fails with ErrThreadGroupMismatch.
//
// Parameters:
//   - size: the edge length, 0 keeps DefaultThreadGroupSize
//
// Returns:
//   - RaytracerBuilderOption: option function to apply
func WithThreadGroupSize(size uint32) RaytracerBuilderOption {
	return func(rt *raytracerImpl) {
		if size > 0 {
			rt.groupSize = size
		}
	}
}

// WithKernelValidation compiles the kernel with naga before any GPU object is created, so WGSL
// errors surface as a Go error instead of a device error.
func WithKernelValidation(validate bool) RaytracerBuilderOption {
	return func(rt *raytracerImpl) {
		rt.validate = validate
	}
}

// WithFrameObserver adds an observer notified after each presented frame.
func WithFrameObserver(observer FrameObserver) RaytracerBuilderOption {
	return func(rt *raytracerImpl) {
		if observer != nil {
			rt.observers = append(rt.observers, observer)
		}
	}
}
