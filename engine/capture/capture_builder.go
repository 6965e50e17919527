package capture

// CapturerBuilderOption is a functional option applied by NewCapturer.
type CapturerBuilderOption func(*capturer)

// WithWorkers sets the encode worker pool size.
//
// Parameters:
//   - n: the number of workers, at least 1
//
// Returns:
//   - CapturerBuilderOption: option function to apply
func WithWorkers(n int) CapturerBuilderOption {
	return func(c *capturer) {
		c.workers = max(n, 1)
	}
}

// WithExposure scales the linear color before the sRGB conversion.
func WithExposure(exposure float32) CapturerBuilderOption {
	return func(c *capturer) {
		if exposure > 0 {
			c.exposure = exposure
		}
	}
}

// WithResultCallback registers a function called for every finished capture. It runs on a
// pool worker, or on the render goroutine for readback failures.
func WithResultCallback(fn func(Result)) CapturerBuilderOption {
	return func(c *capturer) {
		c.onResult = fn
	}
}
