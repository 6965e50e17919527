package renderer

// RendererBuilderOption configures a renderer in NewRenderer, before the device is created.
type RendererBuilderOption func(*renderer)

// WithPresentMode picks the surface present mode applied at the first surface configuration.
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithForceSoftwareRenderer requests the fallback adapter, for example lavapipe or SwiftShader.
// Adapter selection panics when none is installed.
//
// Parameters:
//   - force: true to skip hardware adapters
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}
