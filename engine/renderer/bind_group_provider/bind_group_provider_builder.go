package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithBorrowedTextureView lends a texture view owned by someone else to the provider.
// The provider binds it but never releases it.
//
// Parameters:
//   - binding: the binding index for the view
//   - tv: the borrowed texture view
//
// Returns:
//   - BindGroupProviderOption: a function that stores the borrowed view
func WithBorrowedTextureView(binding int, tv *wgpu.TextureView) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.textureViews[binding] = tv
	}
}
