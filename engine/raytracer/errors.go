package raytracer

import "errors"

var (
	// ErrMissingBinding reports a kernel that does not declare one of RequiredBindings.
	ErrMissingBinding = errors.New("kernel binding missing")

	// ErrThreadGroupMismatch reports a kernel whose @workgroup_size differs from the dispatch
	// thread-group edge.
	ErrThreadGroupMismatch = errors.New("kernel thread group size mismatch")

	// ErrFormatMismatch reports a kernel output image whose texel format is not the render
	// target format.
	ErrFormatMismatch = errors.New("kernel target format mismatch")

	// ErrInvalidViewport reports a zero or negative viewport dimension.
	ErrInvalidViewport = errors.New("invalid viewport")

	// ErrNoKernel reports a dispatch without a kernel.
	ErrNoKernel = errors.New("no kernel")
)
