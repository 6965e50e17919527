package shader

import "github.com/cogentcore/webgpu/wgpu"

// sampledTextureInfo holds the view dimension and multisampled flag for a sampled texture type
type sampledTextureInfo struct {
	viewDimension wgpu.TextureViewDimension
	multisampled  bool
}

// wgslTypeLayout holds the byte size and alignment of a WGSL host-shareable type.
// Used to compute MinBindingSize for buffer bindings.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// parsedField is one member of a WGSL struct.
type parsedField struct {
	name      string
	typeName  string
	isBuiltin bool
}

// parsedStruct is a WGSL struct block.
type parsedStruct struct {
	name   string
	fields []parsedField
}

// bindingDecl is one `@group(g) @binding(b) var<space> name: type;` declaration.
type bindingDecl struct {
	group        int
	binding      int
	addressSpace string
	name         string
	typeName     string
}
