package shader

import (
	"fmt"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies which pipeline stage a shader is compiled for.
type ShaderType int

const (
	// ShaderTypeCompute indicates a shader containing a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex is the vertex stage of a render pipeline.
	ShaderTypeVertex

	// ShaderTypeFragment is the fragment stage of a render pipeline, paired with a vertex shader.
	ShaderTypeFragment
)

// String returns the lowercase stage name.
func (t ShaderType) String() string {
	switch t {
	case ShaderTypeCompute:
		return "compute"
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderType(%d)", int(t))
	}
}

// shader is the implementation of the Shader interface.
// It holds the WGSL source and everything reflected from it at construction.
type shader struct {
	key                        string
	source                     string
	shaderType                 ShaderType
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	workGroupSize              [3]uint32
	entryPoint                 string
	module                     *wgpu.ShaderModuleDescriptor
}

// Shader defines the interface for a loaded and reflected WGSL shader. It exposes the shader's
// unique key, source code, entry point, bind group layout descriptors and workgroup size needed
// for pipeline creation and resource wiring.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the WGSL shader source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// BindGroupLayoutDescriptor retrieves the bind group layout descriptor for a group index.
	//
	// Parameters:
	//   - group: the @group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor for the group, or an empty descriptor if not declared
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors retrieves all reflected bind group layout descriptors keyed by group index.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName retrieves the variable name declared at a group and binding.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name, or an empty string if not found
	BindGroupVarName(group, binding int) string

	// BindGroupFromVarName retrieves the binding index for a variable name within a group.
	//
	// Parameters:
	//   - group: the bind group index
	//   - varName: the variable name within the group
	//
	// Returns:
	//   - int: the binding index associated with the variable name, or -1 if not found
	//   - bool: true if the variable name was found, false otherwise
	BindGroupFromVarName(group int, varName string) (int, bool)

	// LayoutEntry returns the reflected layout entry for a variable name within a group.
	//
	// Parameters:
	//   - group: the bind group index
	//   - varName: the variable name within the group
	//
	// Returns:
	//   - wgpu.BindGroupLayoutEntry: the entry
	//   - bool: true if the variable was declared in the group
	LayoutEntry(group int, varName string) (wgpu.BindGroupLayoutEntry, bool)

	// StorageFormat returns the texel format of a storage texture declared at group/varName.
	//
	// Parameters:
	//   - group: the bind group index
	//   - varName: the storage texture variable name
	//
	// Returns:
	//   - wgpu.TextureFormat: the declared texel format
	//   - bool: false when the variable is missing or is not a storage texture
	StorageFormat(group int, varName string) (wgpu.TextureFormat, bool)

	// EntryPoint returns the entry point name for this shader's stage.
	//
	// Returns:
	//   - string: the entry point name (e.g. "main")
	EntryPoint() string

	// WorkgroupSize returns the workgroup size dimensions for compute shaders.
	// Returns [0, 0, 0] for non-compute shaders and [1, 1, 1] when @workgroup_size is absent.
	//
	// Returns:
	//   - [3]uint32: the workgroup size as [x, y, z]
	WorkgroupSize() [3]uint32

	// Module returns the shader module descriptor built from the source.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the shader module descriptor containing the WGSL code and label
	Module() *wgpu.ShaderModuleDescriptor

	// ShaderType returns the stage of the shader.
	//
	// Returns:
	//   - ShaderType: ShaderTypeVertex, ShaderTypeFragment, or ShaderTypeCompute
	ShaderType() ShaderType

	// Validate compiles the source offline and reports WGSL errors before the GPU driver sees them.
	//
	// Returns:
	//   - error: a wrapped compiler error, or nil if the source compiles
	Validate() error
}

var _ Shader = &shader{}

// NewShader reads WGSL from sourcePath and reflects it.
//
// Parameters:
//   - key: a unique identifier for the shader, used for caching and lookups
//   - shaderType: the stage the shader is used for
//   - sourcePath: the file path to read WGSL source from
//
// Returns:
//   - Shader: the reflected shader
//   - error: an error if the file cannot be read
func NewShader(key string, shaderType ShaderType, sourcePath string) (Shader, error) {
	if sourcePath == "" {
		return nil, fmt.Errorf("shader %s: empty source path", key)
	}
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("shader %s: failed to read %q: %w", key, sourcePath, err)
	}
	return NewShaderFromSource(key, shaderType, string(data)), nil
}

// NewShaderFromSource reflects an in-memory WGSL source, typically one embedded with go:embed.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - shaderType: the stage the shader is used for
//   - source: the WGSL source
//
// Returns:
//   - Shader: the reflected shader
func NewShaderFromSource(key string, shaderType ShaderType, source string) Shader {
	s := &shader{
		key:        key,
		shaderType: shaderType,
		source:     source,
	}
	s.reflect()
	return s
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.workGroupSize
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarName(group, binding int) string {
	return s.bindingVarNames[group][binding]
}

func (s *shader) BindGroupFromVarName(group int, varName string) (int, bool) {
	for binding, name := range s.bindingVarNames[group] {
		if name == varName {
			return binding, true
		}
	}
	return -1, false
}

func (s *shader) LayoutEntry(group int, varName string) (wgpu.BindGroupLayoutEntry, bool) {
	binding, ok := s.BindGroupFromVarName(group, varName)
	if !ok {
		return wgpu.BindGroupLayoutEntry{}, false
	}
	for _, e := range s.bindGroupLayoutDescriptors[group].Entries {
		if int(e.Binding) == binding {
			return e, true
		}
	}
	return wgpu.BindGroupLayoutEntry{}, false
}

func (s *shader) StorageFormat(group int, varName string) (wgpu.TextureFormat, bool) {
	e, ok := s.LayoutEntry(group, varName)
	if !ok || e.StorageTexture.Access == wgpu.StorageTextureAccessUndefined {
		return wgpu.TextureFormatUndefined, false
	}
	return e.StorageTexture.Format, true
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

// reflect builds the module descriptor and extracts the entry point, workgroup size (compute only)
// and bind group layouts with visibility set to the shader's stage.
func (s *shader) reflect() {
	s.module = &wgpu.ShaderModuleDescriptor{
		Label: s.key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.source,
		},
	}
	s.entryPoint = parseEntryPoint(s.source, s.shaderType)

	var visibility wgpu.ShaderStage
	switch s.shaderType {
	case ShaderTypeVertex:
		visibility = wgpu.ShaderStageVertex
	case ShaderTypeFragment:
		visibility = wgpu.ShaderStageFragment
	case ShaderTypeCompute:
		visibility = wgpu.ShaderStageCompute
		s.workGroupSize = parseWorkgroupSize(s.source)
	default:
		visibility = wgpu.ShaderStageNone
	}
	s.bindGroupLayoutDescriptors, s.bindingVarNames = parseBindGroupLayouts(s.source, visibility)
}
