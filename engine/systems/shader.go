package systems

import (
	"fmt"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/spirv"
	"github.com/spaghettifunk/trigon/engine/assets"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer"
	"github.com/spaghettifunk/trigon/engine/renderer/metadata"
)

/** @brief Configuration for the shader system. */
type ShaderSystemConfig struct {
	/** @brief Path of the WGSL source holding both entry points. */
	Path string
	/** @brief Name of the vertex stage entry point. */
	VertexEntry string
	/** @brief Name of the pixel (fragment) stage entry point. */
	PixelEntry string
	/** @brief Vertex stream layout; must match the vertex entry point inputs. */
	InputLayout []metadata.InputElement
}

/** @brief The output of a successful compilation, before any GPU object exists. */
type CompiledShader struct {
	Code      []byte
	Signature []metadata.InputElement
	Uniforms  []metadata.UniformBinding
}

type ShaderSystem struct {
	Config       ShaderSystemConfig
	VertexShader *metadata.ShaderModule
	PixelShader  *metadata.ShaderModule
	InputLayout  *metadata.InputLayout

	backend      renderer.RendererBackend
	assetManager *assets.AssetManager
}

func NewShaderSystem(config ShaderSystemConfig, backend renderer.RendererBackend, am *assets.AssetManager) (*ShaderSystem, error) {
	if config.Path == "" || config.VertexEntry == "" || config.PixelEntry == "" {
		err := fmt.Errorf("NewShaderSystem - path and both entry points are required: %w", core.ErrConfig)
		core.LogError(err.Error())
		return nil, err
	}
	return &ShaderSystem{
		Config:       config,
		backend:      backend,
		assetManager: am,
	}, nil
}

// CompileAndLink loads the shader source, compiles it and creates both
// shader stages plus the input layout on the device.
func (s *ShaderSystem) CompileAndLink() error {
	vs, ps, layout, err := s.build()
	if err != nil {
		return err
	}
	s.VertexShader, s.PixelShader, s.InputLayout = vs, ps, layout
	core.LogInfo("shader '%s' compiled (%s, %s)", s.Config.Path, s.Config.VertexEntry, s.Config.PixelEntry)
	return nil
}

// Reload rebuilds the pipeline from the current source. On failure the
// previous shaders stay in place and the error is returned.
func (s *ShaderSystem) Reload() error {
	vs, ps, layout, err := s.build()
	if err != nil {
		core.LogWarn("shader reload failed, keeping the previous pipeline: %s", err.Error())
		return err
	}
	old := []interface{}{s.InputLayout, s.PixelShader, s.VertexShader}
	s.VertexShader, s.PixelShader, s.InputLayout = vs, ps, layout
	for _, r := range old {
		if err := s.release(r); err != nil {
			return err
		}
	}
	core.LogInfo("shader '%s' reloaded", s.Config.Path)
	return nil
}

func (s *ShaderSystem) build() (*metadata.ShaderModule, *metadata.ShaderModule, *metadata.InputLayout, error) {
	res, err := s.assetManager.LoadAsset(s.Config.Path, metadata.ResourceTypeShader, nil)
	if err != nil {
		core.LogError(err.Error())
		return nil, nil, nil, err
	}
	defer s.assetManager.UnloadAsset(res)

	compiled, err := CompileShader(res.Data.(string), s.Config.VertexEntry, s.Config.PixelEntry)
	if err != nil {
		core.LogError(err.Error())
		return nil, nil, nil, err
	}

	vs, err := s.backend.CreateShader(metadata.ShaderStageVertex, s.Config.VertexEntry, compiled.Code)
	if err != nil {
		core.LogError(err.Error())
		return nil, nil, nil, err
	}
	vs.Signature = compiled.Signature
	vs.Uniforms = compiled.Uniforms

	ps, err := s.backend.CreateShader(metadata.ShaderStagePixel, s.Config.PixelEntry, compiled.Code)
	if err != nil {
		core.LogError(err.Error())
		s.release(vs)
		return nil, nil, nil, err
	}
	ps.Uniforms = compiled.Uniforms

	layout, err := s.backend.CreateInputLayout(s.Config.InputLayout, vs)
	if err != nil {
		core.LogError(err.Error())
		s.release(ps)
		s.release(vs)
		return nil, nil, nil, err
	}
	return vs, ps, layout, nil
}

func (s *ShaderSystem) release(r interface{}) error {
	switch v := r.(type) {
	case *metadata.ShaderModule:
		if v == nil {
			return nil
		}
	case *metadata.InputLayout:
		if v == nil {
			return nil
		}
	}
	return s.backend.Release(r)
}

/**
 * @brief Shuts down the shader system, releasing the layout and both stages.
 */
func (s *ShaderSystem) Shutdown() error {
	for _, r := range []interface{}{s.InputLayout, s.PixelShader, s.VertexShader} {
		if err := s.release(r); err != nil {
			return err
		}
	}
	s.VertexShader, s.PixelShader, s.InputLayout = nil, nil, nil
	return nil
}

// CompileShader compiles WGSL source to SPIR-V and reflects the vertex
// inputs and uniform blocks. Every failure wraps core.ErrShaderCompile and
// carries the compiler diagnostic unchanged.
func CompileShader(source, vertexEntry, pixelEntry string) (*CompiledShader, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", core.ErrShaderCompile, err.Error())
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", core.ErrShaderCompile, err.Error())
	}
	validationErrors, err := naga.Validate(module)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", core.ErrShaderCompile, err.Error())
	}
	if len(validationErrors) > 0 {
		msgs := make([]string, len(validationErrors))
		for i, ve := range validationErrors {
			msgs[i] = ve.Error()
		}
		return nil, fmt.Errorf("%w: %s", core.ErrShaderCompile, strings.Join(msgs, "; "))
	}

	vsEntry, err := findEntryPoint(module, vertexEntry, ir.StageVertex)
	if err != nil {
		return nil, err
	}
	if _, err := findEntryPoint(module, pixelEntry, ir.StageFragment); err != nil {
		return nil, err
	}
	signature, err := reflectInputs(module, vsEntry)
	if err != nil {
		return nil, err
	}
	uniforms, err := reflectUniforms(module)
	if err != nil {
		return nil, err
	}

	code, err := naga.GenerateSPIRV(module, spirv.Options{Version: spirv.Version1_3})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", core.ErrShaderCompile, err.Error())
	}
	return &CompiledShader{Code: code, Signature: signature, Uniforms: uniforms}, nil
}

func findEntryPoint(module *ir.Module, name string, stage ir.ShaderStage) (*ir.EntryPoint, error) {
	for i := range module.EntryPoints {
		ep := &module.EntryPoints[i]
		if ep.Name != name {
			continue
		}
		if ep.Stage != stage {
			return nil, fmt.Errorf("%w: entry point '%s' has the wrong stage", core.ErrShaderCompile, name)
		}
		return ep, nil
	}
	return nil, fmt.Errorf("%w: entry point '%s' not found", core.ErrShaderCompile, name)
}

func locationOf(b *ir.Binding) (uint32, bool) {
	if b == nil {
		return 0, false
	}
	switch lb := (*b).(type) {
	case ir.LocationBinding:
		return lb.Location, true
	case *ir.LocationBinding:
		return lb.Location, true
	}
	return 0, false
}

func reflectInputs(module *ir.Module, ep *ir.EntryPoint) ([]metadata.InputElement, error) {
	var out []metadata.InputElement
	add := func(name string, loc uint32, th ir.TypeHandle) error {
		f, err := formatOf(module, th)
		if err != nil {
			return fmt.Errorf("%w: input '%s' at location %d: %s", core.ErrShaderCompile, name, loc, err.Error())
		}
		out = append(out, metadata.InputElement{SemanticName: name, Location: loc, Format: f})
		return nil
	}
	for _, arg := range ep.Function.Arguments {
		if loc, ok := locationOf(arg.Binding); ok {
			if err := add(arg.Name, loc, arg.Type); err != nil {
				return nil, err
			}
			continue
		}
		if arg.Binding != nil || int(arg.Type) >= len(module.Types) {
			continue
		}
		// struct of inputs
		st, ok := module.Types[arg.Type].Inner.(ir.StructType)
		if !ok {
			continue
		}
		for _, m := range st.Members {
			if loc, ok := locationOf(m.Binding); ok {
				if err := add(m.Name, loc, m.Type); err != nil {
					return nil, err
				}
			}
		}
	}
	return out, nil
}

func formatOf(module *ir.Module, th ir.TypeHandle) (metadata.Format, error) {
	if int(th) >= len(module.Types) {
		return metadata.FormatUnknown, fmt.Errorf("unknown type handle %d", th)
	}
	switch t := module.Types[th].Inner.(type) {
	case ir.ScalarType:
		if t.Width == 4 {
			switch t.Kind {
			case ir.ScalarFloat:
				return metadata.FormatR32Float, nil
			case ir.ScalarUint:
				return metadata.FormatR32Uint, nil
			case ir.ScalarSint:
				return metadata.FormatR32Sint, nil
			}
		}
	case ir.VectorType:
		if t.Scalar.Kind == ir.ScalarFloat && t.Scalar.Width == 4 {
			switch t.Size {
			case ir.Vec2:
				return metadata.FormatR32G32Float, nil
			case ir.Vec3:
				return metadata.FormatR32G32B32Float, nil
			case ir.Vec4:
				return metadata.FormatR32G32B32A32Float, nil
			}
		}
	}
	return metadata.FormatUnknown, fmt.Errorf("unsupported vertex input type")
}

func reflectUniforms(module *ir.Module) ([]metadata.UniformBinding, error) {
	var out []metadata.UniformBinding
	for _, g := range module.GlobalVariables {
		if g.Space != ir.SpaceUniform || g.Binding == nil {
			continue
		}
		if g.Binding.Group != 0 {
			return nil, fmt.Errorf("%w: uniform '%s' uses group %d, only group 0 is bound", core.ErrShaderCompile, g.Name, g.Binding.Group)
		}
		if g.Binding.Binding >= metadata.MaxConstantBufferSlots {
			return nil, fmt.Errorf("%w: uniform '%s' binding %d: %w", core.ErrShaderCompile, g.Name, g.Binding.Binding, core.ErrInvalidSlot)
		}
		var size uint32
		if int(g.Type) < len(module.Types) {
			switch t := module.Types[g.Type].Inner.(type) {
			case ir.StructType:
				size = t.Span
			case ir.VectorType:
				size = uint32(t.Size) * uint32(t.Scalar.Width)
			case ir.ScalarType:
				size = uint32(t.Width)
			}
		}
		out = append(out, metadata.UniformBinding{
			Name:    g.Name,
			Group:   g.Binding.Group,
			Binding: g.Binding.Binding,
			Size:    size,
		})
	}
	return out, nil
}
