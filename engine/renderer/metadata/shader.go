package metadata

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spaghettifunk/trigon/engine/core"
)

type ShaderStage int

const (
	ShaderStageVertex ShaderStage = iota
	ShaderStagePixel
)

func (s ShaderStage) String() string {
	if s == ShaderStageVertex {
		return "vertex"
	}
	return "pixel"
}

/** @brief Vertex attribute formats understood by the input assembler. */
type Format int

const (
	FormatUnknown Format = iota
	FormatR32Float
	FormatR32G32Float
	FormatR32G32B32Float
	FormatR32G32B32A32Float
	FormatR32Uint
	FormatR32Sint
)

// Size is the format width in bytes.
func (f Format) Size() uint32 {
	switch f {
	case FormatR32Float, FormatR32Uint, FormatR32Sint:
		return 4
	case FormatR32G32Float:
		return 8
	case FormatR32G32B32Float:
		return 12
	case FormatR32G32B32A32Float:
		return 16
	}
	return 0
}

func (f Format) String() string {
	switch f {
	case FormatR32Float:
		return "R32_FLOAT"
	case FormatR32G32Float:
		return "R32G32_FLOAT"
	case FormatR32G32B32Float:
		return "R32G32B32_FLOAT"
	case FormatR32G32B32A32Float:
		return "R32G32B32A32_FLOAT"
	case FormatR32Uint:
		return "R32_UINT"
	case FormatR32Sint:
		return "R32_SINT"
	}
	return "UNKNOWN"
}

/**
 * @brief One attribute of the vertex stream. Location ties the element to
 * the vertex shader input with the same @location.
 */
type InputElement struct {
	SemanticName      string
	Location          uint32
	Format            Format
	InputSlot         uint32
	AlignedByteOffset uint32
}

/** @brief A uniform block the shader reads, as found by reflection. */
type UniformBinding struct {
	Name    string
	Group   uint32
	Binding uint32
	Size    uint32
}

type ShaderModule struct {
	ID         uuid.UUID
	Stage      ShaderStage
	EntryPoint string
	/** @brief SPIR-V words as bytes. */
	Code []byte
	/** @brief Vertex stage only: the inputs the entry point expects. */
	Signature []InputElement
	Uniforms  []UniformBinding
	/** @brief Contains internal data for the renderer-API-specific shader. */
	InternalData interface{}
}

type InputLayout struct {
	ID       uuid.UUID
	Elements []InputElement
	Stride   uint32
	/** @brief Contains internal data for the renderer-API-specific layout. */
	InternalData interface{}
}

// InputLayoutStride is the tightly packed vertex size described by elements.
func InputLayoutStride(elements []InputElement) uint32 {
	var stride uint32
	for _, e := range elements {
		if end := e.AlignedByteOffset + e.Format.Size(); end > stride {
			stride = end
		}
	}
	return stride
}

// ValidateInputLayout checks that every element matches an input of the
// vertex shader signature and that every signature input is fed.
func ValidateInputLayout(elements, signature []InputElement) error {
	if len(elements) == 0 {
		return fmt.Errorf("empty input layout: %w", core.ErrInputLayoutMismatch)
	}
	byLocation := make(map[uint32]InputElement, len(signature))
	for _, s := range signature {
		byLocation[s.Location] = s
	}
	seen := make(map[uint32]bool, len(elements))
	for _, e := range elements {
		s, ok := byLocation[e.Location]
		if !ok {
			return fmt.Errorf("element %q at location %d has no shader input: %w", e.SemanticName, e.Location, core.ErrInputLayoutMismatch)
		}
		if s.Format != e.Format {
			return fmt.Errorf("element %q at location %d is %s, shader expects %s: %w", e.SemanticName, e.Location, e.Format, s.Format, core.ErrInputLayoutMismatch)
		}
		if seen[e.Location] {
			return fmt.Errorf("location %d bound twice: %w", e.Location, core.ErrInputLayoutMismatch)
		}
		seen[e.Location] = true
	}
	for _, s := range signature {
		if !seen[s.Location] {
			return fmt.Errorf("shader input %q at location %d is not fed: %w", s.SemanticName, s.Location, core.ErrInputLayoutMismatch)
		}
	}
	return nil
}
