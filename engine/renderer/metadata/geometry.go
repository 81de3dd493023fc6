package metadata

import (
	"encoding/binary"
	stdmath "math"

	"github.com/spaghettifunk/trigon/engine/math"
)

/** @brief Size in bytes of a Vertex in a vertex buffer. */
const VertexStride uint32 = 12

/** @brief Represents a single vertex position in model space. */
type Vertex struct {
	Position math.Vec3
}

func NewVertex(x, y, z float32) Vertex {
	return Vertex{Position: math.NewVec3(x, y, z)}
}

// VerticesBytes packs vertices as little-endian float32 triples.
func VerticesBytes(vertices []Vertex) []byte {
	out := make([]byte, 0, len(vertices)*int(VertexStride))
	for _, v := range vertices {
		out = binary.LittleEndian.AppendUint32(out, stdmath.Float32bits(v.Position.X))
		out = binary.LittleEndian.AppendUint32(out, stdmath.Float32bits(v.Position.Y))
		out = binary.LittleEndian.AppendUint32(out, stdmath.Float32bits(v.Position.Z))
	}
	return out
}

func IndicesBytes(indices []uint16) []byte {
	out := make([]byte, 0, len(indices)*2)
	for _, i := range indices {
		out = binary.LittleEndian.AppendUint16(out, i)
	}
	return out
}

/** @brief The GPU buffers holding one mesh. */
type Geometry struct {
	VertexBuffer *Buffer
	IndexBuffer  *Buffer
	VertexCount  uint32
	IndexCount   uint32
	IndexFormat  IndexFormat
}
