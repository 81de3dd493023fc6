package metadata

import (
	"encoding/binary"
	"fmt"
	stdmath "math"

	"github.com/spaghettifunk/trigon/engine/core"
)

/** @brief Size in bytes of FrameState as laid out in the constant buffer. */
const FrameStateSize = 16

/**
 * @brief The per-frame constant buffer record. The two padding floats keep
 * the record at the 16-byte constant buffer granularity and are always zero.
 */
type FrameState struct {
	XOffset float32
	YOffset float32
	Pad0    float32
	Pad1    float32
}

func (f FrameState) Bytes() []byte {
	out := make([]byte, FrameStateSize)
	f.Put(out)
	return out
}

// Put writes the full record into dst, which must hold at least FrameStateSize bytes.
func (f FrameState) Put(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:], stdmath.Float32bits(f.XOffset))
	binary.LittleEndian.PutUint32(dst[4:], stdmath.Float32bits(f.YOffset))
	binary.LittleEndian.PutUint32(dst[8:], stdmath.Float32bits(f.Pad0))
	binary.LittleEndian.PutUint32(dst[12:], stdmath.Float32bits(f.Pad1))
}

func FrameStateFromBytes(b []byte) (FrameState, error) {
	if len(b) < FrameStateSize {
		return FrameState{}, fmt.Errorf("frame state needs %d bytes, got %d: %w", FrameStateSize, len(b), core.ErrPartialWrite)
	}
	return FrameState{
		XOffset: stdmath.Float32frombits(binary.LittleEndian.Uint32(b[0:])),
		YOffset: stdmath.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
		Pad0:    stdmath.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
		Pad1:    stdmath.Float32frombits(binary.LittleEndian.Uint32(b[12:])),
	}, nil
}
