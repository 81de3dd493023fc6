package metadata

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spaghettifunk/trigon/engine/core"
)

/** @brief How a buffer is expected to be accessed over its lifetime. */
type Usage int

const (
	/** @brief GPU read/write, no CPU access after creation. */
	UsageDefault Usage = iota
	/** @brief Seeded once at creation, GPU read-only afterwards. */
	UsageImmutable
	/** @brief CPU-writable every frame, GPU read-only. */
	UsageDynamic
)

func (u Usage) String() string {
	switch u {
	case UsageDefault:
		return "default"
	case UsageImmutable:
		return "immutable"
	case UsageDynamic:
		return "dynamic"
	}
	return fmt.Sprintf("usage(%d)", int(u))
}

type BindFlag int

const (
	BindVertexBuffer BindFlag = 1 << iota
	BindIndexBuffer
	BindConstantBuffer
)

type CPUAccess int

const (
	CPUAccessNone CPUAccess = iota
	CPUAccessWrite
)

type MapMode int

const (
	/** @brief The previous contents are discarded; the whole buffer must be rewritten. */
	MapWriteDiscard MapMode = iota
)

// Constant buffers are sized in multiples of this many bytes.
const ConstantBufferAlignment uint32 = 16

type BufferDesc struct {
	ByteWidth uint32
	Usage     Usage
	BindFlags BindFlag
	CPUAccess CPUAccess
}

// Validate rejects descriptor combinations that no backend can honour.
func (d BufferDesc) Validate(initialData []byte) error {
	if d.ByteWidth == 0 {
		return fmt.Errorf("buffer byte width must be > 0: %w", core.ErrResourceCreation)
	}
	if d.BindFlags&BindConstantBuffer != 0 && GetAligned(uint64(d.ByteWidth), uint64(ConstantBufferAlignment)) != uint64(d.ByteWidth) {
		return fmt.Errorf("constant buffer size %d is not a multiple of %d: %w", d.ByteWidth, ConstantBufferAlignment, core.ErrResourceCreation)
	}
	switch d.Usage {
	case UsageImmutable:
		if len(initialData) == 0 {
			return fmt.Errorf("immutable buffer requires initial data: %w", core.ErrResourceCreation)
		}
		if d.CPUAccess != CPUAccessNone {
			return fmt.Errorf("immutable buffer cannot be cpu writable: %w", core.ErrResourceCreation)
		}
	case UsageDynamic:
		if d.CPUAccess != CPUAccessWrite {
			return fmt.Errorf("dynamic buffer must be cpu writable: %w", core.ErrResourceCreation)
		}
	case UsageDefault:
		if d.CPUAccess != CPUAccessNone {
			return fmt.Errorf("default usage buffer cannot be cpu writable: %w", core.ErrResourceCreation)
		}
	}
	if len(initialData) > int(d.ByteWidth) {
		return fmt.Errorf("initial data (%d bytes) larger than buffer (%d bytes): %w", len(initialData), d.ByteWidth, core.ErrResourceCreation)
	}
	return nil
}

// Mappable reports whether Map is allowed on a buffer with this descriptor.
func (d BufferDesc) Mappable() bool {
	return d.Usage == UsageDynamic && d.CPUAccess == CPUAccessWrite
}

type Buffer struct {
	ID   uuid.UUID
	Desc BufferDesc
	/** @brief Contains internal data for the renderer-API-specific buffer. */
	InternalData interface{}
}
