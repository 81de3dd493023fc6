package systems

import (
	"fmt"

	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer"
	"github.com/spaghettifunk/trigon/engine/renderer/metadata"
)

// FrameStateSystem owns the host copy of the per-frame constants and the
// dynamic constant buffer mirroring it on the GPU.
type FrameStateSystem struct {
	Buffer *metadata.Buffer

	state   metadata.FrameState
	backend renderer.RendererBackend
}

func NewFrameStateSystem(backend renderer.RendererBackend) *FrameStateSystem {
	return &FrameStateSystem{backend: backend}
}

func (fs *FrameStateSystem) Create(initial metadata.FrameState) error {
	b, err := fs.backend.CreateBuffer(metadata.BufferDesc{
		ByteWidth: metadata.FrameStateSize,
		Usage:     metadata.UsageDynamic,
		BindFlags: metadata.BindConstantBuffer,
		CPUAccess: metadata.CPUAccessWrite,
	}, nil)
	if err != nil {
		core.LogError("failed to create frame state buffer: %s", err.Error())
		return err
	}
	fs.Buffer = b
	fs.state = initial
	fs.state.Pad0, fs.state.Pad1 = 0, 0
	return nil
}

// Nudge moves the offset. There are no bounds.
func (fs *FrameStateSystem) Nudge(dx, dy float32) {
	fs.state.XOffset += dx
	fs.state.YOffset += dy
}

func (fs *FrameStateSystem) State() metadata.FrameState {
	return fs.state
}

// Update copies the whole record into the constant buffer with a
// write-discard map. Call it once per frame before binding.
func (fs *FrameStateSystem) Update() error {
	mapped, err := fs.backend.Map(fs.Buffer, metadata.MapWriteDiscard)
	if err != nil {
		core.LogError("failed to map frame state buffer: %s", err.Error())
		return err
	}
	if len(mapped) < metadata.FrameStateSize {
		fs.backend.Unmap(fs.Buffer)
		return fmt.Errorf("mapped %d of %d bytes: %w", len(mapped), metadata.FrameStateSize, core.ErrPartialWrite)
	}
	fs.state.Put(mapped)
	return fs.backend.Unmap(fs.Buffer)
}

func (fs *FrameStateSystem) Shutdown() error {
	if fs.Buffer == nil {
		return nil
	}
	if err := fs.backend.Release(fs.Buffer); err != nil {
		return err
	}
	fs.Buffer = nil
	return nil
}
