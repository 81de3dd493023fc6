package headless

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/metadata"
)

// Surface is a ring of in-memory back buffers.
type Surface struct {
	id      uuid.UUID
	device  *Device
	desc    metadata.SurfaceDesc
	buffers []*image.RGBA
	views   []*metadata.RenderTargetView
	current int
	last    *image.RGBA
}

func newSurface(d *Device, desc metadata.SurfaceDesc) *Surface {
	if desc.BufferCount < 2 {
		desc.BufferCount = 2
	}
	s := &Surface{device: d, desc: desc}
	s.allocate()
	return s
}

func (s *Surface) allocate() {
	s.buffers = make([]*image.RGBA, s.desc.BufferCount)
	s.views = make([]*metadata.RenderTargetView, s.desc.BufferCount)
	for i := range s.buffers {
		s.buffers[i] = image.NewRGBA(image.Rect(0, 0, int(s.desc.Width), int(s.desc.Height)))
		s.views[i] = &metadata.RenderTargetView{
			ID:           uuid.New(),
			Width:        s.desc.Width,
			Height:       s.desc.Height,
			ImageIndex:   uint32(i),
			InternalData: s.buffers[i],
		}
	}
	s.current = 0
}

func (s *Surface) CurrentRenderTargetView() (*metadata.RenderTargetView, error) {
	if s.buffers == nil {
		return nil, fmt.Errorf("surface destroyed: %w", core.ErrResourceReleased)
	}
	return s.views[s.current], nil
}

func (s *Surface) Resize(width, height uint32) error {
	if s.buffers == nil {
		return fmt.Errorf("surface destroyed: %w", core.ErrResourceReleased)
	}
	s.desc.Width, s.desc.Height = width, height
	s.allocate()
	s.device.mu.Lock()
	s.device.record(Command{Op: OpResize, Viewport: metadata.NewViewport(width, height)})
	s.device.mu.Unlock()
	return nil
}

func (s *Surface) Present(syncInterval uint32) error {
	if s.buffers == nil {
		return fmt.Errorf("surface destroyed: %w", core.ErrResourceReleased)
	}
	if wait := s.device.vblankWait(syncInterval, time.Now()); wait > 0 {
		time.Sleep(wait)
	}
	if err := s.device.present(s, syncInterval); err != nil {
		return err
	}
	src := s.buffers[s.current]
	if s.last == nil || s.last.Bounds() != src.Bounds() {
		s.last = image.NewRGBA(src.Bounds())
	}
	copy(s.last.Pix, src.Pix)
	s.current = (s.current + 1) % len(s.buffers)
	return nil
}

func (s *Surface) Size() (uint32, uint32) {
	return s.desc.Width, s.desc.Height
}

func (s *Surface) Destroy() error {
	s.buffers = nil
	s.views = nil
	return nil
}

// LastFrame returns the most recently presented image, or nil before the
// first Present. The image is overwritten by the next Present.
func (s *Surface) LastFrame() *image.RGBA {
	return s.last
}

// SaveFrame writes the last presented image as a PNG file.
func (s *Surface) SaveFrame(path string) error {
	if s.last == nil {
		return fmt.Errorf("no frame presented yet: %w", core.ErrUnknown)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, s.last); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
