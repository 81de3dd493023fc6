package headless

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"

	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/math"
	"github.com/spaghettifunk/trigon/engine/renderer/metadata"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// Every covered pixel is written with this colour; pixel shaders are not interpreted.
var fillColor = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

func toNRGBA(c metadata.Color) color.NRGBA {
	ch := func(f float32) uint8 {
		return uint8(math.Clamp(f, 0, 1)*255 + 0.5)
	}
	return color.NRGBA{R: ch(c[0]), G: ch(c[1]), B: ch(c[2]), A: ch(c[3])}
}

func clearImage(view *metadata.RenderTargetView, c metadata.Color) {
	img, ok := view.InternalData.(*image.RGBA)
	if !ok || img == nil {
		return
	}
	xdraw.Draw(img, img.Bounds(), image.NewUniform(toNRGBA(c)), image.Point{}, xdraw.Src)
}

func readIndex(ib []byte, format metadata.IndexFormat, i uint32) (uint32, error) {
	off := int(i * format.Size())
	if off+int(format.Size()) > len(ib) {
		return 0, fmt.Errorf("index %d outside index buffer: %w", i, core.ErrUnknown)
	}
	if format == metadata.IndexFormatUint32 {
		return binary.LittleEndian.Uint32(ib[off:]), nil
	}
	return uint32(binary.LittleEndian.Uint16(ib[off:])), nil
}

// rasterize draws an indexed triangle list with a fixed vertex transform: the
// first attribute's xy plus the first two floats of constant buffer slot 0,
// which is what the triangle shader computes.
func rasterize(b *metadata.PipelineBindings, indexCount, startIndex uint32, baseVertex int32) (DrawStats, error) {
	var stats DrawStats
	target, ok := b.RenderTarget.InternalData.(*image.RGBA)
	if !ok || target == nil {
		return stats, fmt.Errorf("render target has no backing image: %w", core.ErrIncompleteBindings)
	}
	vb := b.VertexBuffer.InternalData.(*bufferData).data
	ib := b.IndexBuffer.InternalData.(*bufferData).data
	if len(b.InputLayout.Elements) == 0 || b.InputLayout.Elements[0].Format.Size() < 8 {
		return stats, fmt.Errorf("first vertex attribute is not a position: %w", core.ErrInputLayoutMismatch)
	}
	posOffset := b.VertexOffset + b.InputLayout.Elements[0].AlignedByteOffset

	var offset math.Vec2
	if cb := b.ConstantBuffers[0]; cb != nil {
		if data := cb.InternalData.(*bufferData).data; len(data) >= 8 {
			offset = math.NewVec2(readFloat32(data, 0), readFloat32(data, 4))
		}
	}

	vp := b.Viewport
	bounds := target.Bounds()
	toPixel := func(ndc math.Vec2) (float32, float32) {
		return vp.TopLeftX + (ndc.X+1)*0.5*vp.Width, vp.TopLeftY + (1-ndc.Y)*0.5*vp.Height
	}

	for i := uint32(0); i+3 <= indexCount; i += 3 {
		var tri [3]math.Vec2
		for k := uint32(0); k < 3; k++ {
			idx, err := readIndex(ib, b.IndexFormat, startIndex+i+k)
			if err != nil {
				return stats, err
			}
			v := int64(idx) + int64(baseVertex)
			at := int64(posOffset) + v*int64(b.VertexStride)
			if v < 0 || at+8 > int64(len(vb)) {
				return stats, fmt.Errorf("vertex %d outside vertex buffer: %w", v, core.ErrUnknown)
			}
			tri[k] = math.NewVec2(readFloat32(vb, int(at)), readFloat32(vb, int(at)+4)).Add(offset)
		}

		area := math.SignedArea2D(tri[0], tri[1], tri[2])
		if area == 0 || b.Rasterizer.Desc.Culls(area > 0) {
			stats.Culled++
			continue
		}

		z := vector.NewRasterizer(bounds.Dx(), bounds.Dy())
		z.DrawOp = xdraw.Over
		x, y := toPixel(tri[0])
		z.MoveTo(x, y)
		x, y = toPixel(tri[1])
		z.LineTo(x, y)
		x, y = toPixel(tri[2])
		z.LineTo(x, y)
		z.ClosePath()
		z.Draw(target, bounds, image.NewUniform(fillColor), image.Point{})
		stats.Drawn++
	}
	return stats, nil
}
