// Package headless implements the renderer backend in software. It records
// every immediate context call, keeps buffer contents in host memory and
// rasterizes indexed triangle lists into an image, so the frame protocol can
// be exercised without a GPU.
package headless

import (
	"encoding/binary"
	"fmt"
	stdmath "math"
	"sync"
	"time"

	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer"
	"github.com/spaghettifunk/trigon/engine/renderer/metadata"
)

const spirvMagic uint32 = 0x07230203

const (
	// DefaultCommandHistory is how many presented frames of commands are kept.
	DefaultCommandHistory uint64 = 120
	// DefaultRefreshInterval is the simulated vertical blank period.
	DefaultRefreshInterval = time.Second / 60
)

var _ renderer.RendererBackend = (*Device)(nil)

type bufferData struct {
	data   []byte
	mapped []byte
}

type Device struct {
	mu sync.Mutex

	registry *core.IdentifierRegistry
	window   renderer.Window
	adapter  string
	ready    bool

	bindings metadata.PipelineBindings
	commands []Command
	frame    uint64
	presents int
	stats    DrawStats
	surface  *Surface

	failures  map[Op]error
	mapWindow int

	history     uint64
	refresh     time.Duration
	lastPresent time.Time
}

func New() *Device {
	return &Device{
		registry: core.NewIdentifierRegistry(),
		adapter:  "Trigon Software Rasterizer",
		failures: make(map[Op]error),
		history:  DefaultCommandHistory,
		refresh:  DefaultRefreshInterval,
	}
}

// SetCommandHistory keeps the commands of the last frames presented frames
// plus the frame in progress. Zero keeps everything.
func (d *Device) SetCommandHistory(frames uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.history = frames
	d.trimCommands()
}

// SetRefreshInterval sets the vertical blank period Present waits on.
// Zero disables pacing.
func (d *Device) SetRefreshInterval(interval time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refresh = interval
}

// FailOn makes the next and every following call of op return err.
func (d *Device) FailOn(op Op, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[op] = err
}

// LimitMappedRegion makes Map return at most n bytes. Zero removes the limit.
func (d *Device) LimitMappedRegion(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mapWindow = n
}

func (d *Device) injected(op Op) error {
	if err, ok := d.failures[op]; ok {
		return fmt.Errorf("headless %s: %w", op, err)
	}
	return nil
}

func (d *Device) record(c Command) {
	c.Frame = d.frame
	d.commands = append(d.commands, c)
}

func (d *Device) Initialize(appName string, window renderer.Window) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected(OpInitialize); err != nil {
		core.LogError(err.Error())
		return err
	}
	d.window = window
	d.ready = true
	core.LogInfo("%s: selected adapter '%s'", appName, d.adapter)
	return nil
}

func (d *Device) Shutdown() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if live := d.registry.Live(); live > 0 {
		core.LogWarn("headless device shut down with %d live resources", live)
	}
	d.ready = false
	return nil
}

func (d *Device) AdapterName() string {
	return d.adapter
}

func (d *Device) CreateBuffer(desc metadata.BufferDesc, initialData []byte) (*metadata.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected(OpCreateBuffer); err != nil {
		return nil, err
	}
	if err := desc.Validate(initialData); err != nil {
		return nil, err
	}
	bd := &bufferData{data: make([]byte, desc.ByteWidth)}
	copy(bd.data, initialData)
	b := &metadata.Buffer{Desc: desc, InternalData: bd}
	b.ID = d.registry.AcquireNewID(b)
	d.record(Command{Op: OpCreateBuffer})
	return b, nil
}

func (d *Device) CreateShader(stage metadata.ShaderStage, entryPoint string, code []byte) (*metadata.ShaderModule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected(OpCreateShader); err != nil {
		return nil, err
	}
	if len(code) < 4 || len(code)%4 != 0 || binary.LittleEndian.Uint32(code) != spirvMagic {
		return nil, fmt.Errorf("%s shader '%s' is not a SPIR-V module: %w", stage, entryPoint, core.ErrResourceCreation)
	}
	s := &metadata.ShaderModule{Stage: stage, EntryPoint: entryPoint, Code: code}
	s.ID = d.registry.AcquireNewID(s)
	d.record(Command{Op: OpCreateShader})
	return s, nil
}

func (d *Device) CreateInputLayout(elements []metadata.InputElement, vertexShader *metadata.ShaderModule) (*metadata.InputLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected(OpCreateInputLayout); err != nil {
		return nil, err
	}
	if vertexShader == nil || vertexShader.Stage != metadata.ShaderStageVertex {
		return nil, fmt.Errorf("input layout needs a vertex shader: %w", core.ErrResourceCreation)
	}
	if err := metadata.ValidateInputLayout(elements, vertexShader.Signature); err != nil {
		return nil, err
	}
	l := &metadata.InputLayout{Elements: elements, Stride: metadata.InputLayoutStride(elements)}
	l.ID = d.registry.AcquireNewID(l)
	d.record(Command{Op: OpCreateInputLayout})
	return l, nil
}

func (d *Device) CreateRasterizerState(desc metadata.RasterizerDesc) (*metadata.RasterizerState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected(OpCreateRasterizerState); err != nil {
		return nil, err
	}
	r := &metadata.RasterizerState{Desc: desc}
	r.ID = d.registry.AcquireNewID(r)
	d.record(Command{Op: OpCreateRasterizerState})
	return r, nil
}

func (d *Device) CreateSurface(desc metadata.SurfaceDesc) (renderer.Surface, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected(OpCreateSurface); err != nil {
		return nil, err
	}
	if desc.Width == 0 && desc.Height == 0 && d.window != nil {
		desc.Width, desc.Height = d.window.FramebufferSize()
	}
	s := newSurface(d, desc)
	s.id = d.registry.AcquireNewID(s)
	d.surface = s
	d.record(Command{Op: OpCreateSurface})
	return s, nil
}

func (d *Device) Release(resource interface{}) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch r := resource.(type) {
	case *metadata.Buffer:
		return d.registry.ReleaseID(r.ID)
	case *metadata.ShaderModule:
		return d.registry.ReleaseID(r.ID)
	case *metadata.InputLayout:
		return d.registry.ReleaseID(r.ID)
	case *metadata.RasterizerState:
		return d.registry.ReleaseID(r.ID)
	case *Surface:
		if d.surface == r {
			d.surface = nil
		}
		if err := r.Destroy(); err != nil {
			return err
		}
		return d.registry.ReleaseID(r.id)
	}
	return fmt.Errorf("cannot release %T: %w", resource, core.ErrUnknown)
}

func (d *Device) Map(buffer *metadata.Buffer, mode metadata.MapMode) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected(OpMap); err != nil {
		return nil, err
	}
	if !buffer.Desc.Mappable() {
		return nil, fmt.Errorf("map of %s buffer: %w", buffer.Desc.Usage, core.ErrBufferNotMappable)
	}
	bd := buffer.InternalData.(*bufferData)
	if bd.mapped != nil {
		return nil, fmt.Errorf("buffer %s is already mapped: %w", buffer.ID, core.ErrUnknown)
	}
	// write-discard hands out fresh storage
	n := len(bd.data)
	if d.mapWindow > 0 && d.mapWindow < n {
		n = d.mapWindow
	}
	bd.mapped = make([]byte, n)
	d.record(Command{Op: OpMap})
	return bd.mapped, nil
}

func (d *Device) Unmap(buffer *metadata.Buffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	bd := buffer.InternalData.(*bufferData)
	if bd.mapped == nil {
		return fmt.Errorf("unmap of buffer %s that is not mapped: %w", buffer.ID, core.ErrUnknown)
	}
	data := make([]byte, len(bd.data))
	copy(data, bd.mapped)
	bd.data = data
	bd.mapped = nil
	d.record(Command{Op: OpUnmap, Data: append([]byte(nil), data...)})
	return nil
}

func (d *Device) ClearRenderTarget(view *metadata.RenderTargetView, color metadata.Color) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected(OpClearRenderTarget); err != nil {
		return err
	}
	if view == nil {
		return fmt.Errorf("clear of nil render target: %w", core.ErrIncompleteBindings)
	}
	clearImage(view, color)
	d.record(Command{Op: OpClearRenderTarget, Color: color})
	return nil
}

func (d *Device) SetViewport(viewport metadata.Viewport) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	vp := viewport
	d.bindings.Viewport = &vp
	d.record(Command{Op: OpSetViewport, Viewport: vp})
	return nil
}

func (d *Device) BindRenderTarget(view *metadata.RenderTargetView) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bindings.RenderTarget = view
	d.record(Command{Op: OpBindRenderTarget})
	return nil
}

func (d *Device) BindRasterizerState(state *metadata.RasterizerState) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bindings.Rasterizer = state
	d.record(Command{Op: OpBindRasterizerState})
	return nil
}

func (d *Device) BindConstantBuffer(stage metadata.ShaderStage, slot uint32, buffer *metadata.Buffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if slot >= metadata.MaxConstantBufferSlots {
		return fmt.Errorf("constant buffer slot %d: %w", slot, core.ErrInvalidSlot)
	}
	if buffer != nil && buffer.Desc.BindFlags&metadata.BindConstantBuffer == 0 {
		return fmt.Errorf("buffer %s is not a constant buffer: %w", buffer.ID, core.ErrInvalidSlot)
	}
	d.bindings.ConstantBuffers[slot] = buffer
	d.record(Command{Op: OpBindConstantBuffer, Slot: slot})
	return nil
}

func (d *Device) SetPrimitiveTopology(topology metadata.PrimitiveTopology) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bindings.Topology = topology
	d.record(Command{Op: OpSetPrimitiveTopology})
	return nil
}

func (d *Device) BindInputLayout(layout *metadata.InputLayout) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bindings.InputLayout = layout
	d.record(Command{Op: OpBindInputLayout})
	return nil
}

func (d *Device) BindVertexShader(shader *metadata.ShaderModule) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if shader != nil && shader.Stage != metadata.ShaderStageVertex {
		return fmt.Errorf("%s shader bound to the vertex stage: %w", shader.Stage, core.ErrUnknown)
	}
	d.bindings.VertexShader = shader
	d.record(Command{Op: OpBindVertexShader})
	return nil
}

func (d *Device) BindPixelShader(shader *metadata.ShaderModule) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if shader != nil && shader.Stage != metadata.ShaderStagePixel {
		return fmt.Errorf("%s shader bound to the pixel stage: %w", shader.Stage, core.ErrUnknown)
	}
	d.bindings.PixelShader = shader
	d.record(Command{Op: OpBindPixelShader})
	return nil
}

func (d *Device) BindVertexBuffer(buffer *metadata.Buffer, stride, offset uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bindings.VertexBuffer = buffer
	d.bindings.VertexStride = stride
	d.bindings.VertexOffset = offset
	d.record(Command{Op: OpBindVertexBuffer, Stride: stride, Offset: offset})
	return nil
}

func (d *Device) BindIndexBuffer(buffer *metadata.Buffer, format metadata.IndexFormat) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bindings.IndexBuffer = buffer
	d.bindings.IndexFormat = format
	d.record(Command{Op: OpBindIndexBuffer})
	return nil
}

func (d *Device) DrawIndexed(indexCount, startIndex uint32, baseVertex int32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected(OpDrawIndexed); err != nil {
		return err
	}
	if missing := d.bindings.Missing(); len(missing) > 0 {
		return fmt.Errorf("missing %v: %w", missing, core.ErrIncompleteBindings)
	}
	var cb []byte
	if b := d.bindings.ConstantBuffers[0]; b != nil {
		cb = append([]byte(nil), b.InternalData.(*bufferData).data...)
	}
	stats, err := rasterize(&d.bindings, indexCount, startIndex, baseVertex)
	if err != nil {
		return err
	}
	d.stats.Drawn += stats.Drawn
	d.stats.Culled += stats.Culled
	d.record(Command{Op: OpDrawIndexed, Count: indexCount, Data: cb})
	return nil
}

// present is called by the surface with the device lock released.
func (d *Device) present(s *Surface, syncInterval uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected(OpPresent); err != nil {
		return err
	}
	d.record(Command{Op: OpPresent, Count: syncInterval})
	d.presents++
	d.frame++
	d.trimCommands()
	// a presented back buffer is no longer a valid render target
	d.bindings.RenderTarget = nil
	return nil
}

// vblankWait returns how long a present with syncInterval has to wait for
// its vertical blank and books the present at that time.
func (d *Device) vblankWait(syncInterval uint32, now time.Time) time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	var wait time.Duration
	if syncInterval > 0 && d.refresh > 0 && !d.lastPresent.IsZero() {
		due := d.lastPresent.Add(time.Duration(syncInterval) * d.refresh)
		if due.After(now) {
			wait = due.Sub(now)
		}
	}
	d.lastPresent = now.Add(wait)
	return wait
}

func (d *Device) trimCommands() {
	if d.history == 0 || d.frame <= d.history {
		return
	}
	cutoff := d.frame - d.history
	i := 0
	for i < len(d.commands) && d.commands[i].Frame < cutoff {
		i++
	}
	if i == 0 {
		return
	}
	n := copy(d.commands, d.commands[i:])
	clear(d.commands[n:])
	d.commands = d.commands[:n]
}

// Commands returns a copy of the recorded commands still in the history.
func (d *Device) Commands() []Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Command(nil), d.commands...)
}

// FrameCommands returns the commands recorded during frame n (0 based).
func (d *Device) FrameCommands(n uint64) []Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Command
	for _, c := range d.commands {
		if c.Frame == n {
			out = append(out, c)
		}
	}
	return out
}

// Surface returns the surface created last, if it is still alive.
func (d *Device) Surface() *Surface {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.surface
}

func (d *Device) Presents() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.presents
}

func (d *Device) Stats() DrawStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// LiveResources counts created resources not yet released.
func (d *Device) LiveResources() int {
	return d.registry.Live()
}

// BufferContents returns a copy of what the GPU would read from buffer.
func (d *Device) BufferContents(buffer *metadata.Buffer) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), buffer.InternalData.(*bufferData).data...)
}

func readFloat32(b []byte, off int) float32 {
	return stdmath.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}
