package renderer

import (
	"github.com/spaghettifunk/trigon/engine/renderer/metadata"
)

// Window is what a backend needs from the platform layer.
type Window interface {
	// RequiredInstanceExtensions lists the instance extensions needed to present to the window.
	RequiredInstanceExtensions() []string
	// CreateWindowSurface returns the native surface handle for a graphics instance.
	CreateWindowSurface(instance interface{}) (uintptr, error)
	// FramebufferSize returns the current client area in pixels.
	FramebufferSize() (uint32, uint32)
}

// Surface is a swapchain bound to a window.
type Surface interface {
	// CurrentRenderTargetView returns the back buffer currently accepting rendering.
	// It must be queried again after Resize or Present.
	CurrentRenderTargetView() (*metadata.RenderTargetView, error)
	Resize(width, height uint32) error
	Present(syncInterval uint32) error
	Size() (uint32, uint32)
	Destroy() error
}

// RendererBackend is the graphics device together with its immediate context.
// Every resource it creates must be passed to Release before Shutdown.
type RendererBackend interface {
	Initialize(appName string, window Window) error
	Shutdown() error
	AdapterName() string

	CreateBuffer(desc metadata.BufferDesc, initialData []byte) (*metadata.Buffer, error)
	CreateShader(stage metadata.ShaderStage, entryPoint string, code []byte) (*metadata.ShaderModule, error)
	CreateInputLayout(elements []metadata.InputElement, vertexShader *metadata.ShaderModule) (*metadata.InputLayout, error)
	CreateRasterizerState(desc metadata.RasterizerDesc) (*metadata.RasterizerState, error)
	CreateSurface(desc metadata.SurfaceDesc) (Surface, error)
	// Release destroys a resource returned by one of the Create* calls.
	Release(resource interface{}) error

	// Map returns the writable contents of a dynamic buffer. With
	// MapWriteDiscard the previous contents are undefined and the caller
	// must rewrite the full range before Unmap.
	Map(buffer *metadata.Buffer, mode metadata.MapMode) ([]byte, error)
	Unmap(buffer *metadata.Buffer) error

	ClearRenderTarget(view *metadata.RenderTargetView, color metadata.Color) error
	SetViewport(viewport metadata.Viewport) error
	BindRenderTarget(view *metadata.RenderTargetView) error
	BindRasterizerState(state *metadata.RasterizerState) error
	BindConstantBuffer(stage metadata.ShaderStage, slot uint32, buffer *metadata.Buffer) error
	SetPrimitiveTopology(topology metadata.PrimitiveTopology) error
	BindInputLayout(layout *metadata.InputLayout) error
	BindVertexShader(shader *metadata.ShaderModule) error
	BindPixelShader(shader *metadata.ShaderModule) error
	BindVertexBuffer(buffer *metadata.Buffer, stride, offset uint32) error
	BindIndexBuffer(buffer *metadata.Buffer, format metadata.IndexFormat) error
	// DrawIndexed fails with core.ErrIncompleteBindings when the pipeline is not fully bound.
	DrawIndexed(indexCount, startIndex uint32, baseVertex int32) error
}
