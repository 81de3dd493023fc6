package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer"
	"github.com/spaghettifunk/trigon/engine/renderer/metadata"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

// VulkanRenderer is the Vulkan device together with an immediate context.
// Bind* calls only record state; the frame is recorded lazily from the
// first call that needs the back buffer and submitted by Present.
type VulkanRenderer struct {
	context *VulkanContext
	window  renderer.Window
	ids     *core.IdentifierRegistry

	surface     *VulkanSurface
	bindings    metadata.PipelineBindings
	pipelines   map[pipelineKey]*cachedPipeline
	frameActive bool

	FrameNumber uint64

	validation bool
}

var _ renderer.RendererBackend = (*VulkanRenderer)(nil)

func New(validation bool) *VulkanRenderer {
	return &VulkanRenderer{
		context:    &VulkanContext{},
		ids:        core.NewIdentifierRegistry(),
		pipelines:  make(map[pipelineKey]*cachedPipeline),
		validation: validation,
	}
}

func (vr *VulkanRenderer) Initialize(appName string, window renderer.Window) error {
	vr.window = window

	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		err := fmt.Errorf("GetInstanceProcAddress is nil: %w", core.ErrDeviceUnavailable)
		core.LogError(err.Error())
		return err
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		err = fmt.Errorf("failed to initialize vk: %s: %w", err, core.ErrDeviceUnavailable)
		core.LogError(err.Error())
		return err
	}

	if err := vr.initialize(appName); err != nil {
		vr.Shutdown()
		return err
	}
	core.LogInfo("Vulkan renderer initialized successfully on '%s'.", vr.AdapterName())
	return nil
}

func (vr *VulkanRenderer) initialize(appName string) error {
	if err := vr.createInstance(appName); err != nil {
		return err
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := vr.window.CreateWindowSurface(vr.context.Instance)
	if err != nil {
		return fmt.Errorf("window surface: %s: %w", err, core.ErrDeviceUnavailable)
	}
	vr.context.Surface = vk.SurfaceFromPointer(surface)
	core.LogDebug("Vulkan surface created.")

	if err := DeviceCreate(vr.context); err != nil {
		return err
	}
	return vr.createFrameObjects()
}

func (vr *VulkanRenderer) createInstance(appName string) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Trigon"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Obtain a list of required extensions
	requiredExtensions := append([]string{}, vr.window.RequiredInstanceExtensions()...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		createInfo.Flags |= 1
	}

	var layers []string
	if vr.validation {
		if hasInstanceLayer(validationLayerName) {
			layers = append(layers, validationLayerName)
			requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		} else {
			core.LogWarn("Validation layer %s is not installed, continuing without it.", validationLayerName)
			vr.validation = false
		}
	}
	for _, e := range requiredExtensions {
		core.LogDebug("Required extension: %s", e)
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	if res := vk.CreateInstance(&createInfo, vr.context.Allocator, &vr.context.Instance); res != vk.Success {
		err := vulkanError(core.ErrDeviceUnavailable, "vkCreateInstance", res)
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(vr.context.Instance); err != nil {
		return fmt.Errorf("vk.InitInstance: %s: %w", err, core.ErrDeviceUnavailable)
	}
	core.LogInfo("Vulkan Instance created.")

	if vr.validation {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if res := vk.CreateDebugReportCallback(vr.context.Instance, &debugCreateInfo, vr.context.Allocator, &dbg); res != vk.Success {
			core.LogWarn("vkCreateDebugReportCallbackEXT failed with %s", VulkanResultString(res, true))
		} else {
			vr.context.debugMessenger = dbg
		}
	}
	return nil
}

func hasInstanceLayer(name string) bool {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success || count == 0 {
		return false
	}
	available := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, available); res != vk.Success {
		return false
	}
	for i := range available {
		available[i].Deref()
		if vk.ToString(available[i].LayerName[:]) == name {
			return true
		}
	}
	return false
}

// createFrameObjects builds the command buffer and sync objects of every
// frame in flight.
func (vr *VulkanRenderer) createFrameObjects() error {
	ctx := vr.context
	ctx.GraphicsCommandBuffers = make([]*VulkanCommandBuffer, MaxFramesInFlight)
	ctx.ImageAvailableSemaphores = make([]vk.Semaphore, MaxFramesInFlight)
	ctx.QueueCompleteSemaphores = make([]vk.Semaphore, MaxFramesInFlight)
	ctx.InFlightFences = make([]*VulkanFence, MaxFramesInFlight)

	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	for i := 0; i < MaxFramesInFlight; i++ {
		cb, err := NewVulkanCommandBuffer(ctx, ctx.Device.GraphicsCommandPool, true)
		if err != nil {
			return err
		}
		ctx.GraphicsCommandBuffers[i] = cb

		if res := vk.CreateSemaphore(ctx.Device.LogicalDevice, &semaphoreCreateInfo, ctx.Allocator, &ctx.ImageAvailableSemaphores[i]); res != vk.Success {
			return vulkanError(core.ErrDeviceUnavailable, "vkCreateSemaphore", res)
		}
		if res := vk.CreateSemaphore(ctx.Device.LogicalDevice, &semaphoreCreateInfo, ctx.Allocator, &ctx.QueueCompleteSemaphores[i]); res != vk.Success {
			return vulkanError(core.ErrDeviceUnavailable, "vkCreateSemaphore", res)
		}

		// Signaled so the first wait on each frame returns at once.
		f, err := NewFence(ctx, true)
		if err != nil {
			return err
		}
		ctx.InFlightFences[i] = f
	}
	core.LogDebug("Vulkan command buffers and sync objects created.")
	return nil
}

// Shutdown destroys everything in the opposite order of creation. It is
// safe to call after a partial Initialize.
func (vr *VulkanRenderer) Shutdown() error {
	ctx := vr.context
	if ctx.Device != nil && ctx.Device.LogicalDevice != nil {
		vk.DeviceWaitIdle(ctx.Device.LogicalDevice)

		for key, cp := range vr.pipelines {
			cp.destroy(ctx)
			delete(vr.pipelines, key)
		}
		if vr.surface != nil {
			vr.surface.destroy()
			vr.surface = nil
		}

		for i := range ctx.InFlightFences {
			if ctx.ImageAvailableSemaphores[i] != vk.NullSemaphore {
				vk.DestroySemaphore(ctx.Device.LogicalDevice, ctx.ImageAvailableSemaphores[i], ctx.Allocator)
				ctx.ImageAvailableSemaphores[i] = vk.NullSemaphore
			}
			if ctx.QueueCompleteSemaphores[i] != vk.NullSemaphore {
				vk.DestroySemaphore(ctx.Device.LogicalDevice, ctx.QueueCompleteSemaphores[i], ctx.Allocator)
				ctx.QueueCompleteSemaphores[i] = vk.NullSemaphore
			}
			if ctx.InFlightFences[i] != nil {
				ctx.InFlightFences[i].FenceDestroy(ctx)
			}
		}
		ctx.ImageAvailableSemaphores = nil
		ctx.QueueCompleteSemaphores = nil
		ctx.InFlightFences = nil
		ctx.ImagesInFlight = nil

		for _, cb := range ctx.GraphicsCommandBuffers {
			if cb != nil && cb.Handle != nil {
				cb.Free(ctx, ctx.Device.GraphicsCommandPool)
			}
		}
		ctx.GraphicsCommandBuffers = nil

		core.LogDebug("Destroying Vulkan device...")
		DeviceDestroy(ctx)
	}
	ctx.Device = nil

	if ctx.Instance == nil {
		return nil
	}
	if ctx.Surface != vk.NullSurface {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(ctx.Instance, ctx.Surface, ctx.Allocator)
		ctx.Surface = vk.NullSurface
	}
	if ctx.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(ctx.Instance, ctx.debugMessenger, ctx.Allocator)
		ctx.debugMessenger = vk.NullDebugReportCallback
	}
	core.LogDebug("Destroying Vulkan instance...")
	vk.DestroyInstance(ctx.Instance, ctx.Allocator)
	ctx.Instance = nil

	if live := vr.ids.Live(); live > 0 {
		core.LogWarn("Vulkan renderer shut down with %d live resources", live)
	}
	return nil
}

func (vr *VulkanRenderer) AdapterName() string {
	if vr.context.Device == nil {
		return ""
	}
	return vr.context.Device.Name
}

func (vr *VulkanRenderer) CreateBuffer(desc metadata.BufferDesc, initialData []byte) (*metadata.Buffer, error) {
	if err := desc.Validate(initialData); err != nil {
		return nil, err
	}
	vb, err := NewVulkanBuffer(vr.context, desc, initialData)
	if err != nil {
		return nil, err
	}
	b := &metadata.Buffer{Desc: desc, InternalData: vb}
	b.ID = vr.ids.AcquireNewID(b)
	return b, nil
}

func (vr *VulkanRenderer) CreateShader(stage metadata.ShaderStage, entryPoint string, code []byte) (*metadata.ShaderModule, error) {
	vs, err := NewShaderModule(vr.context, stage, entryPoint, code)
	if err != nil {
		return nil, err
	}
	s := &metadata.ShaderModule{Stage: stage, EntryPoint: entryPoint, Code: code, InternalData: vs}
	s.ID = vr.ids.AcquireNewID(s)
	return s, nil
}

func (vr *VulkanRenderer) CreateInputLayout(elements []metadata.InputElement, vertexShader *metadata.ShaderModule) (*metadata.InputLayout, error) {
	if vertexShader == nil || vertexShader.Stage != metadata.ShaderStageVertex {
		return nil, fmt.Errorf("input layout needs a vertex shader: %w", core.ErrInputLayoutMismatch)
	}
	if err := metadata.ValidateInputLayout(elements, vertexShader.Signature); err != nil {
		return nil, err
	}
	l := &metadata.InputLayout{
		Elements:     append([]metadata.InputElement(nil), elements...),
		Stride:       metadata.InputLayoutStride(elements),
		InternalData: vertexAttributes(elements),
	}
	l.ID = vr.ids.AcquireNewID(l)
	return l, nil
}

// CreateRasterizerState only records the description; it is baked into the
// pipelines built at draw time.
func (vr *VulkanRenderer) CreateRasterizerState(desc metadata.RasterizerDesc) (*metadata.RasterizerState, error) {
	s := &metadata.RasterizerState{Desc: desc}
	s.ID = vr.ids.AcquireNewID(s)
	return s, nil
}

func (vr *VulkanRenderer) CreateSurface(desc metadata.SurfaceDesc) (renderer.Surface, error) {
	if vr.surface != nil {
		return nil, fmt.Errorf("the window already has a swapchain: %w", core.ErrResourceCreation)
	}
	if desc.Width == 0 || desc.Height == 0 {
		desc.Width, desc.Height = vr.window.FramebufferSize()
	}
	s := &VulkanSurface{renderer: vr, desc: desc}
	if err := s.build(desc.Width, desc.Height); err != nil {
		s.destroy()
		return nil, err
	}
	s.ID = vr.ids.AcquireNewID(s)
	vr.surface = s
	return s, nil
}

func (vr *VulkanRenderer) Release(resource interface{}) error {
	ctx := vr.context
	var id uuid.UUID
	switch r := resource.(type) {
	case *metadata.Buffer:
		id = r.ID
	case *metadata.ShaderModule:
		id = r.ID
	case *metadata.InputLayout:
		id = r.ID
	case *metadata.RasterizerState:
		id = r.ID
	case *VulkanSurface:
		id = r.ID
	default:
		return fmt.Errorf("cannot release %T: %w", resource, core.ErrUnknown)
	}
	if _, ok := vr.ids.Owner(id); !ok {
		return fmt.Errorf("resource %s: %w", id, core.ErrResourceReleased)
	}

	vk.DeviceWaitIdle(ctx.Device.LogicalDevice)
	vr.dropPipelines(id)

	switch r := resource.(type) {
	case *metadata.Buffer:
		if vb, ok := r.InternalData.(*VulkanBuffer); ok {
			vb.Destroy(ctx)
		}
	case *metadata.ShaderModule:
		if vs, ok := r.InternalData.(*VulkanShaderStage); ok {
			vs.Destroy(ctx)
		}
	case *VulkanSurface:
		r.destroy()
		if vr.surface == r {
			vr.surface = nil
		}
	}
	return vr.ids.ReleaseID(id)
}

// dropPipelines destroys every cached pipeline built from resource id.
func (vr *VulkanRenderer) dropPipelines(id uuid.UUID) {
	for key, cp := range vr.pipelines {
		if key.uses(id) {
			cp.destroy(vr.context)
			delete(vr.pipelines, key)
		}
	}
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		core.LogDebug("DEBUG: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
