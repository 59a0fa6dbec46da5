package appbase

import (
	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/ext_debug_utils"
	"github.com/vkngwrapper/extensions/khr_portability_enumeration"
	"github.com/vkngwrapper/extensions/khr_surface"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2"
	"sort"
)

const engineName = "vulkan-primer"

// NoMemoryType is returned by MemoryTypeIndex when no memory type satisfies
// the request. Allocating with it is a contract violation.
const NoMemoryType = -1

// DeviceContext is the connection to the graphics backend. It is built once by
// Initialize and never changes afterwards.
type DeviceContext struct {
	Loader         core.Loader
	Instance       core1_0.Instance
	DebugMessenger ext_debug_utils.DebugUtilsMessenger
	Surface        khr_surface.Surface
	PhysicalDevice core1_0.PhysicalDevice
	MemoryTypes    []core1_0.MemoryPropertyFlags
	GraphicsFamily int
	Device         core1_0.Device
	Queue          core1_0.Queue
	CommandPool    core1_0.CommandPool
}

func (a *App) initializeInstance(appName string) error {
	loader, err := core.CreateLoaderFromProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	if err != nil {
		return err
	}
	a.device.Loader = loader

	extensions, _, err := loader.AvailableExtensions()
	if err != nil {
		return err
	}

	for _, ext := range a.window.VulkanGetInstanceExtensions() {
		if _, hasExt := extensions[ext]; !hasExt {
			return errors.Newf("window requires missing instance extension %s", ext)
		}
	}

	instanceOptions := core1_0.InstanceCreateInfo{
		ApplicationName:       appName,
		ApplicationVersion:    common.CreateVersion(1, 0, 0),
		EngineName:            engineName,
		EngineVersion:         common.CreateVersion(1, 0, 0),
		APIVersion:            common.Vulkan1_2,
		EnabledExtensionNames: sortedNames(extensions),
	}

	if _, enumerationSupported := extensions[khr_portability_enumeration.ExtensionName]; enumerationSupported {
		instanceOptions.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	_, hasDebugUtils := extensions[ext_debug_utils.ExtensionName]
	if validationEnabled {
		layers, _, err := loader.AvailableLayers()
		if err != nil {
			return err
		}

		for _, layer := range validationLayers {
			if _, hasValidation := layers[layer]; !hasValidation {
				return errors.Newf("validation layer %s not available, install the Vulkan SDK or build without the debug tag", layer)
			}
			instanceOptions.EnabledLayerNames = append(instanceOptions.EnabledLayerNames, layer)
		}

		if hasDebugUtils {
			instanceOptions.Next = debugMessengerOptions()
		}
	}

	a.device.Instance, _, err = loader.CreateInstance(nil, instanceOptions)
	if err != nil {
		return err
	}
	instance := a.device.Instance
	a.deviceScope.own("instance", func() { instance.Destroy(nil) })
	Logger().Debug("instance created", "extensions", len(instanceOptions.EnabledExtensionNames), "layers", instanceOptions.EnabledLayerNames)

	if validationEnabled && hasDebugUtils {
		debugLoader := ext_debug_utils.CreateExtensionFromInstance(instance)
		messenger, _, err := debugLoader.CreateDebugUtilsMessenger(instance, nil, debugMessengerOptions())
		if err != nil {
			return err
		}
		a.device.DebugMessenger = messenger
		a.deviceScope.own("debug messenger", func() { messenger.Destroy(nil) })
	}

	return nil
}

func debugMessengerOptions() ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    logDebug,
	}
}

func logDebug(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	if severity&ext_debug_utils.SeverityError != 0 {
		Logger().Error(data.Message, "type", msgType)
	} else {
		Logger().Warn(data.Message, "type", msgType)
	}
	return false
}

func (a *App) createSurface() error {
	surfaceLoader := khr_surface.CreateExtensionFromInstance(a.device.Instance)

	surface, err := vkng_sdl2.CreateSurface(a.device.Instance, surfaceLoader, a.window)
	if err != nil {
		return err
	}
	a.device.Surface = surface
	a.deviceScope.own("surface", func() { surface.Destroy(nil) })
	return nil
}

// selectPhysicalDevice takes the first enumerated device. There is no scoring:
// this targets a single-GPU development machine.
func (a *App) selectPhysicalDevice() error {
	physicalDevices, _, err := a.device.Instance.EnumeratePhysicalDevices()
	if err != nil {
		return err
	}
	if len(physicalDevices) == 0 {
		return errors.New("no physical devices available")
	}

	a.device.PhysicalDevice = physicalDevices[0]

	memProperties := a.device.PhysicalDevice.MemoryProperties()
	a.device.MemoryTypes = make([]core1_0.MemoryPropertyFlags, 0, len(memProperties.MemoryTypes))
	for _, memoryType := range memProperties.MemoryTypes {
		a.device.MemoryTypes = append(a.device.MemoryTypes, memoryType.PropertyFlags)
	}

	Logger().Info("physical device selected", "candidates", len(physicalDevices), "memoryTypes", len(a.device.MemoryTypes))
	return nil
}

func (a *App) searchGraphicsQueue() error {
	queueFamilies := a.device.PhysicalDevice.QueueFamilyProperties()
	flags := make([]core1_0.QueueFlags, 0, len(queueFamilies))
	for _, queueFamily := range queueFamilies {
		flags = append(flags, queueFamily.QueueFlags)
	}

	index, found := searchGraphicsQueueIndex(flags)
	if !found {
		Logger().Warn("no graphics-capable queue family, falling back to family 0", "families", len(flags))
	}
	a.device.GraphicsFamily = index

	supported, _, err := a.device.Surface.PhysicalDeviceSurfaceSupport(a.device.PhysicalDevice, index)
	if err != nil {
		return err
	}
	if !supported {
		return errors.Newf("queue family %d cannot present to the window surface", index)
	}
	return nil
}

// searchGraphicsQueueIndex returns the first family advertising graphics.
//
// When no family does, it returns 0 and found=false rather than failing. That
// fallback keeps the behavior this code was ported with, but a device without
// graphics queues cannot render: callers should treat !found as suspect.
func searchGraphicsQueueIndex(families []core1_0.QueueFlags) (index int, found bool) {
	for i, flags := range families {
		if flags&core1_0.QueueGraphics != 0 {
			return i, true
		}
	}
	return 0, false
}

func (a *App) createDevice() error {
	extensions, _, err := a.device.PhysicalDevice.EnumerateDeviceExtensionProperties()
	if err != nil {
		return err
	}

	device, _, err := a.device.PhysicalDevice.CreateDevice(nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos: []core1_0.DeviceQueueCreateInfo{
			{
				QueueFamilyIndex: a.device.GraphicsFamily,
				QueuePriorities:  []float32{1.0},
			},
		},
		EnabledFeatures:       &core1_0.PhysicalDeviceFeatures{},
		EnabledExtensionNames: sortedNames(extensions),
	})
	if err != nil {
		return err
	}
	a.device.Device = device
	a.deviceScope.own("device", func() { device.Destroy(nil) })

	a.device.Queue = device.GetQueue(a.device.GraphicsFamily, 0)
	Logger().Debug("logical device created", "queueFamily", a.device.GraphicsFamily, "extensions", len(extensions))
	return nil
}

func (a *App) prepareCommandPool() error {
	pool, _, err := a.device.Device.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: a.device.GraphicsFamily,
		Flags:            core1_0.CommandPoolCreateResetBuffer,
	})
	if err != nil {
		return err
	}
	a.device.CommandPool = pool
	a.deviceScope.own("command pool", func() { pool.Destroy(nil) })
	return nil
}

// memoryTypeIndex returns the first memory type whose bit is set in typeBits and
// whose property flags include every flag in required, or NoMemoryType.
func memoryTypeIndex(types []core1_0.MemoryPropertyFlags, typeBits uint32, required core1_0.MemoryPropertyFlags) int {
	for i, flags := range types {
		if i >= 32 {
			break
		}
		if typeBits&(1<<uint(i)) != 0 && flags&required == required {
			return i
		}
	}
	return NoMemoryType
}

func sortedNames[T any](set map[string]T) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
