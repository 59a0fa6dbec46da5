package appbase

import (
	"bytes"
	"encoding/binary"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"golang.org/x/image/draw"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"unsafe"
)

// Buffer is a buffer bound to its own memory allocation.
type Buffer struct {
	Buffer core1_0.Buffer
	Memory core1_0.DeviceMemory
	Size   int
}

// Write copies data, encoded the way binary.Write encodes it, to offset. The
// buffer must be host visible.
func (b *Buffer) Write(offset int, data any) error {
	return writeData(b.Memory, offset, data)
}

// Destroy releases the buffer and its memory. It accepts nil and partially
// created buffers.
func (b *Buffer) Destroy() {
	if b == nil {
		return
	}
	if b.Buffer != nil {
		b.Buffer.Destroy(nil)
	}
	if b.Memory != nil {
		b.Memory.Free(nil)
	}
}

// Texture is a sampled 2D image with its memory and view.
type Texture struct {
	Image  core1_0.Image
	Memory core1_0.DeviceMemory
	View   core1_0.ImageView
	Width  int
	Height int
}

func (t *Texture) Destroy() {
	if t == nil {
		return
	}
	if t.View != nil {
		t.View.Destroy(nil)
	}
	if t.Image != nil {
		t.Image.Destroy(nil)
	}
	if t.Memory != nil {
		t.Memory.Free(nil)
	}
}

const TextureFormat = core1_0.FormatR8G8B8A8SRGB

// AllocateMemory allocates size bytes of the given memory type. Passing
// NoMemoryType is a contract violation.
func (a *App) AllocateMemory(size int, typeIndex int) (core1_0.DeviceMemory, error) {
	if typeIndex == NoMemoryType {
		return nil, errors.AssertionFailedf("allocation of %d bytes with no suitable memory type", size)
	}

	memory, _, err := a.device.Device.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  size,
		MemoryTypeIndex: typeIndex,
	})
	return memory, err
}

func (a *App) CreateBuffer(size int, usage core1_0.BufferUsageFlags, properties core1_0.MemoryPropertyFlags) (*Buffer, error) {
	buffer, _, err := a.device.Device.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       usage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return nil, err
	}
	res := &Buffer{Buffer: buffer, Size: size}

	memRequirements := buffer.MemoryRequirements()
	res.Memory, err = a.AllocateMemory(memRequirements.Size, a.MemoryTypeIndex(memRequirements.MemoryTypeBits, properties))
	if err != nil {
		res.Destroy()
		return nil, err
	}

	_, err = buffer.BindBufferMemory(res.Memory, 0)
	if err != nil {
		res.Destroy()
		return nil, err
	}
	return res, nil
}

// CreateHostBuffer creates a host-visible buffer holding data.
func (a *App) CreateHostBuffer(usage core1_0.BufferUsageFlags, data any) (*Buffer, error) {
	size := binary.Size(data)
	if size <= 0 {
		return nil, errors.Newf("cannot size buffer data of type %T", data)
	}

	buffer, err := a.CreateBuffer(size, usage, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if err != nil {
		return nil, err
	}

	if err := buffer.Write(0, data); err != nil {
		buffer.Destroy()
		return nil, err
	}
	return buffer, nil
}

// CreateDeviceBuffer uploads data through a staging buffer into a
// device-local buffer.
func (a *App) CreateDeviceBuffer(usage core1_0.BufferUsageFlags, data any) (*Buffer, error) {
	staging, err := a.CreateHostBuffer(core1_0.BufferUsageTransferSrc, data)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()

	buffer, err := a.CreateBuffer(staging.Size, usage|core1_0.BufferUsageTransferDst, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return nil, err
	}

	err = a.SingleTimeCommands(func(cmd core1_0.CommandBuffer) error {
		return cmd.CmdCopyBuffer(staging.Buffer, buffer.Buffer, []core1_0.BufferCopy{
			{
				SrcOffset: 0,
				DstOffset: 0,
				Size:      staging.Size,
			},
		})
	})
	if err != nil {
		buffer.Destroy()
		return nil, err
	}
	return buffer, nil
}

// CreateUniformBuffers creates one host-visible uniform buffer of size bytes per
// swapchain image. Buffer i may only be rewritten while image i is recorded.
func (a *App) CreateUniformBuffers(size int) ([]*Buffer, error) {
	buffers := make([]*Buffer, 0, a.ImageCount())
	for i := 0; i < a.ImageCount(); i++ {
		buffer, err := a.CreateBuffer(size, core1_0.BufferUsageUniformBuffer, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
		if err != nil {
			for _, b := range buffers {
				b.Destroy()
			}
			return nil, errors.Wrapf(err, "uniform buffer %d", i)
		}
		buffers = append(buffers, buffer)
	}
	return buffers, nil
}

// SingleTimeCommands records with record into a throwaway command buffer,
// submits it and waits for the queue to drain.
func (a *App) SingleTimeCommands(record func(cmd core1_0.CommandBuffer) error) error {
	buffers, _, err := a.device.Device.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        a.device.CommandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return err
	}
	defer a.device.Device.FreeCommandBuffers(buffers)

	buffer := buffers[0]
	_, err = buffer.Begin(core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	if err != nil {
		return err
	}

	if err := record(buffer); err != nil {
		return err
	}

	_, err = buffer.End()
	if err != nil {
		return err
	}

	_, err = a.device.Queue.Submit(nil, []core1_0.SubmitInfo{
		{
			CommandBuffers: []core1_0.CommandBuffer{buffer},
		},
	})
	if err != nil {
		return err
	}

	_, err = a.device.Queue.WaitIdle()
	return err
}

// LoadTexture decodes a PNG or JPEG file from fsys and uploads it.
func (a *App) LoadTexture(fsys fs.FS, name string) (*Texture, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	return a.DecodeTexture(data)
}

// DecodeTexture uploads an encoded PNG or JPEG image.
func (a *App) DecodeTexture(data []byte) (*Texture, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode texture")
	}
	return a.CreateTexture(img)
}

// CreateTexture uploads img into a device-local, shader-readable image.
func (a *App) CreateTexture(img image.Image) (*Texture, error) {
	pixels := toRGBA(img)
	width, height := pixels.Rect.Dx(), pixels.Rect.Dy()

	staging, err := a.CreateHostBuffer(core1_0.BufferUsageTransferSrc, pixels.Pix)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()

	textureImage, _, err := a.device.Device.CreateImage(nil, core1_0.ImageCreateInfo{
		ImageType: core1_0.ImageType2D,
		Extent: core1_0.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        TextureFormat,
		Tiling:        core1_0.ImageTilingOptimal,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Usage:         core1_0.ImageUsageTransferDst | core1_0.ImageUsageSampled,
		SharingMode:   core1_0.SharingModeExclusive,
		Samples:       core1_0.Samples1,
	})
	if err != nil {
		return nil, err
	}
	texture := &Texture{Image: textureImage, Width: width, Height: height}

	memReqs := textureImage.MemoryRequirements()
	texture.Memory, err = a.AllocateMemory(memReqs.Size, a.MemoryTypeIndex(memReqs.MemoryTypeBits, core1_0.MemoryPropertyDeviceLocal))
	if err != nil {
		texture.Destroy()
		return nil, err
	}

	_, err = textureImage.BindImageMemory(texture.Memory, 0)
	if err != nil {
		texture.Destroy()
		return nil, err
	}

	err = a.SingleTimeCommands(func(cmd core1_0.CommandBuffer) error {
		err := transitionImageLayout(cmd, textureImage, core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal)
		if err != nil {
			return err
		}

		err = cmd.CmdCopyBufferToImage(staging.Buffer, textureImage, core1_0.ImageLayoutTransferDstOptimal, []core1_0.BufferImageCopy{
			{
				BufferOffset:      0,
				BufferRowLength:   0,
				BufferImageHeight: 0,

				ImageSubresource: core1_0.ImageSubresourceLayers{
					AspectMask:     core1_0.ImageAspectColor,
					MipLevel:       0,
					BaseArrayLayer: 0,
					LayerCount:     1,
				},
				ImageOffset: core1_0.Offset3D{X: 0, Y: 0, Z: 0},
				ImageExtent: core1_0.Extent3D{Width: width, Height: height, Depth: 1},
			},
		})
		if err != nil {
			return err
		}

		return transitionImageLayout(cmd, textureImage, core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutShaderReadOnlyOptimal)
	})
	if err != nil {
		texture.Destroy()
		return nil, err
	}

	texture.View, _, err = a.device.Device.CreateImageView(nil, imageViewInfo(textureImage, TextureFormat, core1_0.ImageAspectColor))
	if err != nil {
		texture.Destroy()
		return nil, err
	}
	return texture, nil
}

func transitionImageLayout(cmd core1_0.CommandBuffer, image core1_0.Image, oldLayout core1_0.ImageLayout, newLayout core1_0.ImageLayout) error {
	var sourceStage, destStage core1_0.PipelineStageFlags
	var sourceAccess, destAccess core1_0.AccessFlags

	if oldLayout == core1_0.ImageLayoutUndefined && newLayout == core1_0.ImageLayoutTransferDstOptimal {
		sourceAccess = 0
		destAccess = core1_0.AccessTransferWrite
		sourceStage = core1_0.PipelineStageTopOfPipe
		destStage = core1_0.PipelineStageTransfer
	} else if oldLayout == core1_0.ImageLayoutTransferDstOptimal && newLayout == core1_0.ImageLayoutShaderReadOnlyOptimal {
		sourceAccess = core1_0.AccessTransferWrite
		destAccess = core1_0.AccessShaderRead
		sourceStage = core1_0.PipelineStageTransfer
		destStage = core1_0.PipelineStageFragmentShader
	} else {
		return errors.AssertionFailedf("unexpected layout transition: %s -> %s", oldLayout, newLayout)
	}

	return cmd.CmdPipelineBarrier(sourceStage, destStage, 0, nil, nil, []core1_0.ImageMemoryBarrier{
		{
			OldLayout:           oldLayout,
			NewLayout:           newLayout,
			SrcQueueFamilyIndex: -1,
			DstQueueFamilyIndex: -1,
			Image:               image,
			SubresourceRange: core1_0.ImageSubresourceRange{
				AspectMask:     core1_0.ImageAspectColor,
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			SrcAccessMask: sourceAccess,
			DstAccessMask: destAccess,
		},
	})
}

// toRGBA returns img as tightly packed RGBA rows with its origin at (0,0).
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == 4*rgba.Rect.Dx() {
		return rgba
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Rect, img, bounds.Min, draw.Src)
	return rgba
}

// CreateSampler creates a linear, repeating sampler without anisotropy.
func (a *App) CreateSampler() (core1_0.Sampler, error) {
	sampler, _, err := a.device.Device.CreateSampler(nil, core1_0.SamplerCreateInfo{
		MagFilter:    core1_0.FilterLinear,
		MinFilter:    core1_0.FilterLinear,
		AddressModeU: core1_0.SamplerAddressModeRepeat,
		AddressModeV: core1_0.SamplerAddressModeRepeat,
		AddressModeW: core1_0.SamplerAddressModeRepeat,

		AnisotropyEnable: false,
		MaxAnisotropy:    1,

		BorderColor: core1_0.BorderColorIntOpaqueBlack,

		MipmapMode: core1_0.SamplerMipmapModeLinear,
	})
	return sampler, err
}

// LoadShaderModule reads compiled SPIR-V from fsys.
func (a *App) LoadShaderModule(fsys fs.FS, name string) (core1_0.ShaderModule, error) {
	code, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, errors.Newf("shader %s is not SPIR-V: %d bytes", name, len(code))
	}

	shader, _, err := a.device.Device.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: bytesToBytecode(code),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "shader %s", name)
	}
	return shader, nil
}

func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteCode[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return byteCode
}

func writeData(memory core1_0.DeviceMemory, offset int, data any) error {
	bufferSize := binary.Size(data)
	if bufferSize < 0 {
		return errors.Newf("cannot encode %T", data)
	}

	buf := &bytes.Buffer{}
	err := binary.Write(buf, common.ByteOrder, data)
	if err != nil {
		return err
	}

	memoryPtr, _, err := memory.Map(offset, bufferSize, 0)
	if err != nil {
		return err
	}
	defer memory.Unmap()

	dataBuffer := unsafe.Slice((*byte)(memoryPtr), bufferSize)
	copy(dataBuffer, buf.Bytes())
	return nil
}
