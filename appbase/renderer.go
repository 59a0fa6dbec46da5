package appbase

import (
	"github.com/vkngwrapper/core/core1_0"
)

// Renderer is the per-demo drawing logic driven by App.
//
// Prepare runs once after Initialize and builds pipelines, buffers and
// descriptor sets. MakeCommand runs once per frame inside an active render
// pass; it must not begin or end the render pass. imageIndex is the swapchain
// image being drawn, and every per-image resource the renderer binds must be
// selected with it. Cleanup runs once after the device is idle and must
// release everything Prepare allocated. Cleanup also runs when Prepare failed
// part way, so it must skip resources that were never created.
type Renderer interface {
	Prepare(app *App) error
	MakeCommand(cmd core1_0.CommandBuffer, imageIndex int) error
	Cleanup(app *App) error
}
