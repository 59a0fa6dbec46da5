package appbase

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/core1_0"
	"math"
)

// Perspective is a right-handed projection onto Vulkan's [0,1] depth range.
// Y is not inverted, so it pairs with a FlipY viewport.
func Perspective(fovy, aspect, near, far float32) mgl32.Mat4 {
	f := float32(1. / math.Tan(float64(fovy)/2.0))
	fmn := far - near

	return mgl32.Mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, -far / fmn, -1,
		0, 0, -(far * near) / fmn, 0,
	}
}

// AspectRatio is width over height of extent.
func AspectRatio(extent core1_0.Extent2D) float32 {
	if extent.Height == 0 {
		return 1
	}
	return float32(extent.Width) / float32(extent.Height)
}
