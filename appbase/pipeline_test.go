package appbase

import (
	"github.com/stretchr/testify/assert"
	"github.com/vkngwrapper/core/core1_0"
	"testing"
)

func TestViewport(t *testing.T) {
	extent := core1_0.Extent2D{Width: 640, Height: 480}

	vp := Viewport(extent, false)
	assert.Equal(t, float32(0), vp.Y)
	assert.Equal(t, float32(640), vp.Width)
	assert.Equal(t, float32(480), vp.Height)
	assert.Equal(t, float32(1), vp.MaxDepth)

	flipped := Viewport(extent, true)
	assert.Equal(t, float32(480), flipped.Y)
	assert.Equal(t, float32(-480), flipped.Height)
	assert.Equal(t, vp.Width, flipped.Width)
}

func TestBlendPresets(t *testing.T) {
	assert.False(t, OpaqueBlend().BlendEnabled)
	assert.Equal(t, colorWriteAll, OpaqueBlend().ColorWriteMask)

	additive := AdditiveBlend()
	assert.True(t, additive.BlendEnabled)
	assert.Equal(t, core1_0.BlendFactorOne, additive.SrcColorBlendFactor)
	assert.Equal(t, core1_0.BlendFactorOne, additive.DstColorBlendFactor)
	assert.Equal(t, core1_0.BlendFactorOne, additive.DstAlphaBlendFactor)

	alpha := AlphaBlend()
	assert.True(t, alpha.BlendEnabled)
	assert.Equal(t, core1_0.BlendFactorSrcAlpha, alpha.SrcColorBlendFactor)
	assert.Equal(t, core1_0.BlendFactorOneMinusSrcAlpha, alpha.DstColorBlendFactor)
	assert.Equal(t, core1_0.BlendOpAdd, alpha.ColorBlendOp)
}
