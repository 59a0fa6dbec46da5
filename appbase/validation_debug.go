//go:build debug

package appbase

const validationEnabled = true

var validationLayers = []string{"VK_LAYER_KHRONOS_validation"}
