//go:build !debug

package appbase

const validationEnabled = false

var validationLayers []string
