package main

import (
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/vulkan-primer/appbase"
	"log"
)

// clearScreen records nothing. The render pass clear is the whole frame.
type clearScreen struct{}

func (clearScreen) Prepare(*appbase.App) error                   { return nil }
func (clearScreen) MakeCommand(core1_0.CommandBuffer, int) error { return nil }
func (clearScreen) Cleanup(*appbase.App) error                   { return nil }

func main() {
	cfg, err := appbase.LoadConfig("config.yaml", appbase.DefaultConfig())
	if err != nil {
		log.Fatalf("%+v\n", err)
	}

	err = appbase.Run(cfg, clearScreen{})
	if err != nil {
		log.Fatalf("%+v\n", err)
	}
}
