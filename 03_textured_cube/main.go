package main

import (
	"github.com/vkngwrapper/vulkan-primer/appbase"
	"log"
	"os"
)

//go:generate glslc shaders/shader.vert -o shaders/vert.spv
//go:generate glslc shaders/shader.frag -o shaders/frag.spv

func main() {
	base := appbase.DefaultConfig()
	base.Title = "TexturedCube"

	cfg, err := appbase.LoadConfig("config.yaml", base)
	if err != nil {
		log.Fatalf("%+v\n", err)
	}

	err = appbase.Run(cfg, &cubeRenderer{assets: os.DirFS(cfg.AssetDir)})
	if err != nil {
		log.Fatalf("%+v\n", err)
	}
}
