package main

import (
	"github.com/vkngwrapper/vulkan-primer/appbase"
	"log"
	"os"
)

//go:generate glslc shaders/shader.vert -o shaders/vert.spv
//go:generate glslc shaders/shader.frag -o shaders/frag.spv
//go:generate glslc shaders/shaderAlpha.frag -o shaders/alpha.spv

func main() {
	base := appbase.DefaultConfig()
	base.Title = "DrawModel"
	base.Model = "models/scene.obj"

	cfg, err := appbase.LoadConfig("config.yaml", base)
	if err != nil {
		log.Fatalf("%+v\n", err)
	}

	err = appbase.Run(cfg, &modelRenderer{
		assets:    os.DirFS(cfg.AssetDir),
		modelName: cfg.Model,
	})
	if err != nil {
		log.Fatalf("%+v\n", err)
	}
}
