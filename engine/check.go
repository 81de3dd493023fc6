package engine

import (
	"github.com/spaghettifunk/trigon/engine/assets"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/metadata"
	"github.com/spaghettifunk/trigon/engine/systems"
)

// CheckShader compiles the configured shader without creating a window or
// a device and returns the reflected vertex inputs.
func CheckShader(cfg ShaderConfig) ([]metadata.InputElement, error) {
	am := assets.NewAssetManager(core.NewEventSystem())
	defer am.Shutdown()

	res, err := am.LoadAsset(cfg.Path, metadata.ResourceTypeShader, nil)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	defer am.UnloadAsset(res)

	source, _ := res.Data.(string)
	compiled, err := systems.CompileShader(source, cfg.VertexEntry, cfg.PixelEntry)
	if err != nil {
		core.LogError("%s: %s", cfg.Path, err.Error())
		return nil, err
	}
	core.LogInfo("'%s' ok: %d bytes of SPIR-V, %d vertex inputs, %d uniform blocks", cfg.Path, len(compiled.Code), len(compiled.Signature), len(compiled.Uniforms))
	return compiled.Signature, nil
}
