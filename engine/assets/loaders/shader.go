package loaders

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/metadata"
)

// ShaderLoader reads WGSL source text.
type ShaderLoader struct{}

func (sl *ShaderLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, core.ErrShaderNotFound)
		}
		return nil, fmt.Errorf("%s: %w: %s", path, core.ErrShaderNotFound, err)
	}
	return &metadata.Resource{
		ResourceType: metadata.ResourceTypeShader,
		Name:         strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		FullPath:     path,
		DataSize:     uint64(len(data)),
		Data:         string(data),
	}, nil
}

func (sl *ShaderLoader) Unload(r *metadata.Resource) error {
	r.Data = nil
	r.DataSize = 0
	return nil
}
