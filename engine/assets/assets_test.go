package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadShaderAsset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "triangle.wgsl")
	require.NoError(t, os.WriteFile(path, []byte("// empty"), 0o644))

	am := NewAssetManager(core.NewEventSystem())
	res, err := am.LoadAsset(path, metadata.ResourceTypeNone, nil)
	require.NoError(t, err)
	assert.Equal(t, metadata.ResourceTypeShader, res.ResourceType)
	assert.Equal(t, "triangle", res.Name)
	assert.Equal(t, "// empty", res.Data)

	info, ok := am.Info(path)
	require.True(t, ok)
	assert.Equal(t, metadata.ResourceTypeShader, info.Type)

	require.NoError(t, am.UnloadAsset(res))
	assert.Nil(t, res.Data)
}

func TestLoadMissingShader(t *testing.T) {
	am := NewAssetManager(core.NewEventSystem())
	_, err := am.LoadAsset(filepath.Join(t.TempDir(), "nope.wgsl"), metadata.ResourceTypeShader, nil)
	assert.ErrorIs(t, err, core.ErrShaderNotFound)

	_, err = am.LoadAsset("x.png", metadata.ResourceTypeNone, nil)
	assert.Error(t, err)
}

func TestWatchReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "triangle.wgsl")
	other := filepath.Join(dir, "other.wgsl")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))

	es := core.NewEventSystem()
	var changed []string
	es.Register(core.EVENT_CODE_ASSET_CHANGED, t, func(ctx core.EventContext) bool {
		changed = append(changed, ctx.Data.(*core.AssetEvent).Path)
		return true
	})

	am := NewAssetManager(es)
	require.NoError(t, am.Watch(path))
	defer am.Shutdown()

	require.NoError(t, os.WriteFile(other, []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("c"), 0o644))

	assert.Eventually(t, func() bool { return es.Pending() > 0 }, 2*time.Second, 10*time.Millisecond)
	es.Drain()
	require.NotEmpty(t, changed)
	abs, _ := filepath.Abs(path)
	for _, p := range changed {
		assert.Equal(t, abs, p)
	}
}

func TestWatchAfterShutdown(t *testing.T) {
	am := NewAssetManager(core.NewEventSystem())
	require.NoError(t, am.Shutdown())
	assert.ErrorIs(t, am.Watch("x.wgsl"), ErrWatcherClosed)
}
