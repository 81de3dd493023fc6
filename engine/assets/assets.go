package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/trigon/engine/assets/loaders"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/metadata"
)

var ErrWatcherClosed = errors.New("asset watcher already closed")

type AssetInfo struct {
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

// AssetManager loads assets from disk and, once Watch is called, reports
// writes to watched files as EVENT_CODE_ASSET_CHANGED events.
type AssetManager struct {
	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader
	watched map[string]bool

	mutex sync.RWMutex

	events   *core.EventSystem
	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewAssetManager(events *core.EventSystem) *AssetManager {
	am := &AssetManager{
		assets:  make(map[string]AssetInfo),
		loaders: make(map[metadata.ResourceType]Loader),
		watched: make(map[string]bool),
		events:  events,
	}
	// Register loaders
	am.registerLoader(metadata.ResourceTypeShader, &loaders.ShaderLoader{})
	return am
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// LoadAsset loads path with the loader registered for resourceType.
// ResourceTypeNone picks the type from the file extension.
func (am *AssetManager) LoadAsset(path string, resourceType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	if resourceType == metadata.ResourceTypeNone {
		resourceType = determineAssetType(path)
	}
	loader, loaderExists := am.loaders[resourceType]
	if !loaderExists {
		return nil, fmt.Errorf("no loader registered for asset type: %d", resourceType)
	}

	res, err := loader.Load(path, resourceType, params)
	if err != nil {
		return nil, err
	}

	am.mutex.Lock()
	am.assets[filepath.Clean(path)] = AssetInfo{
		Path:       path,
		Type:       resourceType,
		LastLoaded: time.Now(),
	}
	am.mutex.Unlock()
	return res, nil
}

func (am *AssetManager) UnloadAsset(asset *metadata.Resource) error {
	loader, ok := am.loaders[asset.ResourceType]
	if !ok {
		return nil
	}
	return loader.Unload(asset)
}

func (am *AssetManager) Info(path string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[filepath.Clean(path)]
	return info, ok
}

// Watch starts reporting changes to the given file. The parent directory is
// watched so that editors replacing the file through a rename are noticed.
func (am *AssetManager) Watch(path string) error {
	if am.isClosed {
		return ErrWatcherClosed
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if am.fsnotify == nil {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		am.fsnotify = w
		am.done = make(chan struct{})
		am.stopped = make(chan struct{})
		go am.start()
	}
	if err := am.fsnotify.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	am.mutex.Lock()
	am.watched[abs] = true
	am.mutex.Unlock()
	core.LogDebug("watching '%s' for changes", abs)
	return nil
}

// Shutdown stops the watcher goroutine, if any, and waits for it to exit.
func (am *AssetManager) Shutdown() error {
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	if am.fsnotify != nil {
		close(am.done)
		<-am.stopped
	}
	return nil
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			// Handle create or modify events
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				am.handleFileEvent(e.Name)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(name string) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return
	}
	am.mutex.RLock()
	watched := am.watched[abs]
	am.mutex.RUnlock()
	if !watched {
		return
	}
	if s, err := os.Stat(abs); err != nil || s.IsDir() {
		return
	}
	am.events.Enqueue(core.EventContext{
		Type: core.EVENT_CODE_ASSET_CHANGED,
		Data: &core.AssetEvent{Path: abs},
	})
}

func determineAssetType(path string) metadata.ResourceType {
	switch filepath.Ext(path) {
	case ".wgsl":
		return metadata.ResourceTypeShader
	default:
		return metadata.ResourceTypeNone
	}
}
