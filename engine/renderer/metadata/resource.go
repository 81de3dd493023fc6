package metadata

type ResourceType int

const (
	// ResourceTypeNone marks a file the asset manager does not track.
	ResourceTypeNone ResourceType = iota
	// ResourceTypeShader is WGSL source text.
	ResourceTypeShader
)

// Resource is what a loader returns. Data holds the decoded payload, a
// string for shaders.
type Resource struct {
	ResourceType ResourceType
	Name         string
	FullPath     string
	DataSize     uint64
	Data         interface{}
}
