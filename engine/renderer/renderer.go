package renderer

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/trigon/engine/core"
)

type RendererType uint8

const (
	Vulkan RendererType = iota
	Headless
)

func (t RendererType) String() string {
	switch t {
	case Vulkan:
		return "vulkan"
	case Headless:
		return "headless"
	}
	return fmt.Sprintf("renderer(%d)", uint8(t))
}

func ParseRendererType(s string) (RendererType, error) {
	switch strings.ToLower(s) {
	case "vulkan":
		return Vulkan, nil
	case "headless":
		return Headless, nil
	}
	return 0, fmt.Errorf("unknown renderer backend %q: %w", s, core.ErrConfig)
}
