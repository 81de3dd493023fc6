package engine

import (
	"errors"

	"github.com/spaghettifunk/trigon/engine/core"
)

// Process exit codes.
const (
	ExitOK = iota
	ExitShader
	ExitWindow
	ExitDevice
	ExitConfig
	ExitRuntime
)

// ExitCode maps an error returned by the engine to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, core.ErrShaderNotFound), errors.Is(err, core.ErrShaderCompile):
		return ExitShader
	case errors.Is(err, core.ErrWindowCreation):
		return ExitWindow
	case errors.Is(err, core.ErrDeviceUnavailable):
		return ExitDevice
	case errors.Is(err, core.ErrConfig):
		return ExitConfig
	default:
		return ExitRuntime
	}
}
