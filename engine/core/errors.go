package core

import (
	"errors"
)

var (
	ErrSwapchainBooting = errors.New("swapchain resized or recreated, booting")
	ErrUnknown          = errors.New("unknown")

	// environment
	ErrWindowCreation    = errors.New("window creation failed")
	ErrDeviceUnavailable = errors.New("no compatible graphics device")

	// assets
	ErrShaderNotFound = errors.New("shader file not found")
	ErrShaderCompile  = errors.New("shader compilation failed")

	// internal
	ErrResourceCreation    = errors.New("gpu resource creation failed")
	ErrIncompleteBindings  = errors.New("draw issued with incomplete pipeline bindings")
	ErrBufferNotMappable   = errors.New("buffer is not cpu writable")
	ErrPartialWrite        = errors.New("mapped region smaller than record")
	ErrInvalidSlot         = errors.New("invalid binding slot")
	ErrInputLayoutMismatch = errors.New("input layout does not match vertex shader signature")
	ErrResourceReleased    = errors.New("resource already released")
	ErrConfig              = errors.New("invalid configuration")
)
