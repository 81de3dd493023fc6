//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

const (
	binaryPath = "bin/trigon"
	shaderPath = "assets/shaders/triangle.wgsl"
)

type Build mg.Namespace

// Compiles the trigon binary into bin/.
func (Build) Binary() error {
	if _, err := executeCmd("go", withArgs("build", "-o", binaryPath, "."), withStream()); err != nil {
		return err
	}
	return nil
}

// Compiles the WGSL shaders to SPIR-V without opening a window.
func (Build) Shaders() error {
	mg.Deps(Build.Binary)
	if _, err := executeCmd(binaryPath, withArgs("-check-shaders", "-shader", shaderPath), withStream()); err != nil {
		return err
	}
	return nil
}
