//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Opens the triangle window with the Vulkan backend.
func (Run) App() error {
	mg.Deps(Build.Shaders)
	fmt.Println("Run trigon...")
	if _, err := executeCmd(binaryPath, withStream()); err != nil {
		return err
	}
	return nil
}

// Renders 120 frames in software and writes the last one to bin/frame.png.
func (Run) Headless() error {
	mg.Deps(Build.Binary)
	fmt.Println("Run trigon headless...")
	if _, err := executeCmd(binaryPath, withArgs("-backend", "headless", "-frames", "120", "-capture", "bin/frame.png"), withStream()); err != nil {
		return err
	}
	return nil
}
