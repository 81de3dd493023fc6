/*
Trigon opens a window and draws a single triangle that the arrow keys move
around. Escape or closing the window quits.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/trigon/engine"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/triangle"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", engine.DefaultConfigPath, "path of the TOML configuration")
	backend := flag.String("backend", "", "renderer backend, vulkan or headless")
	frames := flag.Uint64("frames", 0, "stop after this many frames")
	capture := flag.String("capture", "", "headless only: write the last frame to this PNG")
	shader := flag.String("shader", "", "WGSL shader path")
	checkShaders := flag.Bool("check-shaders", false, "compile the shader and exit")
	flag.Parse()

	explicit := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			explicit = true
		}
	})
	cfg, err := engine.LoadConfig(*configPath, explicit)
	if err != nil {
		core.LogError(err.Error())
		return engine.ExitCode(err)
	}
	if *backend != "" {
		cfg.Renderer.Backend = *backend
	}
	if *frames > 0 {
		cfg.Renderer.Frames = *frames
	}
	if *capture != "" {
		cfg.Renderer.Capture = *capture
	}
	if *shader != "" {
		cfg.Shader.Path = *shader
	}
	if err := cfg.Validate(); err != nil {
		core.LogError(err.Error())
		return engine.ExitCode(err)
	}

	if *checkShaders {
		_, err := engine.CheckShader(cfg.Shader)
		return engine.ExitCode(err)
	}

	e, err := engine.New(triangle.NewGame(cfg))
	if err != nil {
		return engine.ExitCode(err)
	}

	if err := e.Initialize(); err != nil {
		core.LogError("initialization failed: %s", err.Error())
		return engine.ExitCode(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer signal.Stop(sigCh)

	// a signal asks the loop to stop like a close request would
	go func() {
		if _, ok := <-sigCh; ok {
			e.Stop()
		}
	}()

	runErr := e.Run()
	if runErr != nil {
		core.LogError("render loop failed: %s", runErr.Error())
	}
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err.Error())
		if runErr == nil {
			runErr = err
		}
	}
	return engine.ExitCode(runErr)
}
