//go:build !sdl

// ABOUTME: SDL stub when the library is not compiled in
// ABOUTME: Provides a device whose Open reports the missing build tag
package output

import (
	"fmt"

	"github.com/Resonate-Protocol/streamsink/pkg/audio"
)

type sdlWriter struct{}

// NewSDL creates an SDL device (stub)
func NewSDL(deviceName string, bufferMs int) *PushDevice {
	return NewPushDevice("sdl", sdlWriter{})
}

func (sdlWriter) Open(spec audio.Spec) (int, error) {
	return 0, fmt.Errorf("SDL support not enabled (build with -tags sdl)")
}

func (sdlWriter) WriteBlock(p []byte) error {
	return fmt.Errorf("SDL support not enabled (build with -tags sdl)")
}

func (sdlWriter) Close() error { return nil }
