//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import (
	"fmt"

	"github.com/Resonate-Protocol/streamsink/pkg/audio"
)

// PortAudio output implementation (stub)
type PortAudio struct{}

// NewPortAudio creates a new PortAudio output
func NewPortAudio() *PortAudio {
	return &PortAudio{}
}

// Name returns the adapter name
func (p *PortAudio) Name() string { return "portaudio" }

// Open fails: PortAudio is not compiled in
func (p *PortAudio) Open(spec audio.Spec, fill FillFunc) error {
	return fmt.Errorf("PortAudio support not enabled (build with -tags portaudio)")
}

func (p *PortAudio) Start() error { return ErrNotOpen }

func (p *PortAudio) Pause() error { return ErrNotOpen }

func (p *PortAudio) Close() error { return nil }
