//go:build !linux

// ABOUTME: OSS stub for platforms without /dev/dsp
// ABOUTME: Returns a device whose Open always fails
package output

import (
	"errors"

	"github.com/Resonate-Protocol/streamsink/pkg/audio"
)

// DefaultOSSDevice is the DSP opened when no path is configured
const DefaultOSSDevice = "/dev/dsp"

type ossWriter struct{}

// NewOSS creates an OSS device; unsupported on this platform
func NewOSS(path string, bufferMs int) *PushDevice {
	return NewPushDevice("oss", ossWriter{})
}

func (ossWriter) Open(spec audio.Spec) (int, error) {
	return 0, errors.New("OSS output is only available on linux")
}

func (ossWriter) WriteBlock(p []byte) error { return errors.New("OSS output not open") }

func (ossWriter) Close() error { return nil }
