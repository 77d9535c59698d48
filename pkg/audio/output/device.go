// ABOUTME: Device interfaces implemented by platform audio adapters
// ABOUTME: Defines the pull callback contract between the sink and hardware
package output

import (
	"github.com/Resonate-Protocol/streamsink/pkg/audio"
	"github.com/Resonate-Protocol/streamsink/pkg/audio/volume"
)

// FillFunc copies buffered audio into dst and returns the number of bytes
// of real audio written. The remainder of dst is zero-filled. It never
// blocks for longer than a memcpy under the sink lock.
type FillFunc func(dst []byte) int

// Device is an audio output consumer. Callback APIs invoke fill from their
// own thread; blocking-write APIs are adapted with NewPushDevice.
type Device interface {
	// Name identifies the adapter in logs
	Name() string

	// Open configures the device for spec and registers the pull callback.
	// The device must not pull until Start is called.
	Open(spec audio.Spec, fill FillFunc) error

	// Start begins or resumes pulling
	Start() error

	// Pause corks the device without discarding its configuration
	Pause() error

	// Close stops pulling and releases the device. No fill calls may
	// happen after Close returns.
	Close() error
}

// VolumeController is implemented by devices with native per-stream volume
type VolumeController interface {
	SetVolume(v volume.Stereo) error
	Volume() (volume.Stereo, error)
}

// Flusher is implemented by devices that queue audio of their own and can
// drop it on seek
type Flusher interface {
	Flush() error
}
