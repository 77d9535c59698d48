//go:build sdl

// ABOUTME: SDL2 output device using the audio queue
// ABOUTME: Pushes blocks with QueueAudio paced by the queued size
package output

import (
	"fmt"
	"time"

	"github.com/Resonate-Protocol/streamsink/pkg/audio"
	"github.com/veandco/go-sdl2/sdl"
)

type sdlWriter struct {
	deviceName string
	bufferMs   int

	dev       sdl.AudioDeviceID
	maxQueued uint32
	poll      time.Duration
}

// NewSDL creates an SDL device. An empty deviceName opens the default output.
func NewSDL(deviceName string, bufferMs int) *PushDevice {
	if bufferMs <= 0 {
		bufferMs = 100
	}
	return NewPushDevice("sdl", &sdlWriter{deviceName: deviceName, bufferMs: bufferMs})
}

func sdlFormat(f audio.SampleFormat) (sdl.AudioFormat, error) {
	switch f {
	case audio.FormatS16LE:
		return sdl.AUDIO_S16LSB, nil
	case audio.FormatS16BE:
		return sdl.AUDIO_S16MSB, nil
	case audio.FormatS32LE:
		return sdl.AUDIO_S32LSB, nil
	case audio.FormatF32LE:
		return sdl.AUDIO_F32LSB, nil
	default:
		return 0, fmt.Errorf("%w: %s on sdl", ErrUnsupportedFormat, f)
	}
}

func (w *sdlWriter) Open(spec audio.Spec) (int, error) {
	format, err := sdlFormat(spec.Format)
	if err != nil {
		return 0, err
	}

	if err := sdl.InitSubSystem(sdl.INIT_AUDIO); err != nil {
		return 0, fmt.Errorf("failed to initialize SDL audio: %w", err)
	}

	desired := sdl.AudioSpec{
		Freq:     int32(spec.Rate),
		Format:   format,
		Channels: uint8(spec.Channels),
		Samples:  4096,
	}
	dev, err := sdl.OpenAudioDevice(w.deviceName, false, &desired, nil, 0)
	if err != nil {
		sdl.QuitSubSystem(sdl.INIT_AUDIO)
		return 0, fmt.Errorf("failed to open SDL audio device: %w", err)
	}
	sdl.PauseAudioDevice(dev, false)

	period := spec.MillisToBytes(20)
	w.dev = dev
	w.maxQueued = uint32(spec.MillisToBytes(w.bufferMs))
	w.poll = 5 * time.Millisecond
	return period, nil
}

func (w *sdlWriter) WriteBlock(p []byte) error {
	for sdl.GetQueuedAudioSize(w.dev) > w.maxQueued {
		time.Sleep(w.poll)
	}
	return sdl.QueueAudio(w.dev, p)
}

func (w *sdlWriter) Reset() error {
	sdl.ClearQueuedAudio(w.dev)
	return nil
}

func (w *sdlWriter) Close() error {
	sdl.CloseAudioDevice(w.dev)
	sdl.QuitSubSystem(sdl.INIT_AUDIO)
	return nil
}
