// ABOUTME: Malgo-based audio output device
// ABOUTME: Uses miniaudio via malgo with a pull data callback
package output

import (
	"fmt"
	"log"
	"strings"

	"github.com/Resonate-Protocol/streamsink/pkg/audio"
	"github.com/gen2brain/malgo"
)

// Malgo plays through miniaudio
type Malgo struct {
	deviceName string

	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
}

// NewMalgo creates a malgo device. An empty deviceName picks the system
// default; otherwise the first playback device whose name contains it.
func NewMalgo(deviceName string) *Malgo {
	return &Malgo{deviceName: deviceName}
}

// Name returns the adapter name
func (m *Malgo) Name() string {
	return "malgo"
}

func malgoFormat(f audio.SampleFormat) (malgo.FormatType, error) {
	switch f {
	case audio.FormatS16LE:
		return malgo.FormatS16, nil
	case audio.FormatS24LE:
		return malgo.FormatS24, nil
	case audio.FormatS32LE:
		return malgo.FormatS32, nil
	case audio.FormatF32LE:
		return malgo.FormatF32, nil
	default:
		return malgo.FormatUnknown, fmt.Errorf("%w: %s on malgo", ErrUnsupportedFormat, f)
	}
}

// Open initializes the playback device without starting it
func (m *Malgo) Open(spec audio.Spec, fill FillFunc) error {
	format, err := malgoFormat(spec.Format)
	if err != nil {
		return err
	}

	if m.malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return fmt.Errorf("failed to initialize malgo context: %w", err)
		}
		m.malgoCtx = ctx
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = format
	deviceConfig.Playback.Channels = uint32(spec.Channels)
	deviceConfig.SampleRate = uint32(spec.Rate)
	deviceConfig.Alsa.NoMMap = 1

	if m.deviceName != "" {
		infos, err := m.malgoCtx.Devices(malgo.Playback)
		if err != nil {
			m.freeContext()
			return fmt.Errorf("failed to list playback devices: %w", err)
		}
		found := false
		for i := range infos {
			if strings.Contains(infos[i].Name(), m.deviceName) {
				deviceConfig.Playback.DeviceID = infos[i].ID.Pointer()
				found = true
				break
			}
		}
		if !found {
			m.freeContext()
			return fmt.Errorf("playback device %q not found", m.deviceName)
		}
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, pInputSamples []byte, frameCount uint32) {
			fill(pOutputSample)
		},
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		m.freeContext()
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}
	m.device = device

	log.Printf("malgo device initialized: %s", spec)
	return nil
}

// Start begins pulling from the sink
func (m *Malgo) Start() error {
	if m.device == nil {
		return ErrNotOpen
	}
	return m.device.Start()
}

// Pause stops the device. Stop waits for a running callback to return.
func (m *Malgo) Pause() error {
	if m.device == nil {
		return ErrNotOpen
	}
	return m.device.Stop()
}

// Close releases the device and context
func (m *Malgo) Close() error {
	if m.device != nil {
		if m.device.IsStarted() {
			if err := m.device.Stop(); err != nil {
				log.Printf("Warning: device stop error: %v", err)
			}
		}
		m.device.Uninit()
		m.device = nil
	}
	m.freeContext()
	return nil
}

func (m *Malgo) freeContext() {
	if m.malgoCtx == nil {
		return
	}
	if err := m.malgoCtx.Uninit(); err != nil {
		log.Printf("Warning: malgo context uninit error: %v", err)
	}
	m.malgoCtx.Free()
	m.malgoCtx = nil
}
