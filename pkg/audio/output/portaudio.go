//go:build portaudio

// ABOUTME: PortAudio output device
// ABOUTME: Cross-platform audio output using a PortAudio stream callback
package output

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Resonate-Protocol/streamsink/pkg/audio"
	"github.com/gordonklaus/portaudio"
)

// PortAudio plays through the default PortAudio output
type PortAudio struct {
	stream *portaudio.Stream
	fill   FillFunc
	buf    []byte
}

// NewPortAudio creates a PortAudio device
func NewPortAudio() *PortAudio {
	return &PortAudio{}
}

// Name returns the adapter name
func (p *PortAudio) Name() string {
	return "portaudio"
}

func (p *PortAudio) pull(n int) []byte {
	if cap(p.buf) < n {
		p.buf = make([]byte, n)
	}
	buf := p.buf[:n]
	p.fill(buf)
	return buf
}

// Open initializes PortAudio and opens a stopped stream
func (p *PortAudio) Open(spec audio.Spec, fill FillFunc) error {
	var callback interface{}
	switch spec.Format {
	case audio.FormatS16LE:
		callback = func(out []int16) {
			buf := p.pull(len(out) * 2)
			for i := range out {
				out[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
			}
		}
	case audio.FormatS32LE:
		callback = func(out []int32) {
			buf := p.pull(len(out) * 4)
			for i := range out {
				out[i] = int32(binary.LittleEndian.Uint32(buf[i*4:]))
			}
		}
	case audio.FormatF32LE:
		callback = func(out []float32) {
			buf := p.pull(len(out) * 4)
			for i := range out {
				out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
			}
		}
	default:
		return fmt.Errorf("%w: %s on portaudio", ErrUnsupportedFormat, spec.Format)
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	p.fill = fill
	stream, err := portaudio.OpenDefaultStream(0, spec.Channels, float64(spec.Rate), 0, callback)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("failed to open stream: %w", err)
	}
	p.stream = stream
	return nil
}

// Start starts the stream
func (p *PortAudio) Start() error {
	if p.stream == nil {
		return ErrNotOpen
	}
	return p.stream.Start()
}

// Pause stops the stream
func (p *PortAudio) Pause() error {
	if p.stream == nil {
		return ErrNotOpen
	}
	return p.stream.Stop()
}

// Close releases resources
func (p *PortAudio) Close() error {
	if p.stream == nil {
		return nil
	}
	err := p.stream.Close()
	p.stream = nil
	portaudio.Terminate()
	return err
}
