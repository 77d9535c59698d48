// ABOUTME: PulseAudio output device using the pure-Go jfreymuth/pulse client
// ABOUTME: Pulls from the sink through typed sample readers
package output

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Resonate-Protocol/streamsink/pkg/audio"
	"github.com/jfreymuth/pulse"
)

// Pulse plays through a PulseAudio server. Volume is applied in software.
type Pulse struct {
	appName  string
	sinkName string
	latency  float64

	client  *pulse.Client
	stream  *pulse.PlaybackStream
	started bool
	fill    FillFunc
	format  audio.SampleFormat
	buf     []byte
}

// NewPulse creates a PulseAudio device. An empty sinkName uses the server
// default sink.
func NewPulse(appName, sinkName string, bufferMs int) *Pulse {
	if bufferMs <= 0 {
		bufferMs = 100
	}
	return &Pulse{
		appName:  appName,
		sinkName: sinkName,
		latency:  float64(bufferMs) / 1000,
	}
}

// Name returns the adapter name
func (p *Pulse) Name() string {
	return "pulse"
}

// Open connects to the server and creates a corked playback stream
func (p *Pulse) Open(spec audio.Spec, fill FillFunc) error {
	var reader pulse.Reader
	switch spec.Format {
	case audio.FormatS16LE, audio.FormatS16BE:
		reader = pulse.Int16Reader(p.readInt16)
	case audio.FormatS24LE, audio.FormatS32LE:
		// 24-bit samples are widened to the top of an int32
		reader = pulse.Int32Reader(p.readInt32)
	case audio.FormatF32LE:
		reader = pulse.Float32Reader(p.readFloat32)
	default:
		return fmt.Errorf("%w: %s on pulse", ErrUnsupportedFormat, spec.Format)
	}

	opts := []pulse.PlaybackOption{
		pulse.PlaybackSampleRate(spec.Rate),
		pulse.PlaybackLatency(p.latency),
	}
	switch spec.Channels {
	case 1:
		opts = append(opts, pulse.PlaybackMono)
	case 2:
		opts = append(opts, pulse.PlaybackStereo)
	default:
		return fmt.Errorf("%w: %d channels on pulse", ErrUnsupportedFormat, spec.Channels)
	}

	client, err := pulse.NewClient(pulse.ClientApplicationName(p.appName))
	if err != nil {
		return fmt.Errorf("failed to connect to pulseaudio: %w", err)
	}

	if p.sinkName != "" {
		sink, err := client.SinkByID(p.sinkName)
		if err != nil {
			client.Close()
			return fmt.Errorf("pulseaudio sink %q: %w", p.sinkName, err)
		}
		opts = append(opts, pulse.PlaybackSink(sink))
	}

	p.fill = fill
	p.format = spec.Format
	stream, err := client.NewPlayback(reader, opts...)
	if err != nil {
		client.Close()
		return fmt.Errorf("failed to create playback stream: %w", err)
	}

	p.client = client
	p.stream = stream
	p.started = false
	return nil
}

func (p *Pulse) pull(n int) []byte {
	if cap(p.buf) < n {
		p.buf = make([]byte, n)
	}
	buf := p.buf[:n]
	p.fill(buf)
	return buf
}

func (p *Pulse) readInt16(out []int16) (int, error) {
	decodeInt16(out, p.pull(len(out)*2), p.format)
	return len(out), nil
}

func (p *Pulse) readInt32(out []int32) (int, error) {
	decodeInt32(out, p.pull(len(out)*p.format.BytesPerSample()), p.format)
	return len(out), nil
}

// decodeInt16 converts S16LE or S16BE bytes to native samples
func decodeInt16(out []int16, buf []byte, format audio.SampleFormat) {
	var order binary.ByteOrder = binary.LittleEndian
	if format == audio.FormatS16BE {
		order = binary.BigEndian
	}
	for i := range out {
		out[i] = int16(order.Uint16(buf[i*2:]))
	}
}

// decodeInt32 converts S32LE or packed S24LE bytes to native samples
func decodeInt32(out []int32, buf []byte, format audio.SampleFormat) {
	if format == audio.FormatS24LE {
		for i := range out {
			out[i] = audio.SampleFrom24Bit([3]byte{buf[i*3], buf[i*3+1], buf[i*3+2]}) << 8
		}
		return
	}
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(buf[i*4:]))
	}
}

func (p *Pulse) readFloat32(out []float32) (int, error) {
	buf := p.pull(len(out) * 4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return len(out), nil
}

// Start starts the stream, or uncorks it after Pause
func (p *Pulse) Start() error {
	if p.stream == nil {
		return ErrNotOpen
	}
	if !p.started {
		p.stream.Start()
		p.started = true
	} else {
		p.stream.Resume()
	}
	return p.stream.Error()
}

// Pause corks the stream
func (p *Pulse) Pause() error {
	if p.stream == nil {
		return ErrNotOpen
	}
	p.stream.Pause()
	return p.stream.Error()
}

// Close tears down the stream and the connection
func (p *Pulse) Close() error {
	if p.stream != nil {
		p.stream.Close()
		p.stream = nil
	}
	if p.client != nil {
		p.client.Close()
		p.client = nil
	}
	return nil
}
