// ABOUTME: Test tone generator source
// ABOUTME: Generates a sum of sine waves, 440 Hz by default
package decode

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/Resonate-Protocol/streamsink/pkg/audio"
)

const (
	toneScheme = "tone://"
	toneRate   = 44100

	minToneFreq = 10
	maxToneFreq = 20000
)

// Tone generates an endless stereo test signal
type Tone struct {
	freqs    []float64
	position int64 // frames generated
	spec     audio.Spec
}

// NewTone creates a generator for freqs. No frequencies means 440 Hz.
func NewTone(freqs []float64) *Tone {
	if len(freqs) == 0 {
		freqs = []float64{440.0}
	}
	return &Tone{
		freqs: freqs,
		spec:  audio.Spec{Format: audio.FormatS16LE, Rate: toneRate, Channels: 2},
	}
}

// ParseToneURL reads the frequency list of a tone://440;880 URL
func ParseToneURL(url string) ([]float64, error) {
	if !strings.HasPrefix(url, toneScheme) {
		return nil, fmt.Errorf("not a tone URL: %q", url)
	}

	var freqs []float64
	for _, field := range strings.Split(strings.TrimPrefix(url, toneScheme), ";") {
		if field == "" {
			continue
		}
		f, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid tone frequency %q: %w", field, err)
		}
		if f >= minToneFreq && f <= maxToneFreq {
			freqs = append(freqs, f)
		}
	}
	if len(freqs) == 0 {
		return nil, fmt.Errorf("no valid frequencies in %q (range %d-%d Hz)", url, minToneFreq, maxToneFreq)
	}
	return freqs, nil
}

func (s *Tone) Read(p []byte) (int, error) {
	bpf := s.spec.BytesPerFrame()
	frames := len(p) / bpf
	if frames == 0 {
		return 0, io.ErrShortBuffer
	}

	for i := 0; i < frames; i++ {
		t := float64(s.position+int64(i)) / float64(toneRate)
		sum := 0.0
		for _, f := range s.freqs {
			sum += math.Sin(2 * math.Pi * f * t)
		}

		// 50% volume
		v := uint16(int16(sum / float64(len(s.freqs)) * 32767.0 * 0.5))
		binary.LittleEndian.PutUint16(p[i*bpf:], v)
		binary.LittleEndian.PutUint16(p[i*bpf+2:], v)
	}

	s.position += int64(frames)
	return frames * bpf, nil
}

func (s *Tone) Spec() audio.Spec { return s.spec }

// Duration is 0: the tone never ends
func (s *Tone) Duration() int { return 0 }

func (s *Tone) Metadata() Metadata {
	names := make([]string, len(s.freqs))
	for i, f := range s.freqs {
		names[i] = fmt.Sprintf("%.1f Hz", f)
	}
	return Metadata{
		Title:  "Tone Generator: " + strings.Join(names, ";"),
		Artist: "streamsink",
		Album:  "Test Signals",
	}
}

// Seek moves the generator phase to ms
func (s *Tone) Seek(ms int) error {
	s.position = audio.Rescale(int64(max(ms, 0)), toneRate, 1000)
	return nil
}

func (s *Tone) Close() error { return nil }
