// ABOUTME: Tests for software volume scaling
// ABOUTME: Verifies the gain law and per-format sample scaling
package volume

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Resonate-Protocol/streamsink/pkg/audio"
)

func TestGainFactor(t *testing.T) {
	tests := []struct {
		level    int
		expected float64
	}{
		{100, 1.0},
		{0, 0.0},
		{50, 0.1},    // -20 dB
		{75, 0.3162}, // -10 dB
		{150, 1.0},   // clamped
		{-5, 0.0},    // clamped
	}

	for _, tt := range tests {
		got := GainFactor(tt.level)
		if math.Abs(got-tt.expected) > 0.0001 {
			t.Errorf("level=%d: expected %f, got %f", tt.level, tt.expected, got)
		}
	}
}

func s16(samples ...int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(s))
	}
	return b
}

func readS16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return out
}

func TestApplyMuteIsSilence(t *testing.T) {
	spec := audio.Spec{Format: audio.FormatS16LE, Rate: 44100, Channels: 2}
	data := s16(32767, -32768, 1000, -1000)

	Apply(data, spec, Stereo{0, 0})

	for i, s := range readS16(data) {
		if s != 0 {
			t.Errorf("sample %d: expected silence, got %d", i, s)
		}
	}
}

func TestApplyFullIsIdentity(t *testing.T) {
	spec := audio.Spec{Format: audio.FormatS16LE, Rate: 44100, Channels: 2}
	data := s16(1234, -4321)

	Apply(data, spec, Full)

	got := readS16(data)
	if got[0] != 1234 || got[1] != -4321 {
		t.Errorf("expected unchanged samples, got %v", got)
	}
}

func TestApplyStereoPerChannel(t *testing.T) {
	spec := audio.Spec{Format: audio.FormatS16LE, Rate: 44100, Channels: 2}
	data := s16(10000, 10000, 10000, 10000)

	Apply(data, spec, Stereo{Left: 50, Right: 0})

	got := readS16(data)
	for i := 0; i < len(got); i += 2 {
		if got[i] < 990 || got[i] > 1000 {
			t.Errorf("left sample %d: expected ~1000 (-20dB), got %d", i, got[i])
		}
		if got[i+1] != 0 {
			t.Errorf("right sample %d: expected 0, got %d", i+1, got[i+1])
		}
	}
}

func TestApplyMonoUsesLouderChannel(t *testing.T) {
	spec := audio.Spec{Format: audio.FormatS16LE, Rate: 44100, Channels: 1}
	data := s16(10000)

	Apply(data, spec, Stereo{Left: 0, Right: 50})

	if got := readS16(data)[0]; got < 990 || got > 1000 {
		t.Errorf("expected ~1000, got %d", got)
	}
}

func TestApplyS16BigEndian(t *testing.T) {
	spec := audio.Spec{Format: audio.FormatS16BE, Rate: 44100, Channels: 1}
	data := make([]byte, 2)
	sample := int16(-20000)
	binary.BigEndian.PutUint16(data, uint16(sample))

	Apply(data, spec, Stereo{50, 50})

	got := int16(binary.BigEndian.Uint16(data))
	if got > -1990 || got < -2010 {
		t.Errorf("expected ~-2000, got %d", got)
	}
}

func TestApplyOtherFormats(t *testing.T) {
	t.Run("s24", func(t *testing.T) {
		spec := audio.Spec{Format: audio.FormatS24LE, Rate: 96000, Channels: 1}
		b := audio.SampleTo24Bit(1000000)
		data := b[:]

		Apply(data, spec, Stereo{50, 50})

		got := audio.SampleFrom24Bit([3]byte{data[0], data[1], data[2]})
		if got < 99900 || got > 100100 {
			t.Errorf("expected ~100000, got %d", got)
		}
	})

	t.Run("s32", func(t *testing.T) {
		spec := audio.Spec{Format: audio.FormatS32LE, Rate: 48000, Channels: 1}
		data := make([]byte, 4)
		sample := int32(-1000000)
		binary.LittleEndian.PutUint32(data, uint32(sample))

		Apply(data, spec, Stereo{50, 50})

		got := int32(binary.LittleEndian.Uint32(data))
		if got > -99900 || got < -100100 {
			t.Errorf("expected ~-100000, got %d", got)
		}
	})

	t.Run("f32", func(t *testing.T) {
		spec := audio.Spec{Format: audio.FormatF32LE, Rate: 48000, Channels: 1}
		data := make([]byte, 4)
		binary.LittleEndian.PutUint32(data, math.Float32bits(0.5))

		Apply(data, spec, Stereo{50, 50})

		got := math.Float32frombits(binary.LittleEndian.Uint32(data))
		if math.Abs(float64(got)-0.05) > 0.0001 {
			t.Errorf("expected 0.05, got %f", got)
		}
	})
}

func TestClamp(t *testing.T) {
	got := Stereo{Left: -10, Right: 140}.Clamp()
	if got != (Stereo{0, 100}) {
		t.Errorf("expected {0 100}, got %v", got)
	}
}
