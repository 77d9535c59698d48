// ABOUTME: Tests for the PulseAudio sample conversion
// ABOUTME: Checks every sink format maps onto a pulse sample reader
package output

import (
	"errors"
	"testing"

	"github.com/Resonate-Protocol/streamsink/pkg/audio"
)

func TestDecodeInt16(t *testing.T) {
	tests := []struct {
		name   string
		format audio.SampleFormat
		in     []byte
		want   []int16
	}{
		{"little endian", audio.FormatS16LE, []byte{0xE0, 0xB1, 0xFF, 0x7F}, []int16{-20000, 32767}},
		{"big endian", audio.FormatS16BE, []byte{0xB1, 0xE0, 0x7F, 0xFF}, []int16{-20000, 32767}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := make([]int16, len(tt.want))
			decodeInt16(out, tt.in, tt.format)
			for i := range tt.want {
				if out[i] != tt.want[i] {
					t.Errorf("sample %d: expected %d, got %d", i, tt.want[i], out[i])
				}
			}
		})
	}
}

func TestDecodeInt32(t *testing.T) {
	tests := []struct {
		name   string
		format audio.SampleFormat
		in     []byte
		want   []int32
	}{
		{"s32", audio.FormatS32LE, []byte{0xC0, 0xBD, 0xF0, 0xFF, 0x01, 0x00, 0x00, 0x00}, []int32{-1000000, 1}},
		{"s24 widened", audio.FormatS24LE, []byte{0xFF, 0xFF, 0x7F, 0x00, 0x00, 0x80, 0x01, 0x00, 0x00}, []int32{0x7FFFFF00, -0x80000000, 0x100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := make([]int32, len(tt.want))
			decodeInt32(out, tt.in, tt.format)
			for i := range tt.want {
				if out[i] != tt.want[i] {
					t.Errorf("sample %d: expected %d, got %d", i, tt.want[i], out[i])
				}
			}
		})
	}
}

func TestPulseReadUsesStreamFormat(t *testing.T) {
	p := NewPulse("test", "", 0)
	p.format = audio.FormatS24LE
	p.fill = func(buf []byte) int {
		if len(buf) != 6 {
			t.Errorf("expected 6 bytes pulled for two 24-bit samples, got %d", len(buf))
		}
		return copy(buf, []byte{0x00, 0x00, 0x40, 0xFF, 0xFF, 0xFF})
	}

	out := make([]int32, 2)
	if n, err := p.readInt32(out); n != 2 || err != nil {
		t.Fatalf("readInt32 returned %d, %v", n, err)
	}
	if out[0] != 0x40000000 || out[1] != -0x100 {
		t.Errorf("unexpected samples %#x %#x", out[0], out[1])
	}
}

func TestPulseRejectsUnknownFormat(t *testing.T) {
	p := NewPulse("test", "", 0)
	err := p.Open(audio.Spec{Format: audio.FormatUnknown, Rate: 44100, Channels: 2}, func(buf []byte) int { return len(buf) })
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}
