// ABOUTME: Audio type definitions
// ABOUTME: Defines sample formats, stream specs and sample conversions
package audio

import "fmt"

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// SampleFormat identifies the layout of one PCM sample
type SampleFormat int

const (
	FormatUnknown SampleFormat = iota
	FormatS16LE                // signed 16-bit little-endian
	FormatS16BE                // signed 16-bit big-endian
	FormatS24LE                // signed 24-bit packed in 3 bytes, little-endian
	FormatS32LE                // signed 32-bit little-endian
	FormatF32LE                // 32-bit float little-endian
)

// BytesPerSample returns the size of one sample, or 0 for unknown formats
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case FormatS16LE, FormatS16BE:
		return 2
	case FormatS24LE:
		return 3
	case FormatS32LE, FormatF32LE:
		return 4
	default:
		return 0
	}
}

// Valid reports whether f is a known format
func (f SampleFormat) Valid() bool {
	return f.BytesPerSample() != 0
}

func (f SampleFormat) String() string {
	switch f {
	case FormatS16LE:
		return "S16LE"
	case FormatS16BE:
		return "S16BE"
	case FormatS24LE:
		return "S24LE"
	case FormatS32LE:
		return "S32LE"
	case FormatF32LE:
		return "F32LE"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// ParseFormat maps a format name (as printed by String) to a SampleFormat
func ParseFormat(name string) (SampleFormat, error) {
	for _, f := range []SampleFormat{FormatS16LE, FormatS16BE, FormatS24LE, FormatS32LE, FormatF32LE} {
		if f.String() == name {
			return f, nil
		}
	}
	return FormatUnknown, fmt.Errorf("unknown sample format: %q", name)
}

// Spec describes an interleaved PCM stream
type Spec struct {
	Format   SampleFormat
	Rate     int
	Channels int
}

// BytesPerFrame returns the size of one frame (one sample per channel)
func (s Spec) BytesPerFrame() int {
	return s.Format.BytesPerSample() * s.Channels
}

// BytesToFrames converts a byte count to whole frames
func (s Spec) BytesToFrames(n int) int {
	bpf := s.BytesPerFrame()
	if bpf == 0 {
		return 0
	}
	return n / bpf
}

// FramesToBytes converts a frame count to bytes
func (s Spec) FramesToBytes(frames int) int {
	return frames * s.BytesPerFrame()
}

// MillisToBytes returns the byte size of ms milliseconds of audio, in whole frames
func (s Spec) MillisToBytes(ms int) int {
	return s.FramesToBytes(int(Rescale(int64(ms), int64(s.Rate), 1000)))
}

func (s Spec) String() string {
	return fmt.Sprintf("%s %dHz %dch", s.Format, s.Rate, s.Channels)
}

// Rescale returns a*b/c using 64-bit intermediates, truncating toward zero
func Rescale(a, b, c int64) int64 {
	if c == 0 {
		return 0
	}
	return a * b / c
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}
