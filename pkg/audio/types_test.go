// ABOUTME: Tests for audio types
// ABOUTME: Tests sample conversion functions and frame arithmetic
package audio

import "testing"

func TestSampleTo24Bit(t *testing.T) {
	tests := []struct {
		name     string
		input    int32
		expected [3]byte
	}{
		{"zero", 0, [3]byte{0, 0, 0}},
		{"positive", 0x123456, [3]byte{0x56, 0x34, 0x12}},
		{"negative", -256, [3]byte{0x00, 0xFF, 0xFF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleTo24Bit(tt.input)
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestSampleFrom24Bit(t *testing.T) {
	tests := []struct {
		name     string
		input    [3]byte
		expected int32
	}{
		{"zero", [3]byte{0, 0, 0}, 0},
		{"positive", [3]byte{0x56, 0x34, 0x12}, 0x123456},
		{"negative", [3]byte{0x00, 0xFF, 0xFF}, -256},
		{"max positive", [3]byte{0xFF, 0xFF, 0x7F}, Max24Bit},
		{"max negative", [3]byte{0x00, 0x00, 0x80}, Min24Bit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleFrom24Bit(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestRoundTrip24Bit(t *testing.T) {
	// Test that 24-bit samples survive round-trip conversion
	samples := []int32{0, 100000, -100000, Max24Bit, Min24Bit}

	for _, original := range samples {
		bytes := SampleTo24Bit(original)
		result := SampleFrom24Bit(bytes)
		// Mask to 24-bit for comparison
		expected := original & 0xFFFFFF
		if expected&0x800000 != 0 {
			expected |= ^0xFFFFFF
		}
		if result != expected {
			t.Errorf("round-trip failed: %d -> %v -> %d (expected %d)", original, bytes, result, expected)
		}
	}
}

func TestBytesPerFrame(t *testing.T) {
	tests := []struct {
		name     string
		spec     Spec
		expected int
	}{
		{"s16 stereo", Spec{FormatS16LE, 44100, 2}, 4},
		{"s16be mono", Spec{FormatS16BE, 22050, 1}, 2},
		{"s24 stereo", Spec{FormatS24LE, 96000, 2}, 6},
		{"s32 stereo", Spec{FormatS32LE, 48000, 2}, 8},
		{"float 6ch", Spec{FormatF32LE, 48000, 6}, 24},
		{"unknown", Spec{FormatUnknown, 48000, 2}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.spec.BytesPerFrame(); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestMillisToBytes(t *testing.T) {
	spec := Spec{Format: FormatS16LE, Rate: 44100, Channels: 2}

	if got := spec.MillisToBytes(1000); got != 176400 {
		t.Errorf("expected 176400 bytes for 1s, got %d", got)
	}
	if got := spec.MillisToBytes(500); got != 88200 {
		t.Errorf("expected 88200 bytes for 500ms, got %d", got)
	}
	// 1ms at 44.1kHz is 44.1 frames; must round down to whole frames
	if got := spec.MillisToBytes(1); got%spec.BytesPerFrame() != 0 {
		t.Errorf("expected frame-aligned size, got %d", got)
	}
}

func TestRescale(t *testing.T) {
	if got := Rescale(2500, 44100, 1000); got != 110250 {
		t.Errorf("expected 110250, got %d", got)
	}
	if got := Rescale(110250, 1000, 44100); got != 2500 {
		t.Errorf("expected 2500, got %d", got)
	}
	if got := Rescale(5, 5, 0); got != 0 {
		t.Errorf("expected 0 for zero divisor, got %d", got)
	}
}

func TestParseFormat(t *testing.T) {
	for _, f := range []SampleFormat{FormatS16LE, FormatS16BE, FormatS24LE, FormatS32LE, FormatF32LE} {
		got, err := ParseFormat(f.String())
		if err != nil {
			t.Fatalf("ParseFormat(%s) failed: %v", f, err)
		}
		if got != f {
			t.Errorf("expected %v, got %v", f, got)
		}
	}

	if _, err := ParseFormat("U8"); err == nil {
		t.Error("expected error for unsupported format name")
	}
}
