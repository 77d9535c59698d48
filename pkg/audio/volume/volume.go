// ABOUTME: Logarithmic volume law and software PCM scaling
// ABOUTME: Applies per-channel gain to interleaved samples with clipping protection
package volume

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Resonate-Protocol/streamsink/pkg/audio"
)

// RangeDB is the attenuation at volume 1, relative to volume 100
const RangeDB = 40

// Stereo holds left and right volume levels (0-100)
type Stereo struct {
	Left  int `yaml:"left" json:"left"`
	Right int `yaml:"right" json:"right"`
}

// Full is unity gain on both channels
var Full = Stereo{Left: 100, Right: 100}

// Clamp returns v with both channels limited to 0-100
func (v Stereo) Clamp() Stereo {
	return Stereo{Left: clampLevel(v.Left), Right: clampLevel(v.Right)}
}

// Max returns the louder of the two channels
func (v Stereo) Max() int {
	return max(v.Left, v.Right)
}

func (v Stereo) String() string {
	return fmt.Sprintf("L%d/R%d", v.Left, v.Right)
}

func clampLevel(level int) int {
	if level < 0 {
		return 0
	}
	if level > 100 {
		return 100
	}
	return level
}

// GainFactor converts a 0-100 level to a linear multiplier
func GainFactor(level int) float64 {
	level = clampLevel(level)
	if level == 0 {
		return 0
	}
	return math.Pow(10, float64(RangeDB)*float64(level-100)/100/20)
}

// fixedFactor is GainFactor as a 16.16 fixed-point multiplier
func fixedFactor(level int) int32 {
	return int32(GainFactor(level) * 65536)
}

// Supported reports whether Apply can scale the given format
func Supported(format audio.SampleFormat) bool {
	return format.Valid()
}

// Apply scales interleaved PCM in place. Stereo streams get separate left
// and right gains; every other channel count uses the louder channel's gain.
func Apply(data []byte, spec audio.Spec, v Stereo) {
	if v.Left >= 100 && v.Right >= 100 {
		return
	}

	bps := spec.Format.BytesPerSample()
	if bps == 0 || spec.Channels <= 0 {
		return
	}

	var factors []float64
	if spec.Channels == 2 {
		factors = []float64{GainFactor(v.Left), GainFactor(v.Right)}
	} else {
		factors = []float64{GainFactor(v.Max())}
	}

	switch spec.Format {
	case audio.FormatS16LE, audio.FormatS16BE:
		applyS16(data, spec, v)
	case audio.FormatS24LE:
		for i := 0; i+3 <= len(data); i += 3 {
			f := factors[(i/3)%len(factors)]
			s := audio.SampleFrom24Bit([3]byte{data[i], data[i+1], data[i+2]})
			b := audio.SampleTo24Bit(clamp24(float64(s) * f))
			copy(data[i:i+3], b[:])
		}
	case audio.FormatS32LE:
		for i := 0; i+4 <= len(data); i += 4 {
			f := factors[(i/4)%len(factors)]
			s := int32(binary.LittleEndian.Uint32(data[i:]))
			binary.LittleEndian.PutUint32(data[i:], uint32(clamp32(float64(s)*f)))
		}
	case audio.FormatF32LE:
		for i := 0; i+4 <= len(data); i += 4 {
			f := factors[(i/4)%len(factors)]
			s := math.Float32frombits(binary.LittleEndian.Uint32(data[i:]))
			binary.LittleEndian.PutUint32(data[i:], math.Float32bits(float32(float64(s)*f)))
		}
	}
}

// applyS16 uses 16.16 fixed point; the factor never exceeds 1.0 so the
// result always fits in int16
func applyS16(data []byte, spec audio.Spec, v Stereo) {
	var order binary.ByteOrder = binary.LittleEndian
	if spec.Format == audio.FormatS16BE {
		order = binary.BigEndian
	}

	factors := []int32{fixedFactor(v.Max())}
	if spec.Channels == 2 {
		factors = []int32{fixedFactor(v.Left), fixedFactor(v.Right)}
	}

	for i := 0; i+2 <= len(data); i += 2 {
		f := factors[(i/2)%len(factors)]
		s := int32(int16(order.Uint16(data[i:])))
		order.PutUint16(data[i:], uint16(int16((s*f)>>16)))
	}
}

func clamp24(x float64) int32 {
	if x > audio.Max24Bit {
		return audio.Max24Bit
	}
	if x < audio.Min24Bit {
		return audio.Min24Bit
	}
	return int32(x)
}

func clamp32(x float64) int32 {
	if x > math.MaxInt32 {
		return math.MaxInt32
	}
	if x < math.MinInt32 {
		return math.MinInt32
	}
	return int32(x)
}
