// ABOUTME: Streaming linear resampler for 16-bit PCM
// ABOUTME: Interpolates across chunk boundaries so chunked input resamples seamlessly
package resample

import (
	"encoding/binary"
	"math"
)

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64

	// position of the next output frame, in input frames relative to the
	// current chunk; -1 addresses lastFrame
	position  float64
	lastFrame []int16
	primed    bool
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		lastFrame:  make([]int16, channels),
	}
}

// OutputFrames returns an upper bound on the frames produced from inputFrames
func (r *Resampler) OutputFrames(inputFrames int) int {
	return int(float64(inputFrames+1)/r.ratio) + 2
}

// Resample converts interleaved input to the output rate and returns the
// number of samples written. output must hold OutputFrames(len(input)/channels)
// frames or input is dropped. The last input frame is held back until the
// next call.
func (r *Resampler) Resample(input []int16, output []int16) int {
	inputFrames := len(input) / r.channels
	if inputFrames == 0 {
		return 0
	}
	outputFrames := len(output) / r.channels

	sample := func(frame, ch int) float64 {
		if frame < 0 {
			return float64(r.lastFrame[ch])
		}
		return float64(input[frame*r.channels+ch])
	}

	outIdx := 0
	for outIdx < outputFrames {
		base := math.Floor(r.position)
		idx := int(base)
		if idx+1 >= inputFrames {
			break
		}

		frac := r.position - base
		for ch := 0; ch < r.channels; ch++ {
			interpolated := sample(idx, ch)*(1.0-frac) + sample(idx+1, ch)*frac
			output[outIdx*r.channels+ch] = int16(math.Round(interpolated))
		}

		outIdx++
		r.position += r.ratio
	}

	copy(r.lastFrame, input[(inputFrames-1)*r.channels:inputFrames*r.channels])
	r.position = max(r.position-float64(inputFrames), -1)
	r.primed = true

	return outIdx * r.channels
}

// Process resamples S16LE bytes
func (r *Resampler) Process(in []byte) []byte {
	input := make([]int16, len(in)/2)
	for i := range input {
		input[i] = int16(binary.LittleEndian.Uint16(in[i*2:]))
	}

	output := make([]int16, r.OutputFrames(len(input)/r.channels)*r.channels)
	n := r.Resample(input, output)

	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(output[i]))
	}
	return out
}

// Reset forgets the held-back frame, as after a seek
func (r *Resampler) Reset() {
	r.position = 0.0
	r.primed = false
	for i := range r.lastFrame {
		r.lastFrame[i] = 0
	}
}

// InputRate returns the source rate
func (r *Resampler) InputRate() int { return r.inputRate }

// OutputRate returns the target rate
func (r *Resampler) OutputRate() int { return r.outputRate }
