// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines SampleFormat, Spec and sample conversion functions
// Package audio provides fundamental PCM types shared by the sink, the
// decoders and the output adapters.
//
//   - SampleFormat: sample layout (S16LE, S16BE, S24LE, S32LE, F32LE)
//   - Spec: format, sample rate and channel count of an interleaved stream
//
// Frame arithmetic goes through Spec so that byte counts always land on
// whole frames:
//
//	spec := audio.Spec{Format: audio.FormatS16LE, Rate: 44100, Channels: 2}
//	spec.BytesPerFrame()     // 4
//	spec.MillisToBytes(500)  // 88200
package audio
