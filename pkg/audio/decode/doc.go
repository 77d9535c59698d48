// ABOUTME: Audio source package for file decoding and generated audio
// ABOUTME: Provides the Source interface and MP3, FLAC, Opus, WAV, CD and tone sources
// Package decode turns audio files into interleaved PCM bytes.
//
// Supports: MP3, FLAC, Ogg Opus, WAV, raw CD images (.cdda, .bin) and a
// test tone generator.
//
// Every source reports the audio.Spec of the bytes it produces and returns
// whole frames from Read. Sources that can reposition implement Seeker.
//
// Example:
//
//	src, err := decode.Open("track.flac")
//	spec := src.Spec()
//	n, err := src.Read(buf)
package decode
