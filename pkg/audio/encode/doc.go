// ABOUTME: Audio encoder package for writing PCM to containers
// ABOUTME: Provides the WAV writer behind the file output backend
// Package encode writes interleaved PCM into container formats.
//
// Supports: WAV (16/24/32-bit integer, 32-bit float, big-endian 16-bit
// converted on the fly).
//
// Example:
//
//	w, err := encode.NewWAV(file, spec)
//	_, err = w.Write(pcm)
//	err = w.Close()
package encode
