// ABOUTME: Audio output package for streaming PCM to a device
// ABOUTME: Provides the buffered Sink and platform device adapters
// Package output plays interleaved PCM through a buffered Sink.
//
// A single producer writes into the Sink's ring buffer while a Device pulls
// from it, either from an audio API callback (malgo, oto, pulse, portaudio)
// or from a write loop created by NewPushDevice (oss, sdl, wav, null).
//
// Example:
//
//	dev, err := output.New("malgo", output.Options{})
//	sink := output.NewSink(dev, output.Config{BufferMs: 500})
//	err = sink.Open(audio.FormatS16LE, 44100, 2)
//	for {
//		for sink.BufferFree() == 0 {
//			sink.PeriodWait()
//		}
//		err = sink.Write(chunk)
//	}
package output
