// ABOUTME: File output backend rendering the stream to a WAV file
// ABOUTME: Push device that writes as fast as the sink supplies audio
package output

import (
	"fmt"
	"os"

	"github.com/Resonate-Protocol/streamsink/pkg/audio"
	"github.com/Resonate-Protocol/streamsink/pkg/audio/encode"
)

// DefaultWAVPath is used when no file is named
const DefaultWAVPath = "streamsink.wav"

type wavFileWriter struct {
	path string
	file *os.File
	enc  *encode.WAVWriter
}

// NewWAVFile creates a device that writes each opened stream to path
func NewWAVFile(path string) *PushDevice {
	if path == "" {
		path = DefaultWAVPath
	}
	return NewPushDevice("wav", &wavFileWriter{path: path})
}

func (w *wavFileWriter) Open(spec audio.Spec) (int, error) {
	f, err := os.Create(w.path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", w.path, err)
	}

	enc, err := encode.NewWAV(f, spec)
	if err != nil {
		f.Close()
		os.Remove(w.path)
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	w.file = f
	w.enc = enc
	return spec.MillisToBytes(50), nil
}

func (w *wavFileWriter) WriteBlock(p []byte) error {
	_, err := w.enc.Write(p)
	return err
}

func (w *wavFileWriter) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.enc.Close()
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	w.file = nil
	w.enc = nil
	return err
}
