// ABOUTME: Error taxonomy for audio output
// ABOUTME: Separates configuration, device and resource failures
package output

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned when a device or the sink cannot play a stream spec
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrNotOpen is returned by operations that need an open stream
	ErrNotOpen = errors.New("output not open")

	// ErrAlreadyOpen is returned by Open on an open sink
	ErrAlreadyOpen = errors.New("output already open")

	// ErrOverflow is returned by Write when the data does not fit the free space
	ErrOverflow = errors.New("write exceeds free buffer space")

	// ErrNoHardwareVolume is returned by devices without native volume control
	ErrNoHardwareVolume = errors.New("hardware volume not available")
)

// Kind classifies an output error
type Kind int

const (
	// KindConfiguration covers unsupported formats, rates and channel counts
	KindConfiguration Kind = iota
	// KindDevice covers failures reported by the audio API or driver
	KindDevice
	// KindResource covers buffer allocation failures
	KindResource
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindDevice:
		return "device"
	case KindResource:
		return "resource"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is returned by Sink operations that fail
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// deviceError wraps a device failure, promoting format rejections to
// configuration errors
func deviceError(op string, err error) *Error {
	if errors.Is(err, ErrUnsupportedFormat) {
		return &Error{Kind: KindConfiguration, Op: op, Err: err}
	}
	return &Error{Kind: KindDevice, Op: op, Err: err}
}
