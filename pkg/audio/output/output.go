// ABOUTME: Output device registry
// ABOUTME: Creates a device adapter by backend name
package output

import (
	"fmt"
	"sort"
)

// Options configure device construction
type Options struct {
	Device   string // device identifier, backend specific; empty for default
	BufferMs int    // driver-side buffer for backends that have one
	AppName  string // client name shown by sound servers
}

var backends = map[string]func(Options) Device{
	"malgo":     func(o Options) Device { return NewMalgo(o.Device) },
	"oto":       func(o Options) Device { return NewOto(o.BufferMs) },
	"pulse":     func(o Options) Device { return NewPulse(o.AppName, o.Device, o.BufferMs) },
	"oss":       func(o Options) Device { return NewOSS(o.Device, o.BufferMs) },
	"sdl":       func(o Options) Device { return NewSDL(o.Device, o.BufferMs) },
	"portaudio": func(o Options) Device { return NewPortAudio() },
	"null":      func(o Options) Device { return NewNull() },
	"wav":       func(o Options) Device { return NewWAVFile(o.Device) },
}

// DefaultBackend is used when no backend is named
const DefaultBackend = "malgo"

// New creates the device adapter called name
func New(name string, opts Options) (Device, error) {
	if name == "" {
		name = DefaultBackend
	}
	ctor, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown output backend %q (available: %v)", name, Backends())
	}
	return ctor(opts), nil
}

// Backends lists the registered backend names
func Backends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
