// ABOUTME: Persistent player settings stored as YAML
// ABOUTME: Output backend, device, buffer size, remembered volume and remote port
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Resonate-Protocol/streamsink/pkg/audio/output"
	"github.com/Resonate-Protocol/streamsink/pkg/audio/volume"
)

// FileName is the settings file inside the config directory
const FileName = "streamsink.yaml"

// Settings holds values that survive restarts
type Settings struct {
	// Backend selects the output adapter (see output.Backends)
	Backend string `yaml:"backend"`

	// Device is the backend-specific device identifier. Empty = default.
	Device string `yaml:"device"`

	// BufferMs is the sink ring buffer size
	BufferMs int `yaml:"buffer_ms"`

	// SaveVolume writes volume changes back to the file and restores
	// them on the next open
	SaveVolume bool `yaml:"save_volume"`

	Volume Volume `yaml:"volume"`

	// SoftwareVolume disables the hardware mixer probe
	SoftwareVolume bool `yaml:"software_volume"`

	// RemotePort is the remote control listen port; 0 disables it
	RemotePort int `yaml:"remote_port"`
}

// Volume is the saved left/right volume
type Volume struct {
	Left  int `yaml:"left"`
	Right int `yaml:"right"`
}

// Default returns settings with defaults filled in
func Default() Settings {
	return Settings{
		Backend:    output.DefaultBackend,
		BufferMs:   500,
		SaveVolume: true,
		Volume:     Volume{Left: 100, Right: 100},
		RemotePort: 8928,
	}
}

// DefaultPath returns the settings file under the user config directory
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "streamsink", FileName), nil
}

// Load reads path. A missing file yields the defaults.
func Load(path string) (Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read settings: %w", err)
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return Default(), fmt.Errorf("parse settings %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Default(), fmt.Errorf("settings %s: %w", path, err)
	}
	return s, nil
}

// Save writes the settings to path, creating the directory
func (s Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	// Write then rename so a crash never leaves a truncated file
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Validate checks the values that cannot be clamped
func (s *Settings) Validate() error {
	if s.BufferMs <= 0 {
		return fmt.Errorf("buffer_ms must be positive, got %d", s.BufferMs)
	}
	if s.RemotePort < 0 || s.RemotePort > 65535 {
		return fmt.Errorf("remote_port out of range: %d", s.RemotePort)
	}
	known := false
	for _, name := range output.Backends() {
		if name == s.Backend {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown backend %q", s.Backend)
	}
	return nil
}

// StereoVolume returns the saved volume clamped to 0..100
func (s Settings) StereoVolume() volume.Stereo {
	return volume.Stereo{Left: s.Volume.Left, Right: s.Volume.Right}.Clamp()
}

// SetStereoVolume records v
func (s *Settings) SetStereoVolume(v volume.Stereo) {
	s.Volume = Volume{Left: v.Left, Right: v.Right}
}

// OutputConfig builds the sink configuration
func (s Settings) OutputConfig() output.Config {
	policy := output.VolumeAuto
	if s.SoftwareVolume {
		policy = output.VolumeSoftware
	}
	return output.Config{
		BufferMs:     s.BufferMs,
		VolumePolicy: policy,
	}
}
