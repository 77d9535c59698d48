// ABOUTME: Remote control message type definitions
// ABOUTME: Hello, command, status and error payloads wrapped in a typed envelope
package protocol

import (
	"encoding/json"
	"fmt"
)

// ControlPath is the WebSocket endpoint served by the player
const ControlPath = "/control"

// Message types
const (
	TypeHello   = "server/hello"
	TypeStatus  = "server/status"
	TypeError   = "server/error"
	TypeCommand = "client/command"
)

// Commands accepted in a client/command message
const (
	CommandPause          = "pause"
	CommandResume         = "resume"
	CommandToggle         = "toggle"
	CommandSeek           = "seek"
	CommandSeekRelative   = "seek_relative"
	CommandVolume         = "volume"
	CommandVolumeRelative = "volume_relative"
	CommandStatus         = "status"
)

// Message is the top-level wrapper for all protocol messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// DecodePayload converts a decoded Message payload into v
func DecodePayload(msg Message, v interface{}) error {
	data, err := json.Marshal(msg.Payload)
	if err != nil {
		return fmt.Errorf("re-encode %s payload: %w", msg.Type, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", msg.Type, err)
	}
	return nil
}

// Hello is sent by the player when a controller connects
type Hello struct {
	ServerID   string     `json:"server_id"`
	Name       string     `json:"name"`
	DeviceInfo DeviceInfo `json:"device_info"`
}

// DeviceInfo contains device identification
type DeviceInfo struct {
	ProductName     string `json:"product_name"`
	Manufacturer    string `json:"manufacturer"`
	SoftwareVersion string `json:"software_version"`
}

// Volume is a left/right volume in 0..100
type Volume struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

// Command asks the player to do something
type Command struct {
	Command string `json:"command"`

	// PositionMs is the target for seek
	PositionMs int `json:"position_ms,omitempty"`

	// Delta is the offset for seek_relative (ms) and volume_relative
	Delta int `json:"delta,omitempty"`

	// Volume is the target for volume
	Volume *Volume `json:"volume,omitempty"`
}

// Validate checks that the command carries what it needs
func (c Command) Validate() error {
	switch c.Command {
	case CommandPause, CommandResume, CommandToggle, CommandStatus,
		CommandSeekRelative, CommandVolumeRelative:
		return nil
	case CommandSeek:
		if c.PositionMs < 0 {
			return fmt.Errorf("seek position must not be negative: %d", c.PositionMs)
		}
		return nil
	case CommandVolume:
		if c.Volume == nil {
			return fmt.Errorf("volume command without volume")
		}
		return nil
	case "":
		return fmt.Errorf("missing command")
	default:
		return fmt.Errorf("unknown command %q", c.Command)
	}
}

// Status is a snapshot of the player
type Status struct {
	State      string `json:"state"`
	Title      string `json:"title,omitempty"`
	Artist     string `json:"artist,omitempty"`
	Album      string `json:"album,omitempty"`
	PositionMs int    `json:"position_ms"`
	DurationMs int    `json:"duration_ms"`
	Seekable   bool   `json:"seekable"`
	Volume     Volume `json:"volume"`

	// Stream format, empty when nothing is open
	Format     string `json:"format,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
	StreamID   string `json:"stream_id,omitempty"`

	BufferedBytes int `json:"buffered_bytes"`
	BufferBytes   int `json:"buffer_bytes"`
}

// Error reports a rejected command
type Error struct {
	Message string `json:"message"`
}
