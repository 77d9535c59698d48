// ABOUTME: Tests for remote control message types
// ABOUTME: Verifies envelopes decode into typed payloads and command validation
package protocol

import (
	"encoding/json"
	"testing"
)

func TestCommandEnvelope(t *testing.T) {
	msg := Message{
		Type: TypeCommand,
		Payload: Command{
			Command: CommandVolume,
			Volume:  &Volume{Left: 20, Right: 80},
		},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var decoded Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if decoded.Type != TypeCommand {
		t.Errorf("expected type %s, got %s", TypeCommand, decoded.Type)
	}

	var cmd Command
	if err := DecodePayload(decoded, &cmd); err != nil {
		t.Fatal(err)
	}
	if cmd.Command != CommandVolume || cmd.Volume == nil || *cmd.Volume != (Volume{Left: 20, Right: 80}) {
		t.Errorf("unexpected command %+v", cmd)
	}
}

func TestCommandOmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(Command{Command: CommandPause})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"command":"pause"}` {
		t.Errorf("unexpected encoding %s", data)
	}
}

func TestStatusDecode(t *testing.T) {
	raw := `{"type":"server/status","payload":{"state":"playing","title":"Tone","position_ms":1500,` +
		`"duration_ms":0,"seekable":true,"volume":{"left":50,"right":60},"format":"S16LE",` +
		`"sample_rate":44100,"channels":2,"buffered_bytes":1024,"buffer_bytes":88200}}`

	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatal(err)
	}

	var status Status
	if err := DecodePayload(msg, &status); err != nil {
		t.Fatal(err)
	}

	if status.State != "playing" || status.PositionMs != 1500 || !status.Seekable {
		t.Errorf("unexpected status %+v", status)
	}
	if status.Volume != (Volume{Left: 50, Right: 60}) {
		t.Errorf("unexpected volume %+v", status.Volume)
	}
	if status.SampleRate != 44100 || status.BufferBytes != 88200 {
		t.Errorf("unexpected format fields %+v", status)
	}
}

func TestCommandValidate(t *testing.T) {
	tests := []struct {
		name    string
		cmd     Command
		wantErr bool
	}{
		{"pause", Command{Command: CommandPause}, false},
		{"resume", Command{Command: CommandResume}, false},
		{"toggle", Command{Command: CommandToggle}, false},
		{"status", Command{Command: CommandStatus}, false},
		{"seek", Command{Command: CommandSeek, PositionMs: 1000}, false},
		{"negative seek", Command{Command: CommandSeek, PositionMs: -1}, true},
		{"relative seek back", Command{Command: CommandSeekRelative, Delta: -5000}, false},
		{"volume", Command{Command: CommandVolume, Volume: &Volume{}}, false},
		{"volume missing", Command{Command: CommandVolume}, true},
		{"volume relative", Command{Command: CommandVolumeRelative, Delta: 5}, false},
		{"empty", Command{}, true},
		{"unknown", Command{Command: "eject"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
