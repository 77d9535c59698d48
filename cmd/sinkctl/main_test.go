// ABOUTME: Tests for sinkctl argument parsing
// ABOUTME: Maps command lines to protocol commands
package main

import (
	"reflect"
	"testing"

	"github.com/Resonate-Protocol/streamsink/pkg/protocol"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		args      []string
		want      protocol.Command
		wantWatch bool
		wantErr   bool
	}{
		{args: []string{"status"}, want: protocol.Command{Command: protocol.CommandStatus}},
		{args: []string{"watch"}, want: protocol.Command{Command: protocol.CommandStatus}, wantWatch: true},
		{args: []string{"pause"}, want: protocol.Command{Command: protocol.CommandPause}},
		{args: []string{"play"}, want: protocol.Command{Command: protocol.CommandResume}},
		{args: []string{"toggle"}, want: protocol.Command{Command: protocol.CommandToggle}},
		{args: []string{"seek", "90000"}, want: protocol.Command{Command: protocol.CommandSeek, PositionMs: 90000}},
		{args: []string{"seek", "+5000"}, want: protocol.Command{Command: protocol.CommandSeekRelative, Delta: 5000}},
		{args: []string{"seek", "-5000"}, want: protocol.Command{Command: protocol.CommandSeekRelative, Delta: -5000}},
		{args: []string{"seek"}, wantErr: true},
		{args: []string{"seek", "soon"}, wantErr: true},
		{args: []string{"volume", "70"}, want: protocol.Command{Command: protocol.CommandVolume, Volume: &protocol.Volume{Left: 70, Right: 70}}},
		{args: []string{"vol", "30", "60"}, want: protocol.Command{Command: protocol.CommandVolume, Volume: &protocol.Volume{Left: 30, Right: 60}}},
		{args: []string{"volume", "-10"}, want: protocol.Command{Command: protocol.CommandVolumeRelative, Delta: -10}},
		{args: []string{"volume", "+10", "5"}, wantErr: true},
		{args: []string{"volume"}, wantErr: true},
		{args: []string{"eject"}, wantErr: true},
	}

	for _, tt := range tests {
		cmd, watch, err := parseCommand(tt.args)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseCommand(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			continue
		}
		if !reflect.DeepEqual(cmd, tt.want) || watch != tt.wantWatch {
			t.Errorf("parseCommand(%v) = %+v, %v; want %+v, %v", tt.args, cmd, watch, tt.want, tt.wantWatch)
		}
	}
}

func TestFormatMs(t *testing.T) {
	if got := formatMs(65500); got != "1m5s" {
		t.Errorf("formatMs(65500) = %q", got)
	}
}
