// ABOUTME: Command-line remote control for streamsink players
// ABOUTME: Finds a player via mDNS or -addr and sends one command
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Resonate-Protocol/streamsink/internal/discovery"
	"github.com/Resonate-Protocol/streamsink/pkg/audio"
	"github.com/Resonate-Protocol/streamsink/pkg/protocol"
)

var (
	addr    = flag.String("addr", "", "Player address host:port (skip mDNS)")
	timeout = flag.Duration("timeout", 5*time.Second, "Discovery and reply timeout")
	verbose = flag.Bool("v", false, "Log protocol details")
)

const usage = `Usage: sinkctl [flags] <command> [args]

Commands:
  status                 print the player status
  watch                  print status updates until interrupted
  pause | resume | toggle
  seek <ms>              jump to an absolute position
  seek +<ms> | -<ms>     jump relative to the current position
  volume <l> [r]         set volume 0-100
  volume +<n> | -<n>     change volume

Flags:
`

func main() {
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if !*verbose {
		log.SetOutput(io.Discard)
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cmd, watch, err := parseCommand(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "sinkctl: %v\n", err)
		os.Exit(2)
	}

	if err := run(cmd, watch); err != nil {
		fmt.Fprintf(os.Stderr, "sinkctl: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd protocol.Command, watch bool) error {
	target := *addr
	if target == "" {
		found, err := discover(*timeout)
		if err != nil {
			return err
		}
		target = found
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	client, err := protocol.Dial(ctx, target)
	if err != nil {
		return err
	}
	defer client.Close()

	hello := client.Hello()
	log.Printf("Connected to %s (%s %s)", hello.Name, hello.DeviceInfo.ProductName, hello.DeviceInfo.SoftwareVersion)

	// The greeting status tells us nothing about our command; skip it
	select {
	case <-client.Statuses:
	case <-time.After(*timeout):
		return fmt.Errorf("no status from %s", target)
	}

	if err := client.Send(cmd); err != nil {
		return err
	}

	for {
		select {
		case st := <-client.Statuses:
			printStatus(hello.Name, st)
			if !watch {
				return nil
			}
		case e := <-client.Errors:
			return fmt.Errorf("player: %s", e.Message)
		case <-client.Done():
			return fmt.Errorf("connection closed")
		case <-time.After(*timeout):
			if watch {
				continue
			}
			return fmt.Errorf("no reply from %s", target)
		}
	}
}

func discover(timeout time.Duration) (string, error) {
	disc := discovery.NewManager(discovery.Config{BrowseTimeout: timeout})
	defer disc.Stop()
	disc.Browse()

	select {
	case p := <-disc.Players():
		return p.Addr(), nil
	case <-time.After(timeout + time.Second):
		return "", fmt.Errorf("no player found after %s (use -addr)", timeout)
	}
}

// parseCommand turns arguments into a command; watch keeps printing
func parseCommand(args []string) (protocol.Command, bool, error) {
	switch args[0] {
	case "status":
		return protocol.Command{Command: protocol.CommandStatus}, false, nil
	case "watch":
		return protocol.Command{Command: protocol.CommandStatus}, true, nil
	case "pause":
		return protocol.Command{Command: protocol.CommandPause}, false, nil
	case "resume", "play":
		return protocol.Command{Command: protocol.CommandResume}, false, nil
	case "toggle":
		return protocol.Command{Command: protocol.CommandToggle}, false, nil

	case "seek":
		if len(args) != 2 {
			return protocol.Command{}, false, fmt.Errorf("seek needs a position")
		}
		n, relative, err := parseNumber(args[1])
		if err != nil {
			return protocol.Command{}, false, fmt.Errorf("seek: %w", err)
		}
		if relative {
			return protocol.Command{Command: protocol.CommandSeekRelative, Delta: n}, false, nil
		}
		return protocol.Command{Command: protocol.CommandSeek, PositionMs: n}, false, nil

	case "volume", "vol":
		if len(args) < 2 || len(args) > 3 {
			return protocol.Command{}, false, fmt.Errorf("volume needs one or two levels")
		}
		left, relative, err := parseNumber(args[1])
		if err != nil {
			return protocol.Command{}, false, fmt.Errorf("volume: %w", err)
		}
		if relative {
			if len(args) == 3 {
				return protocol.Command{}, false, fmt.Errorf("relative volume takes one value")
			}
			return protocol.Command{Command: protocol.CommandVolumeRelative, Delta: left}, false, nil
		}
		right := left
		if len(args) == 3 {
			if right, err = strconv.Atoi(args[2]); err != nil {
				return protocol.Command{}, false, fmt.Errorf("volume: %w", err)
			}
		}
		return protocol.Command{
			Command: protocol.CommandVolume,
			Volume:  &protocol.Volume{Left: left, Right: right},
		}, false, nil
	}

	return protocol.Command{}, false, fmt.Errorf("unknown command %q", args[0])
}

// parseNumber parses n, +n or -n; a sign makes it relative
func parseNumber(s string) (int, bool, error) {
	relative := strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false, fmt.Errorf("invalid number %q", s)
	}
	return n, relative, nil
}

func printStatus(name string, st protocol.Status) {
	fmt.Printf("%s: %s", name, st.State)
	if st.Title != "" {
		fmt.Printf(" - %s", st.Title)
		if st.Artist != "" {
			fmt.Printf(" (%s)", st.Artist)
		}
	}
	fmt.Println()

	position := formatMs(st.PositionMs)
	if st.DurationMs > 0 {
		position += " / " + formatMs(st.DurationMs)
	}
	fmt.Printf("  time:   %s\n", position)
	fmt.Printf("  volume: L %d%% R %d%%\n", st.Volume.Left, st.Volume.Right)
	if st.SampleRate > 0 {
		format := st.Format
		if f, err := audio.ParseFormat(st.Format); err == nil {
			format = fmt.Sprintf("%s (%d-bit)", st.Format, f.BytesPerSample()*8)
		}
		fmt.Printf("  format: %s %d Hz %d ch, buffer %d/%d bytes\n",
			format, st.SampleRate, st.Channels, st.BufferedBytes, st.BufferBytes)
	}
}

func formatMs(ms int) string {
	d := time.Duration(ms) * time.Millisecond
	return d.Truncate(time.Second).String()
}
