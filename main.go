// ABOUTME: Entry point for the streamsink player
// ABOUTME: Parses CLI flags, wires source, sink, device, TUI and remote control
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Resonate-Protocol/streamsink/internal/discovery"
	"github.com/Resonate-Protocol/streamsink/internal/remote"
	"github.com/Resonate-Protocol/streamsink/internal/settings"
	"github.com/Resonate-Protocol/streamsink/internal/ui"
	"github.com/Resonate-Protocol/streamsink/internal/version"
	"github.com/Resonate-Protocol/streamsink/pkg/audio/decode"
	"github.com/Resonate-Protocol/streamsink/pkg/audio/output"
	"github.com/Resonate-Protocol/streamsink/pkg/audio/volume"
	"github.com/Resonate-Protocol/streamsink/pkg/player"
)

var (
	configPath     = flag.String("config", "", "Settings file (default: <user config dir>/streamsink/streamsink.yaml)")
	backend        = flag.String("backend", "", fmt.Sprintf("Output backend %v", output.Backends()))
	device         = flag.String("device", "", "Backend-specific output device (default: system default)")
	bufferMs       = flag.Int("buffer-ms", 0, "Sink buffer size in milliseconds")
	softwareVolume = flag.Bool("software-volume", false, "Always scale volume in software")
	resampleTo     = flag.Int("resample", 0, "Resample 16-bit sources to this rate (0 = source rate)")
	remotePort     = flag.Int("remote-port", -1, "Remote control port (0 disables)")
	name           = flag.String("name", "", "Player friendly name (default: hostname-streamsink)")
	noMDNS         = flag.Bool("no-mdns", false, "Do not advertise the remote control via mDNS")
	logFile        = flag.String("log-file", "streamsink.log", "Log file path")
	noTUI          = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	debug          = flag.Bool("debug", false, "Log sink buffer events")
	listBackends   = flag.Bool("list-backends", false, "List output backends and exit")
	showVersion    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [file | tone://440,880]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", version.Product, version.Version)
		return
	}
	if *listBackends {
		for _, b := range output.Backends() {
			fmt.Println(b)
		}
		return
	}

	useTUI := !*noTUI

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	path := *configPath
	if path == "" {
		path, err = settings.DefaultPath()
		if err != nil {
			log.Fatalf("Settings: %v", err)
		}
	}
	st, err := settings.Load(path)
	if err != nil {
		log.Printf("Warning: %v (using defaults)", err)
	}
	applyFlags(&st)
	if err := st.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	playerName := *name
	if playerName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		playerName = fmt.Sprintf("%s-streamsink", hostname)
	}

	source, err := decode.Open(flag.Arg(0))
	if err != nil {
		fatal(useTUI, "Failed to open source: %v", err)
	}
	defer source.Close()

	dev, err := output.New(st.Backend, output.Options{
		Device:   st.Device,
		BufferMs: st.BufferMs,
		AppName:  version.Product,
	})
	if err != nil {
		fatal(useTUI, "Failed to create output: %v", err)
	}

	sinkConfig := st.OutputConfig()
	sinkConfig.Debug = *debug
	var saveMu sync.Mutex
	sinkConfig.OnVolumeChange = func(v volume.Stereo) {
		if !st.SaveVolume {
			return
		}
		saveMu.Lock()
		defer saveMu.Unlock()
		st.SetStereoVolume(v)
		if err := st.Save(path); err != nil {
			log.Printf("Warning: saving volume failed: %v", err)
		}
	}
	sink := output.NewSink(dev, sinkConfig)
	if st.SaveVolume {
		sink.SetVolume(st.StereoVolume())
	}

	log.Printf("Starting %s %s: %s via %s", version.Product, version.Version, playerName, dev.Name())

	// TUI setup
	var tuiProg *tea.Program
	var controls *ui.Controls
	if useTUI {
		controls = ui.NewControls()
		tuiProg = ui.Run(controls)
	}

	updateTUI := func(s player.Status) {
		if tuiProg != nil {
			tuiProg.Send(ui.StatusMsg(s))
		}
	}

	p := player.New(sink, source, player.Config{
		ResampleTo: *resampleTo,
		OnStatus:   updateTUI,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	if st.RemotePort > 0 {
		srv := remote.New(remote.Config{Port: st.RemotePort, Name: playerName}, p)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Run(ctx); err != nil {
				log.Printf("Remote control stopped: %v", err)
			}
		}()

		if !*noMDNS {
			disc := discovery.NewManager(discovery.Config{ServiceName: playerName, Port: st.RemotePort})
			if err := disc.Advertise(); err != nil {
				log.Printf("Warning: mDNS advertisement failed: %v", err)
			}
			defer disc.Stop()
		}
	}

	tuiDone := make(chan struct{})
	if tuiProg != nil {
		go func() {
			defer close(tuiDone)
			if _, err := tuiProg.Run(); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()
		go handleControls(ctx, cancel, p, controls)
		go statusLoop(ctx, p, updateTUI)
	} else {
		close(tuiDone)
	}

	if err := p.Play(ctx); err != nil {
		log.Printf("Playback failed: %v", err)
		fmt.Fprintf(os.Stderr, "Playback failed: %v\n", err)
	}

	cancel()
	if tuiProg != nil {
		tuiProg.Quit()
	}
	<-tuiDone
	wg.Wait()

	log.Printf("Player stopped")
}

// applyFlags overrides settings with flags given on the command line
func applyFlags(st *settings.Settings) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			st.Backend = *backend
		case "device":
			st.Device = *device
		case "buffer-ms":
			st.BufferMs = *bufferMs
		case "software-volume":
			st.SoftwareVolume = *softwareVolume
		case "remote-port":
			st.RemotePort = *remotePort
		}
	})
}

func fatal(useTUI bool, format string, args ...interface{}) {
	if useTUI {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
	log.Fatalf(format, args...)
}

// handleControls applies key requests from the TUI
func handleControls(ctx context.Context, cancel context.CancelFunc, p *player.Player, controls *ui.Controls) {
	for {
		select {
		case c := <-controls.Requests:
			switch c.Action {
			case ui.ActionTogglePause:
				p.TogglePause()
			case ui.ActionSeek:
				if err := p.SeekRelative(c.Delta); err != nil {
					log.Printf("Seek: %v", err)
				}
			case ui.ActionVolume:
				p.AdjustVolume(c.Delta)
			}
		case <-controls.Quit:
			log.Printf("Received quit signal from TUI")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

// statusLoop refreshes position and buffer fill in the TUI
func statusLoop(ctx context.Context, p *player.Player, update func(player.Status)) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			update(p.Status())
		case <-ctx.Done():
			return
		}
	}
}
