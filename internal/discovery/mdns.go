// ABOUTME: mDNS advertisement and browsing for streamsink players
// ABOUTME: Players advertise their remote control port; sinkctl browses for them
package discovery

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/hashicorp/mdns"

	"github.com/Resonate-Protocol/streamsink/internal/version"
	"github.com/Resonate-Protocol/streamsink/pkg/protocol"
)

// ServiceType is the DNS-SD service players advertise
const ServiceType = "_streamsink._tcp"

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int

	// BrowseTimeout bounds each mDNS query (default: 3s)
	BrowseTimeout time.Duration
}

// Manager handles mDNS operations
type Manager struct {
	config  Config
	ctx     context.Context
	cancel  context.CancelFunc
	players chan *PlayerInfo
}

// PlayerInfo describes a discovered player
type PlayerInfo struct {
	Name string
	Host string
	Port int
	Path string
}

// Addr returns host:port
func (p *PlayerInfo) Addr() string {
	return net.JoinHostPort(p.Host, fmt.Sprint(p.Port))
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	if config.BrowseTimeout <= 0 {
		config.BrowseTimeout = 3 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
		players: make(chan *PlayerInfo, 10),
	}
}

// txtRecords describes the endpoint in the TXT record
func txtRecords() []string {
	return []string{
		"path=" + protocol.ControlPath,
		"version=" + version.Version,
	}
}

// Advertise advertises this player until Stop
func (m *Manager) Advertise() error {
	if m.config.ServiceName == "" {
		return fmt.Errorf("service name required")
	}
	if m.config.Port <= 0 {
		return fmt.Errorf("invalid port %d", m.config.Port)
	}

	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		txtRecords(),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	log.Printf("Advertising mDNS service: %s on port %d (type: %s)", m.config.ServiceName, m.config.Port, ServiceType)

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse searches for players until Stop; results arrive on Players
func (m *Manager) Browse() {
	go m.browseLoop()
}

func (m *Manager) browseLoop() {
	seen := make(map[string]bool)
	for m.ctx.Err() == nil {
		entries := make(chan *mdns.ServiceEntry, 10)
		done := make(chan struct{})

		go func() {
			defer close(done)
			for entry := range entries {
				info := playerFromEntry(entry)
				if info == nil || seen[info.Addr()] {
					continue
				}
				seen[info.Addr()] = true

				log.Printf("Discovered player: %s at %s", info.Name, info.Addr())
				select {
				case m.players <- info:
				case <-m.ctx.Done():
				}
			}
		}()

		params := mdns.DefaultParams(ServiceType)
		params.Entries = entries
		params.Timeout = m.config.BrowseTimeout
		if err := mdns.Query(params); err != nil {
			log.Printf("Warning: mDNS query failed: %v", err)
		}
		close(entries)
		<-done

		select {
		case <-m.ctx.Done():
		case <-time.After(time.Second):
		}
	}
}

// playerFromEntry filters out entries for other services
func playerFromEntry(entry *mdns.ServiceEntry) *PlayerInfo {
	if entry == nil || entry.AddrV4 == nil || entry.Port == 0 {
		return nil
	}
	if !strings.Contains(entry.Name, ServiceType) {
		return nil
	}

	name := entry.Name
	if i := strings.Index(name, "."+ServiceType); i > 0 {
		name = name[:i]
	}
	// Instance names escape spaces
	name = strings.ReplaceAll(name, `\ `, " ")

	info := &PlayerInfo{
		Name: name,
		Host: entry.AddrV4.String(),
		Port: entry.Port,
		Path: protocol.ControlPath,
	}
	for _, field := range entry.InfoFields {
		if path, ok := strings.CutPrefix(field, "path="); ok {
			info.Path = path
		}
	}
	return info
}

// Players returns the channel of discovered players
func (m *Manager) Players() <-chan *PlayerInfo {
	return m.players
}

// Stop stops advertising and browsing
func (m *Manager) Stop() {
	m.cancel()
}

// getLocalIPs returns non-loopback IPv4 addresses of up interfaces
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
				ips = append(ips, ipnet.IP)
			}
		}
	}

	return ips, nil
}
