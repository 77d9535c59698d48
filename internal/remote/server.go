// ABOUTME: Remote control server for a running player
// ABOUTME: Serves the /control WebSocket, applies commands and pushes status
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Resonate-Protocol/streamsink/internal/version"
	"github.com/Resonate-Protocol/streamsink/pkg/audio/volume"
	"github.com/Resonate-Protocol/streamsink/pkg/player"
	"github.com/Resonate-Protocol/streamsink/pkg/protocol"
)

const (
	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
)

// Controller is the part of the player the remote drives
type Controller interface {
	Status() player.Status
	Pause(pause bool)
	TogglePause()
	Seek(ms int) error
	SeekRelative(deltaMs int) error
	SetVolume(v volume.Stereo)
	AdjustVolume(delta int)
}

// Config holds server configuration
type Config struct {
	Port int
	Name string

	// StatusInterval is how often status is pushed (default: 500ms)
	StatusInterval time.Duration
}

// Server accepts controller connections
type Server struct {
	config   Config
	ctrl     Controller
	serverID string

	upgrader   websocket.Upgrader
	mux        *http.ServeMux
	httpServer *http.Server

	mu      sync.Mutex
	clients map[string]*client
	closed  bool
	wg      sync.WaitGroup
}

type client struct {
	id       string
	conn     *websocket.Conn
	sendChan chan protocol.Message
	done     chan struct{}
}

// New creates a server for ctrl
func New(config Config, ctrl Controller) *Server {
	if config.StatusInterval <= 0 {
		config.StatusInterval = 500 * time.Millisecond
	}
	if config.Name == "" {
		config.Name = version.Product
	}

	s := &Server{
		config:   config,
		ctrl:     ctrl,
		serverID: uuid.New().String(),
		mux:      http.NewServeMux(),
		clients:  make(map[string]*client),
		upgrader: websocket.Upgrader{
			// Controllers are local tools, not browsers
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.mux.HandleFunc(protocol.ControlPath, s.handleWebSocket)
	return s
}

// ID returns the server's random identifier
func (s *Server) ID() string {
	return s.serverID
}

// Handler returns the HTTP handler serving the control endpoint
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run listens on the configured port until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.mux}
	log.Printf("Remote control listening on %s%s", ln.Addr(), protocol.ControlPath)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errChan:
		log.Printf("Remote control server error: %v", serveErr)
	}

	s.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Remote control shutdown error: %v", err)
	}

	if serveErr != nil {
		return fmt.Errorf("remote control server: %w", serveErr)
	}
	return nil
}

// Close disconnects every controller
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	for _, c := range s.clients {
		c.conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Clients returns the number of connected controllers
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	c := &client{
		id:       uuid.New().String(),
		conn:     conn,
		sendChan: make(chan protocol.Message, 16),
		done:     make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.clients[c.id] = c
	s.wg.Add(1)
	s.mu.Unlock()

	log.Printf("Controller %s connected from %s", c.id, r.RemoteAddr)
	s.handleConnection(c)
}

func (s *Server) handleConnection(c *client) {
	defer s.wg.Done()

	c.sendChan <- protocol.Message{
		Type: protocol.TypeHello,
		Payload: protocol.Hello{
			ServerID: s.serverID,
			Name:     s.config.Name,
			DeviceInfo: protocol.DeviceInfo{
				ProductName:     version.Product,
				Manufacturer:    version.Manufacturer,
				SoftwareVersion: version.Version,
			},
		},
	}
	c.sendChan <- s.statusMessage()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.clientWriter(c)
	}()

	s.readLoop(c)

	close(c.done)
	<-writerDone
	c.conn.Close()

	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()
	log.Printf("Controller %s disconnected", c.id)
}

func (s *Server) readLoop(c *client) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Controller %s read error: %v", c.id, err)
			}
			return
		}
		s.send(c, s.handleMessage(data))
	}
}

// handleMessage applies one message and returns the reply
func (s *Server) handleMessage(data []byte) protocol.Message {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return errorMessage(fmt.Errorf("invalid message: %w", err))
	}
	if msg.Type != protocol.TypeCommand {
		return errorMessage(fmt.Errorf("unexpected message type %q", msg.Type))
	}

	var cmd protocol.Command
	if err := protocol.DecodePayload(msg, &cmd); err != nil {
		return errorMessage(err)
	}
	if err := s.apply(cmd); err != nil {
		return errorMessage(fmt.Errorf("%s: %w", cmd.Command, err))
	}
	return s.statusMessage()
}

func (s *Server) apply(cmd protocol.Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	switch cmd.Command {
	case protocol.CommandPause:
		s.ctrl.Pause(true)
	case protocol.CommandResume:
		s.ctrl.Pause(false)
	case protocol.CommandToggle:
		s.ctrl.TogglePause()
	case protocol.CommandSeek:
		return s.ctrl.Seek(cmd.PositionMs)
	case protocol.CommandSeekRelative:
		return s.ctrl.SeekRelative(cmd.Delta)
	case protocol.CommandVolume:
		s.ctrl.SetVolume(volume.Stereo{Left: cmd.Volume.Left, Right: cmd.Volume.Right})
	case protocol.CommandVolumeRelative:
		s.ctrl.AdjustVolume(cmd.Delta)
	case protocol.CommandStatus:
	}
	return nil
}

func (s *Server) send(c *client, msg protocol.Message) {
	select {
	case c.sendChan <- msg:
	case <-c.done:
	default:
		log.Printf("Warning: controller %s send queue full, dropping %s", c.id, msg.Type)
	}
}

// clientWriter sends queued replies, periodic status and pings
func (s *Server) clientWriter(c *client) {
	statusTicker := time.NewTicker(s.config.StatusInterval)
	defer statusTicker.Stop()
	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	write := func(msg protocol.Message) bool {
		c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
		if err := c.conn.WriteJSON(msg); err != nil {
			log.Printf("Controller %s write error: %v", c.id, err)
			c.conn.Close()
			return false
		}
		return true
	}

	for {
		select {
		case msg := <-c.sendChan:
			if !write(msg) {
				return
			}
		case <-statusTicker.C:
			if !write(s.statusMessage()) {
				return
			}
		case <-pingTicker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (s *Server) statusMessage() protocol.Message {
	return protocol.Message{Type: protocol.TypeStatus, Payload: StatusPayload(s.ctrl.Status())}
}

func errorMessage(err error) protocol.Message {
	return protocol.Message{Type: protocol.TypeError, Payload: protocol.Error{Message: err.Error()}}
}

// StatusPayload converts a player snapshot to its wire form
func StatusPayload(st player.Status) protocol.Status {
	out := protocol.Status{
		State:         string(st.State),
		Title:         st.Metadata.Title,
		Artist:        st.Metadata.Artist,
		Album:         st.Metadata.Album,
		PositionMs:    st.PositionMs,
		DurationMs:    st.DurationMs,
		Seekable:      st.Seekable,
		Volume:        protocol.Volume{Left: st.Volume.Left, Right: st.Volume.Right},
		StreamID:      st.StreamID,
		BufferedBytes: st.Buffered,
		BufferBytes:   st.Capacity,
	}
	if st.Format.Rate > 0 {
		out.Format = st.Format.Format.String()
		out.SampleRate = st.Format.Rate
		out.Channels = st.Format.Channels
	}
	return out
}
