// ABOUTME: WebSocket client for the remote control protocol
// ABOUTME: Connects, reads the hello and routes status messages
package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const helloTimeout = 5 * time.Second

// Client is a connected controller
type Client struct {
	conn  *websocket.Conn
	hello Hello

	// Message channels
	Statuses chan Status
	Errors   chan Error

	mu        sync.Mutex // serializes writes
	closeOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
}

// Dial connects to the player at addr (host:port) and waits for its hello
func Dial(ctx context.Context, addr string) (*Client, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: ControlPath}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.String(), err)
	}

	hello, err := readHello(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	cctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conn:     conn,
		hello:    hello,
		Statuses: make(chan Status, 16),
		Errors:   make(chan Error, 4),
		ctx:      cctx,
		cancel:   cancel,
	}
	go c.readMessages()
	return c, nil
}

func readHello(conn *websocket.Conn) (Hello, error) {
	var hello Hello

	conn.SetReadDeadline(time.Now().Add(helloTimeout))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		return hello, fmt.Errorf("read hello: %w", err)
	}
	conn.SetReadDeadline(time.Time{})

	if msg.Type != TypeHello {
		return hello, fmt.Errorf("expected %s, got %s", TypeHello, msg.Type)
	}
	if err := DecodePayload(msg, &hello); err != nil {
		return hello, err
	}
	return hello, nil
}

// Hello returns the greeting the player sent on connect
func (c *Client) Hello() Hello {
	return c.hello
}

// Send sends a command
func (c *Client) Send(cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx.Err() != nil {
		return fmt.Errorf("not connected")
	}
	return c.conn.WriteJSON(Message{Type: TypeCommand, Payload: cmd})
}

// Done is closed when the connection ends
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close closes the connection
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.cancel()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = c.conn.Close()
		c.mu.Unlock()
	})
	return err
}

func (c *Client) readMessages() {
	defer c.Close()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Read error: %v", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Failed to parse message: %v", err)
			continue
		}

		switch msg.Type {
		case TypeStatus:
			var status Status
			if err := DecodePayload(msg, &status); err != nil {
				log.Printf("Warning: %v", err)
				continue
			}
			// Drop stale status rather than block the reader
			select {
			case c.Statuses <- status:
			default:
				select {
				case <-c.Statuses:
				default:
				}
				c.Statuses <- status
			}

		case TypeError:
			var e Error
			if err := DecodePayload(msg, &e); err != nil {
				log.Printf("Warning: %v", err)
				continue
			}
			select {
			case c.Errors <- e:
			default:
				log.Printf("Remote error: %s", e.Message)
			}

		default:
			log.Printf("Unknown message type: %s", msg.Type)
		}
	}
}
