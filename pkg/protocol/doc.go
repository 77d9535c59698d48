// ABOUTME: Remote control wire protocol package
// ABOUTME: Defines control messages and the WebSocket client
// Package protocol implements the streamsink remote control protocol.
//
// A controller connects to ws://host:port/control, receives a hello and
// periodic status messages, and sends commands as JSON text frames.
//
// Example:
//
//	client, err := protocol.Dial(ctx, "localhost:8928")
//	err = client.Send(protocol.Command{Command: protocol.CommandPause})
package protocol
