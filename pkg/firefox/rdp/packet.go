// Package rdp speaks the subset of the Firefox Remote Debugging Protocol
// needed to install temporary addons into a running browser.
//
// Every message is a JSON object prefixed by its byte length in decimal and a
// colon:
//
//	30:{"to":"root","type":"getRoot"}
//
// The server sends a greeting from the root actor as soon as a connection is
// accepted. Requests are addressed to an actor with "to" and replies come back
// with a matching "from". Packets carrying a "type" from an actor are
// unsolicited events rather than replies.
package rdp

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// maxPacketSize bounds a single JSON packet.
const maxPacketSize = 64 << 20

// ErrProtocol is returned for malformed or unsupported packets.
var ErrProtocol = errors.New("remote debugging protocol error")

// Packet is one decoded protocol message.
type Packet map[string]interface{}

// From returns the actor that sent the packet.
func (p Packet) From() string {
	return p.String("from")
}

// Type returns the packet type. Replies normally have none.
func (p Packet) Type() string {
	return p.String("type")
}

// String returns a string field, or "" when absent or not a string.
func (p Packet) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// Object returns a nested object field.
func (p Packet) Object(key string) (Packet, bool) {
	m, ok := p[key].(map[string]interface{})
	return Packet(m), ok
}

// RemoteError returns the error carried by a reply, or nil.
func (p Packet) RemoteError() *RemoteError {
	if _, ok := p["error"]; !ok {
		return nil
	}
	name := p.String("error")
	if name == "" {
		name = fmt.Sprint(p["error"])
	}
	return &RemoteError{Actor: p.From(), Name: name, Message: p.String("message")}
}

// RemoteError is an error reply sent by an actor.
type RemoteError struct {
	Actor   string
	Name    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return e.Name
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

// WritePacket frames and writes one packet.
func WritePacket(w io.Writer, p Packet) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode packet: %w", err)
	}
	if _, err := fmt.Fprintf(w, "%d:%s", len(data), data); err != nil {
		return err
	}
	return nil
}

// ReadPacket reads and decodes one packet. Bulk packets are rejected.
func ReadPacket(r *bufio.Reader) (Packet, error) {
	header, err := r.ReadString(':')
	if err != nil {
		return nil, err
	}
	header = strings.TrimSuffix(header, ":")

	if strings.HasPrefix(header, "bulk ") {
		return nil, fmt.Errorf("%w: bulk packets are not supported", ErrProtocol)
	}

	size, err := strconv.Atoi(header)
	if err != nil || size < 0 {
		return nil, fmt.Errorf("%w: invalid packet length %q", ErrProtocol, header)
	}
	if size > maxPacketSize {
		return nil, fmt.Errorf("%w: packet of %d bytes exceeds limit", ErrProtocol, size)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}

	var p Packet
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: empty packet", ErrProtocol)
	}
	return p, nil
}
