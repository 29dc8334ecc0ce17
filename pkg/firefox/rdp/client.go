package rdp

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// RootActor is the actor that greets every connection.
const RootActor = "root"

// Client is a single connection to a remote debugging server. Requests are
// serialized; the protocol allows one outstanding request per actor and this
// client does not multiplex.
type Client struct {
	conn     net.Conn
	reader   *bufio.Reader
	greeting Packet
	mu       sync.Mutex
}

// Dial connects to a remote debugging server and waits for its greeting.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to debugging server at %s: %w", addr, err)
	}

	c := &Client{
		conn:   conn,
		reader: bufio.NewReader(conn),
	}

	stop := c.watch(ctx)
	greeting, err := ReadPacket(c.reader)
	stop()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read greeting from %s: %w", addr, ctxErr(ctx, err))
	}
	if greeting.From() != RootActor {
		conn.Close()
		return nil, fmt.Errorf("%w: greeting from %q, expected %q", ErrProtocol, greeting.From(), RootActor)
	}
	if remote := greeting.RemoteError(); remote != nil {
		conn.Close()
		return nil, fmt.Errorf("debugging server refused connection: %w", remote)
	}

	c.greeting = greeting
	return c, nil
}

// Greeting returns the packet the root actor sent on connect.
func (c *Client) Greeting() Packet {
	return c.greeting
}

// Request sends a packet of the given type to an actor and returns its reply.
// Events from other actors received in between are discarded. An error reply
// is returned as a *RemoteError along with the packet.
func (c *Client) Request(ctx context.Context, to, typ string, params map[string]interface{}) (Packet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req := Packet{"to": to, "type": typ}
	for k, v := range params {
		if k == "to" || k == "type" {
			continue
		}
		req[k] = v
	}

	stop := c.watch(ctx)
	defer stop()

	if err := WritePacket(c.conn, req); err != nil {
		return nil, fmt.Errorf("failed to send %s to %s: %w", typ, to, ctxErr(ctx, err))
	}

	for {
		reply, err := ReadPacket(c.reader)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s reply from %s: %w", typ, to, ctxErr(ctx, err))
		}
		if reply.From() != to || reply.Type() != "" {
			continue
		}
		if remote := reply.RemoteError(); remote != nil {
			return reply, remote
		}
		return reply, nil
	}
}

// Close closes the connection. Temporary addons installed through it stay
// installed until the browser exits.
func (c *Client) Close() error {
	return c.conn.Close()
}

// watch applies the context deadline to the connection and unblocks pending
// I/O when the context is canceled. The returned func undoes both.
func (c *Client) watch(ctx context.Context) func() {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
	}
	stopAfter := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Now())
	})
	return func() {
		stopAfter()
		_ = c.conn.SetDeadline(time.Time{})
	}
}

// ctxErr prefers the context error over the I/O error it caused.
func ctxErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w (%v)", ctxErr, err)
	}
	// The socket deadline can fire before the context timer does.
	if deadline, ok := ctx.Deadline(); ok && !time.Now().Before(deadline) {
		return fmt.Errorf("%w (%v)", context.DeadlineExceeded, err)
	}
	return err
}
