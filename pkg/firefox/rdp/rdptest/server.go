// Package rdptest provides a fake Firefox remote debugging server for tests.
package rdptest

import (
	"bufio"
	"net"
	"path/filepath"
	"strconv"
	"sync"

	"golang.org/x/net/nettest"

	"github.com/entrhq/webext/pkg/firefox/rdp"
)

// AddonsActor is the addons actor id announced by AddonHandler.
const AddonsActor = "server1.conn0.addonsActor2"

// Handler returns the packets to write in response to a request.
type Handler func(req rdp.Packet) []rdp.Packet

// Server accepts connections, greets them as the root actor and answers
// requests with its Handler.
type Server struct {
	Listener net.Listener
	// Greeting is sent on every new connection. Nil sends nothing.
	Greeting rdp.Packet
	Handler  Handler

	mu       sync.Mutex
	requests []rdp.Packet
	conns    int
	started  bool
}

// NewUnstartedServer listens on an ephemeral loopback port without serving,
// so Greeting can be changed before Start.
func NewUnstartedServer(handler Handler) *Server {
	ln, err := nettest.NewLocalListener("tcp4")
	if err != nil {
		panic("rdptest: failed to listen: " + err.Error())
	}
	return newServer(ln, handler)
}

// NewServer starts a server on an ephemeral loopback port.
func NewServer(handler Handler) *Server {
	s := NewUnstartedServer(handler)
	s.Start()
	return s
}

// NewServerAt starts a server listening on addr.
func NewServerAt(addr string, handler Handler) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := newServer(ln, handler)
	s.Start()
	return s, nil
}

func newServer(ln net.Listener, handler Handler) *Server {
	return &Server{
		Listener: ln,
		Greeting: rdp.Packet{
			"from":            rdp.RootActor,
			"applicationType": "browser",
			"traits":          map[string]interface{}{},
		},
		Handler: handler,
	}
}

// AddonHandler answers getRoot and installTemporaryAddon the way Firefox does.
// install returns the reply body for an addon path; "from" is filled in.
func AddonHandler(install func(path string) rdp.Packet) Handler {
	return func(req rdp.Packet) []rdp.Packet {
		switch req.Type() {
		case "getRoot":
			return []rdp.Packet{{"from": rdp.RootActor, "addonsActor": AddonsActor}}
		case "installTemporaryAddon":
			reply := install(req.String("addonPath"))
			reply["from"] = AddonsActor
			return []rdp.Packet{reply}
		}
		return []rdp.Packet{{"from": req.String("to"), "error": "unrecognizedPacketType", "message": req.Type()}}
	}
}

// Accept is an install func that accepts every addon, using the directory
// name as its id.
func Accept(path string) rdp.Packet {
	return rdp.Packet{"addon": map[string]interface{}{"id": filepath.Base(path), "actor": false}}
}

// Start begins accepting connections.
func (s *Server) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	go s.serve()
}

// Close stops the listener.
func (s *Server) Close() error {
	return s.Listener.Close()
}

// Port returns the listening port.
func (s *Server) Port() int {
	return s.Listener.Addr().(*net.TCPAddr).Port
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	return net.JoinHostPort("127.0.0.1", strconv.Itoa(s.Port()))
}

// Requests returns every request received so far.
func (s *Server) Requests() []rdp.Packet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]rdp.Packet(nil), s.requests...)
}

// InstalledPaths returns the addonPath of every installTemporaryAddon request.
func (s *Server) InstalledPaths() []string {
	var paths []string
	for _, req := range s.Requests() {
		if req.Type() == "installTemporaryAddon" {
			paths = append(paths, req.String("addonPath"))
		}
	}
	return paths
}

// Connections returns the number of accepted connections.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns
}

func (s *Server) serve() {
	for {
		conn, err := s.Listener.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns++
		s.mu.Unlock()
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	if s.Greeting != nil {
		if err := rdp.WritePacket(conn, s.Greeting); err != nil {
			return
		}
	}
	r := bufio.NewReader(conn)
	for {
		req, err := rdp.ReadPacket(r)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.requests = append(s.requests, req)
		s.mu.Unlock()

		if s.Handler == nil {
			continue
		}
		for _, reply := range s.Handler(req) {
			if err := rdp.WritePacket(conn, reply); err != nil {
				return
			}
		}
	}
}
