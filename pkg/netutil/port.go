// Package netutil holds small TCP helpers used when starting browser debug servers.
package netutil

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrPortAllocation is returned when the OS cannot hand out an ephemeral port.
var ErrPortAllocation = errors.New("port allocation failed")

// loopback is where probe listeners are bound. Browsers started by this
// module only listen on the local interface.
const loopback = "127.0.0.1:0"

// FreePort returns a TCP port that is unbound on localhost at the time of the call.
//
// The port is not reserved: the listener used to discover it is closed before
// returning, so the caller must bind it promptly. Two concurrent calls never
// observe the same port because the OS does not hand out a port that is still
// held by another listener.
func FreePort(ctx context.Context) (int, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", loopback)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPortAllocation, err)
	}
	addr, ok := ln.Addr().(*net.TCPAddr)
	if !ok {
		_ = ln.Close()
		return 0, fmt.Errorf("%w: unexpected listener address %s", ErrPortAllocation, ln.Addr())
	}
	if err := ln.Close(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPortAllocation, err)
	}
	return addr.Port, nil
}

// IsAddrAvailable returns true when an address can be listened on.
func IsAddrAvailable(addr string) (bool, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return false, nil
	}
	if closeErr := ln.Close(); closeErr != nil {
		return false, closeErr
	}
	return true, nil
}
