package webext

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// DebuggerServerFlag starts Firefox's remote debugging server.
const DebuggerServerFlag = "-start-debugger-server"

// defaultDebuggerServerPort is what Firefox listens on when the flag has no value.
const defaultDebuggerServerPort = 6000

// requiredUserPrefs allow local remote debugging connections without a prompt.
var requiredUserPrefs = map[string]interface{}{
	"devtools.debugger.remote-enabled":    true,
	"devtools.debugger.prompt-connection": false,
}

// FirefoxOverrides computes the launch arguments and profile preferences that
// let addons be installed over the remote debugging protocol.
type FirefoxOverrides struct {
	port PortSource
}

// NewFirefoxOverrides returns overrides taking the debugging port from port.
func NewFirefoxOverrides(port PortSource) *FirefoxOverrides {
	return &FirefoxOverrides{port: port}
}

// DebuggingServerArgs returns args with the debugging server enabled and the
// port it will listen on.
//
// When args already start the debugging server its port is reused and the
// port source is not consulted. Otherwise the source is resolved once and
// -start-debugger-server <port> is appended. args is not modified.
func (o *FirefoxOverrides) DebuggingServerArgs(ctx context.Context, args []string) ([]string, int, error) {
	port, found, err := debuggerServerPort(args)
	if err != nil {
		return nil, 0, err
	}
	if found {
		return slices.Clone(args), port, nil
	}

	port, err = o.port(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to resolve debugging server port: %w", err)
	}
	if err := validatePort(port); err != nil {
		return nil, 0, err
	}

	out := make([]string, 0, len(args)+2)
	out = append(out, args...)
	return append(out, DebuggerServerFlag, strconv.Itoa(port)), port, nil
}

// UserPrefs returns prefs merged with the preferences remote debugging
// needs. The required values win over caller values; prefs is not modified.
func (o *FirefoxOverrides) UserPrefs(prefs map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(prefs)+len(requiredUserPrefs))
	maps.Copy(out, prefs)
	maps.Copy(out, requiredUserPrefs)
	return out
}

// debuggerServerPort finds a -start-debugger-server flag in args. Both
// single- and double-dash spellings are accepted, with the value as the next
// argument or after "=".
func debuggerServerPort(args []string) (int, bool, error) {
	for i, arg := range args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !strings.HasPrefix(arg, "-") || name != strings.TrimLeft(DebuggerServerFlag, "-") {
			continue
		}
		if !hasValue {
			if i+1 >= len(args) || strings.HasPrefix(args[i+1], "-") {
				return defaultDebuggerServerPort, true, nil
			}
			value = args[i+1]
		}

		// A ws: server expects a WebSocket upgrade and never sends the
		// greeting the addon installer waits for.
		if strings.HasPrefix(value, "ws:") {
			return 0, false, fmt.Errorf("%w: %s %s starts a WebSocket server, addons can only be installed over a plain TCP server", ErrConfiguration, DebuggerServerFlag, value)
		}
		port, err := strconv.Atoi(value)
		if err != nil {
			return 0, false, fmt.Errorf("%w: unsupported %s value %q", ErrConfiguration, DebuggerServerFlag, value)
		}
		if err := validatePort(port); err != nil {
			return 0, false, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		return port, true, nil
	}
	return 0, false, nil
}
