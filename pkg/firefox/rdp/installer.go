package rdp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"sync"
)

// DefaultHost is where Firefox binds -start-debugger-server by default.
const DefaultHost = "localhost"

// ErrAddonInstall is wrapped by every InstallError.
var ErrAddonInstall = errors.New("addon install failed")

// InstallError reports an addon the browser did not install.
type InstallError struct {
	// Path is the extension directory that was sent to the browser.
	Path string
	// Reason is the server-reported error, or a description of the
	// connection failure.
	Reason string
	Err    error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("failed to install addon %s: %s", e.Path, e.Reason)
}

func (e *InstallError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrAddonInstall}
	}
	return []error{ErrAddonInstall, e.Err}
}

// Addon describes an installed temporary addon.
type Addon struct {
	ID   string
	Path string
}

// Installer installs temporary addons through the debugging server of a
// running Firefox.
type Installer struct {
	Host string
	Port int
}

// NewInstaller returns an installer for the debugging server on localhost:port.
func NewInstaller(port int) *Installer {
	return &Installer{Host: DefaultHost, Port: port}
}

// Addr returns the debugging server address.
func (i *Installer) Addr() string {
	host := i.Host
	if host == "" {
		host = DefaultHost
	}
	return net.JoinHostPort(host, strconv.Itoa(i.Port))
}

// Install installs the unpacked extension in dir as a temporary addon.
//
// Each call uses its own connection, closed before returning, so actor ids
// handed out for one install never leak into another.
func (i *Installer) Install(ctx context.Context, dir string) (*Addon, error) {
	path, err := filepath.Abs(dir)
	if err != nil {
		return nil, &InstallError{Path: dir, Reason: "cannot resolve path", Err: err}
	}

	client, err := Dial(ctx, i.Addr())
	if err != nil {
		return nil, &InstallError{Path: path, Reason: err.Error(), Err: err}
	}
	defer client.Close()

	root, err := client.Request(ctx, RootActor, "getRoot", nil)
	if err != nil {
		return nil, &InstallError{Path: path, Reason: err.Error(), Err: err}
	}
	addonsActor := root.String("addonsActor")
	if addonsActor == "" {
		return nil, &InstallError{Path: path, Reason: "debugging server exposes no addons actor"}
	}

	reply, err := client.Request(ctx, addonsActor, "installTemporaryAddon", map[string]interface{}{
		"addonPath":    path,
		"openDevTools": false,
	})
	if err != nil {
		return nil, &InstallError{Path: path, Reason: err.Error(), Err: err}
	}

	addon := &Addon{Path: path}
	if info, ok := reply.Object("addon"); ok {
		addon.ID = info.String("id")
	}
	return addon, nil
}

// InstallAll installs every extension concurrently, one connection each, and
// waits for all of them. A failing install does not stop the others; every
// failure is reported in the returned error.
func (i *Installer) InstallAll(ctx context.Context, dirs []string) ([]*Addon, error) {
	addons := make([]*Addon, len(dirs))
	errs := make([]error, len(dirs))

	var wg sync.WaitGroup
	for idx, dir := range dirs {
		wg.Add(1)
		go func(idx int, dir string) {
			defer wg.Done()
			addons[idx], errs[idx] = i.Install(ctx, dir)
		}(idx, dir)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return addons, nil
}
