package webext

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/webext/pkg/firefox/rdp"
	"github.com/entrhq/webext/pkg/firefox/rdp/rdptest"
)

type fakeBrowser struct {
	playwright.Browser
	closed bool
}

func (b *fakeBrowser) Close(options ...playwright.BrowserCloseOptions) error {
	b.closed = true
	return nil
}

type fakeContext struct {
	playwright.BrowserContext
	closed bool
}

func (c *fakeContext) Close(options ...playwright.BrowserContextCloseOptions) error {
	c.closed = true
	return nil
}

// fakeBrowserType records the options it is launched with. For Firefox it
// plays the browser's part by starting a fake debugging server on the port
// named by -start-debugger-server.
type fakeBrowserType struct {
	t       *testing.T
	name    string
	install func(path string) rdp.Packet
	// beforeLaunch runs before a launch is accepted.
	beforeLaunch func(userDataDir string)
	launchErr    error
	// noServer leaves the debugging port closed, as a browser that crashed
	// on startup would.
	noServer bool

	mu                sync.Mutex
	launchOpts       []playwright.BrowserTypeLaunchOptions
	persistentOpts   []playwright.BrowserTypeLaunchPersistentContextOptions
	persistentDirs   []string
	servers          []*rdptest.Server
	browsers         []*fakeBrowser
	contexts         []*fakeContext
	connectEndpoints []string
	cdpEndpoints     []string
}

func newFakeBrowserType(t *testing.T, name string) *fakeBrowserType {
	return &fakeBrowserType{t: t, name: name, install: rdptest.Accept}
}

func (f *fakeBrowserType) Name() string { return f.name }

func (f *fakeBrowserType) ExecutablePath() string { return "/opt/" + f.name + "/bin" }

func (f *fakeBrowserType) Connect(wsEndpoint string, options ...playwright.BrowserTypeConnectOptions) (playwright.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectEndpoints = append(f.connectEndpoints, wsEndpoint)
	return nil, nil
}

func (f *fakeBrowserType) ConnectOverCDP(endpointURL string, options ...playwright.BrowserTypeConnectOverCDPOptions) (playwright.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cdpEndpoints = append(f.cdpEndpoints, endpointURL)
	return nil, nil
}

func (f *fakeBrowserType) Launch(options ...playwright.BrowserTypeLaunchOptions) (playwright.Browser, error) {
	if len(options) != 1 {
		return nil, fmt.Errorf("expected exactly one options value, got %d", len(options))
	}
	if f.beforeLaunch != nil {
		f.beforeLaunch("")
	}
	if f.launchErr != nil {
		return nil, f.launchErr
	}
	if err := f.startDebuggingServer(options[0].Args); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.launchOpts = append(f.launchOpts, options[0])
	b := &fakeBrowser{}
	f.browsers = append(f.browsers, b)
	return b, nil
}

func (f *fakeBrowserType) LaunchPersistentContext(userDataDir string, options ...playwright.BrowserTypeLaunchPersistentContextOptions) (playwright.BrowserContext, error) {
	if len(options) != 1 {
		return nil, fmt.Errorf("expected exactly one options value, got %d", len(options))
	}
	if f.beforeLaunch != nil {
		f.beforeLaunch(userDataDir)
	}
	if f.launchErr != nil {
		return nil, f.launchErr
	}
	if err := f.startDebuggingServer(options[0].Args); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.persistentOpts = append(f.persistentOpts, options[0])
	f.persistentDirs = append(f.persistentDirs, userDataDir)
	c := &fakeContext{}
	f.contexts = append(f.contexts, c)
	return c, nil
}

func (f *fakeBrowserType) startDebuggingServer(args []string) error {
	if f.name != BrowserFirefox || f.noServer {
		return nil
	}
	port, found, err := debuggerServerPort(args)
	if err != nil {
		return err
	}
	if !found {
		return errors.New("debugging server not requested")
	}

	srv, err := rdptest.NewServerAt("127.0.0.1:"+strconv.Itoa(port), rdptest.AddonHandler(f.install))
	if err != nil {
		return err
	}
	f.t.Cleanup(func() { _ = srv.Close() })

	f.mu.Lock()
	defer f.mu.Unlock()
	f.servers = append(f.servers, srv)
	return nil
}
