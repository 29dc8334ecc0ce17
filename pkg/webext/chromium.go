package webext

import (
	"fmt"
	"slices"

	"github.com/playwright-community/playwright-go"
)

// BrowserChromium is the Name() of Playwright's Chromium browser type.
const BrowserChromium = "chromium"

// Chromium is a Chromium browser type that launches with unpacked extensions
// loaded.
type Chromium struct {
	browserType    playwright.BrowserType
	extensionPaths []string
	overrides      *ChromiumOverrides
	logger         Logger
}

var _ playwright.BrowserType = (*Chromium)(nil)

// NewChromium wraps browserType, which must be Chromium.
func NewChromium(browserType playwright.BrowserType, extensionPaths []string, opts ...Option) (*Chromium, error) {
	if name := browserType.Name(); name != BrowserChromium {
		return nil, fmt.Errorf("%w: %w: %s", ErrConfiguration, ErrUnexpectedBrowser, name)
	}

	o := applyOptions(opts)
	return &Chromium{
		browserType:    browserType,
		extensionPaths: slices.Clone(extensionPaths),
		overrides:      NewChromiumOverrides(extensionPaths),
		logger:         o.logger,
	}, nil
}

// ExtensionPaths returns the extension directories loaded at launch.
func (c *Chromium) ExtensionPaths() []string {
	return slices.Clone(c.extensionPaths)
}

// Connect attaches to a running browser. No extensions are loaded.
func (c *Chromium) Connect(wsEndpoint string, options ...playwright.BrowserTypeConnectOptions) (playwright.Browser, error) {
	return c.browserType.Connect(wsEndpoint, options...)
}

// ConnectOverCDP attaches to a running browser. No extensions are loaded.
func (c *Chromium) ConnectOverCDP(endpointURL string, options ...playwright.BrowserTypeConnectOverCDPOptions) (playwright.Browser, error) {
	return c.browserType.ConnectOverCDP(endpointURL, options...)
}

func (c *Chromium) ExecutablePath() string {
	return c.browserType.ExecutablePath()
}

// Launch starts a browser with the extensions loaded.
func (c *Chromium) Launch(options ...playwright.BrowserTypeLaunchOptions) (playwright.Browser, error) {
	var opts playwright.BrowserTypeLaunchOptions
	if len(options) > 0 {
		opts = options[0]
	}
	opts.Args = c.overrides.Args(opts.Args)

	c.logger.Debugf("Launching chromium with %d extension(s)", len(c.extensionPaths))
	return c.browserType.Launch(opts)
}

// LaunchPersistentContext starts a browser with a persistent profile and the
// extensions loaded.
func (c *Chromium) LaunchPersistentContext(userDataDir string, options ...playwright.BrowserTypeLaunchPersistentContextOptions) (playwright.BrowserContext, error) {
	var opts playwright.BrowserTypeLaunchPersistentContextOptions
	if len(options) > 0 {
		opts = options[0]
	}
	opts.Args = c.overrides.Args(opts.Args)

	c.logger.Debugf("Launching chromium persistent context with %d extension(s)", len(c.extensionPaths))
	return c.browserType.LaunchPersistentContext(userDataDir, opts)
}

func (c *Chromium) Name() string {
	return c.browserType.Name()
}
