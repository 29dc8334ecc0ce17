package webext

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/webext/pkg/extension"
	"github.com/entrhq/webext/pkg/firefox/prefs"
	"github.com/entrhq/webext/pkg/firefox/rdp"
)

// BrowserFirefox is the Name() of Playwright's Firefox browser type.
const BrowserFirefox = "firefox"

// Firefox is a Firefox browser type that installs addons into every browser
// it launches.
//
// Each launch resolves its own debugging port, so one Firefox value can be
// used for concurrent launches.
type Firefox struct {
	browserType playwright.BrowserType
	addonPaths  []string
	overrides   *FirefoxOverrides
	logger      Logger
}

var _ playwright.BrowserType = (*Firefox)(nil)

// NewFirefox wraps browserType, which must be Firefox.
func NewFirefox(browserType playwright.BrowserType, addonPaths []string, opts ...Option) (*Firefox, error) {
	if name := browserType.Name(); name != BrowserFirefox {
		return nil, fmt.Errorf("%w: %w: %s", ErrConfiguration, ErrUnexpectedBrowser, name)
	}

	o := applyOptions(opts)
	return &Firefox{
		browserType: browserType,
		addonPaths:  slices.Clone(addonPaths),
		overrides:   NewFirefoxOverrides(o.port),
		logger:      o.logger,
	}, nil
}

// AddonPaths returns the addon directories installed at launch.
func (f *Firefox) AddonPaths() []string {
	return slices.Clone(f.addonPaths)
}

// Connect attaches to a running browser. No addons are installed.
func (f *Firefox) Connect(wsEndpoint string, options ...playwright.BrowserTypeConnectOptions) (playwright.Browser, error) {
	return f.browserType.Connect(wsEndpoint, options...)
}

// ConnectOverCDP attaches to a running browser. No addons are installed.
func (f *Firefox) ConnectOverCDP(endpointURL string, options ...playwright.BrowserTypeConnectOverCDPOptions) (playwright.Browser, error) {
	return f.browserType.ConnectOverCDP(endpointURL, options...)
}

func (f *Firefox) ExecutablePath() string {
	return f.browserType.ExecutablePath()
}

func (f *Firefox) Name() string {
	return f.browserType.Name()
}

// Launch starts a browser and installs the addons before returning it.
func (f *Firefox) Launch(options ...playwright.BrowserTypeLaunchOptions) (playwright.Browser, error) {
	var opts playwright.BrowserTypeLaunchOptions
	if len(options) > 0 {
		opts = options[0]
	}

	args, port, err := f.overrides.DebuggingServerArgs(context.Background(), opts.Args)
	if err != nil {
		return nil, err
	}
	opts.Args = args
	opts.FirefoxUserPrefs = f.overrides.UserPrefs(opts.FirefoxUserPrefs)

	f.logger.Debugf("Launching firefox with debugging server on port %d", port)
	browser, err := f.browserType.Launch(opts)
	if err != nil {
		return nil, err
	}

	if err := f.installAfterLaunch(opts.Timeout, port); err != nil {
		if browser != nil {
			if closeErr := browser.Close(); closeErr != nil {
				f.logger.Warnf("Failed to close browser after addon install failure: %v", closeErr)
			}
		}
		return nil, err
	}
	return browser, nil
}

// LaunchPersistentContext grants MV3 addon permissions in userDataDir,
// starts a browser on that profile and installs the addons before returning
// the context.
func (f *Firefox) LaunchPersistentContext(userDataDir string, options ...playwright.BrowserTypeLaunchPersistentContextOptions) (playwright.BrowserContext, error) {
	var opts playwright.BrowserTypeLaunchPersistentContextOptions
	if len(options) > 0 {
		opts = options[0]
	}

	args, port, err := f.overrides.DebuggingServerArgs(context.Background(), opts.Args)
	if err != nil {
		return nil, err
	}
	opts.Args = args
	opts.FirefoxUserPrefs = f.overrides.UserPrefs(opts.FirefoxUserPrefs)

	// The profile must hold the grants before Firefox reads it at startup.
	if _, err := f.GrantPermissions(userDataDir); err != nil {
		return nil, err
	}

	f.logger.Debugf("Launching firefox persistent context with debugging server on port %d", port)
	browserContext, err := f.browserType.LaunchPersistentContext(userDataDir, opts)
	if err != nil {
		return nil, err
	}

	if err := f.installAfterLaunch(opts.Timeout, port); err != nil {
		if browserContext != nil {
			if closeErr := browserContext.Close(); closeErr != nil {
				f.logger.Warnf("Failed to close context after addon install failure: %v", closeErr)
			}
		}
		return nil, err
	}
	return browserContext, nil
}

// InstallAddons installs every addon as a temporary addon through the
// debugging server on localhost:port. Installs run concurrently; the error
// lists every addon that failed.
func (f *Firefox) InstallAddons(ctx context.Context, port int) ([]*rdp.Addon, error) {
	addons, err := rdp.NewInstaller(port).InstallAll(ctx, f.addonPaths)
	if err != nil {
		return nil, err
	}
	for _, addon := range addons {
		f.logger.Debugf("Installed temporary addon %s from %s", addon.ID, addon.Path)
	}
	return addons, nil
}

// GrantPermissions writes the origins and optional permissions required by
// Manifest V3 addons into the extension preferences of the profile in
// profileDir. It returns the grants written, or nil when nothing was written.
//
// An empty profileDir means Playwright will create a throwaway profile that
// cannot be prepared in advance; nothing is written.
func (f *Firefox) GrantPermissions(profileDir string) (*prefs.Preferences, error) {
	if profileDir == "" {
		f.logger.Debugf("No user data dir given, skipping addon permission grants")
		return nil, nil
	}

	exts, err := extension.LoadAll(f.addonPaths)
	if err != nil {
		return nil, err
	}

	granted, err := prefs.NewRepository(profileDir).Grant(exts, f.logger)
	if err != nil {
		return nil, err
	}
	if granted.Len() == 0 {
		return nil, nil
	}
	f.logger.Debugf("Granted permissions to %d addon(s) in %s", granted.Len(), profileDir)
	return granted, nil
}

// installAfterLaunch installs the addons, bounded by the launch timeout (in
// milliseconds) when the caller set one.
func (f *Firefox) installAfterLaunch(timeout *float64, port int) error {
	ctx := context.Background()
	if timeout != nil && *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(*timeout*float64(time.Millisecond)))
		defer cancel()
	}
	_, err := f.InstallAddons(ctx, port)
	return err
}
