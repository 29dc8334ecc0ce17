package launch

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/webext/pkg/logging"
	"github.com/entrhq/webext/pkg/webext"
)

// BrowserTypeLookup returns the Playwright browser type for a browser family.
type BrowserTypeLookup func(name string) (playwright.BrowserType, error)

// textAssertion waits until the element matched by selector shows text.
type textAssertion func(page playwright.Page, selector, text string, timeout *float64) error

// Runner drives Playwright: it launches browsers with extensions, opens the
// configured page and checks what the extensions rendered.
type Runner struct {
	mu          sync.Mutex
	playwright  *playwright.Playwright
	lookup      BrowserTypeLookup
	initialized bool

	logger     *logging.Logger
	assertText textAssertion
}

// NewRunner creates a runner. Initialize must be called before Run unless
// the runner was created with NewRunnerWithLookup.
func NewRunner(logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Runner{
		logger:     logger,
		assertText: assertLocatorText,
	}
}

// NewRunnerWithLookup creates a runner that takes browser types from lookup
// instead of a Playwright driver it starts itself.
func NewRunnerWithLookup(logger *logging.Logger, lookup BrowserTypeLookup) *Runner {
	r := NewRunner(logger)
	r.lookup = lookup
	r.initialized = true
	return r
}

// Initialize installs and starts the Playwright driver. When installBrowsers
// is set the named browsers (all when none are named) are downloaded too.
func (r *Runner) Initialize(installBrowsers bool, browsers ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return nil
	}

	// Driver output would interleave with ours
	opts := &playwright.RunOptions{
		Verbose:             false,
		Stdout:              io.Discard,
		Stderr:              io.Discard,
		SkipInstallBrowsers: !installBrowsers,
		Browsers:            browsers,
	}

	r.logger.Debugf("Installing playwright driver (browsers: %v)", installBrowsers)
	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	r.playwright = pw
	r.lookup = playwrightBrowserTypes(pw)
	r.initialized = true
	return nil
}

// Shutdown stops the Playwright driver if this runner started it.
func (r *Runner) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized && r.playwright != nil {
		if err := r.playwright.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright: %w", err)
		}
		r.playwright = nil
		r.lookup = nil
		r.initialized = false
	}
	return nil
}

// Run launches the configured browser with its extensions, navigates, checks
// expectations and closes the browser. cfg must have been validated.
//
// A failed expectation is reported in the Result, not as an error.
func (r *Runner) Run(ctx context.Context, cfg *Config) (*Result, error) {
	r.mu.Lock()
	lookup := r.lookup
	r.mu.Unlock()
	if lookup == nil {
		return nil, fmt.Errorf("runner not initialized")
	}

	paths, err := cfg.ExtensionPaths()
	if err != nil {
		return nil, err
	}

	browserType, err := lookup(cfg.Browser)
	if err != nil {
		return nil, err
	}

	opts := []webext.Option{webext.WithLogger(r.logger.With("webext"))}
	if cfg.DebuggerPort > 0 {
		opts = append(opts, webext.WithPort(cfg.DebuggerPort))
	}
	decorated, err := webext.WithExtension(browserType, paths, opts...)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{
		SessionID:  r.logger.SessionID(),
		Browser:    cfg.Browser,
		Extensions: paths,
		Persistent: usePersistentContext(cfg),
		URL:        cfg.URL,
		StartTime:  time.Now(),
	}

	r.logger.Infof("Launching %s with %d extension(s)", cfg.Browser, len(paths))
	sess, err := openSession(decorated, cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := sess.close(); err != nil {
			r.logger.Warnf("Failed to close browser: %v", err)
		}
	}()

	if err := r.visit(ctx, sess.page, cfg, result); err != nil {
		return nil, err
	}

	if cfg.Hold {
		r.logger.Infof("Browser is open, interrupt to exit")
		<-ctx.Done()
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	if cfg.Artifacts.OutputDir != "" {
		if err := NewArtifactWriter(cfg.Artifacts.OutputDir).WriteAll(result); err != nil {
			return result, err
		}
	}
	return result, nil
}

// visit navigates and records what the page shows.
func (r *Runner) visit(ctx context.Context, page playwright.Page, cfg *Config, result *Result) error {
	if cfg.URL == "" {
		return nil
	}

	timeout := timeoutMillis(cfg.Timeout)
	r.logger.Debugf("Navigating to %s", cfg.URL)
	if _, err := page.Goto(cfg.URL, playwright.PageGotoOptions{Timeout: timeout}); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", cfg.URL, err)
	}

	title, err := page.Title()
	if err != nil {
		return fmt.Errorf("failed to read page title: %w", err)
	}
	result.Title = title

	for _, e := range cfg.Expect {
		if err := ctx.Err(); err != nil {
			return err
		}
		check := CheckResult{Selector: e.Selector, Expected: e.Text, Passed: true}
		if err := r.assertText(page, e.Selector, e.Text, timeout); err != nil {
			check.Passed = false
			check.Error = err.Error()
			r.logger.Warnf("Expectation failed for %s: %v", e.Selector, err)
		}
		result.Checks = append(result.Checks, check)
	}

	if cfg.Snapshot.Enabled {
		content, err := page.Content()
		if err != nil {
			return fmt.Errorf("failed to read page content: %w", err)
		}
		snapshot, err := Snapshot(content, cfg.Snapshot.MaxLength)
		if err != nil {
			return err
		}
		result.Snapshot = snapshot
	}

	if cfg.Artifacts.Screenshot {
		artifacts := NewArtifactWriter(cfg.Artifacts.OutputDir)
		// Playwright does not create parent directories
		if err := artifacts.EnsureDir(); err != nil {
			return err
		}
		path := artifacts.ScreenshotPath()
		if _, err := page.Screenshot(playwright.PageScreenshotOptions{
			Path:     playwright.String(path),
			FullPage: playwright.Bool(true),
		}); err != nil {
			return fmt.Errorf("failed to take screenshot: %w", err)
		}
	}
	return nil
}

// session is one launched browser and the page the run works on.
type session struct {
	page  playwright.Page
	close func() error
}

// usePersistentContext reports whether to launch with a persistent profile.
// Chromium only loads extensions into persistent contexts.
func usePersistentContext(cfg *Config) bool {
	return cfg.UserDataDir != "" || cfg.Browser == webext.BrowserChromium
}

func openSession(browserType playwright.BrowserType, cfg *Config) (*session, error) {
	timeout := timeoutMillis(cfg.Timeout)
	var channel *string
	if cfg.Channel != "" {
		channel = playwright.String(cfg.Channel)
	}

	if usePersistentContext(cfg) {
		browserContext, err := browserType.LaunchPersistentContext(cfg.UserDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless: playwright.Bool(cfg.Headless),
			Channel:  channel,
			Timeout:  timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}

		if pages := browserContext.Pages(); len(pages) > 0 {
			return &session{page: pages[0], close: func() error { return browserContext.Close() }}, nil
		}
		page, err := browserContext.NewPage()
		if err != nil {
			browserContext.Close()
			return nil, fmt.Errorf("failed to create page: %w", err)
		}
		return &session{page: page, close: func() error { return browserContext.Close() }}, nil
	}

	browser, err := browserType.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		Channel:  channel,
		Timeout:  timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	page, err := browser.NewPage()
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return &session{page: page, close: func() error { return browser.Close() }}, nil
}

func playwrightBrowserTypes(pw *playwright.Playwright) BrowserTypeLookup {
	return func(name string) (playwright.BrowserType, error) {
		switch name {
		case webext.BrowserChromium:
			return pw.Chromium, nil
		case webext.BrowserFirefox:
			return pw.Firefox, nil
		}
		return nil, fmt.Errorf("%w: %s", webext.ErrUnsupportedBrowser, name)
	}
}

func assertLocatorText(page playwright.Page, selector, text string, timeout *float64) error {
	var timeouts []float64
	if timeout != nil {
		timeouts = append(timeouts, *timeout)
	}
	return playwright.NewPlaywrightAssertions(timeouts...).Locator(page.Locator(selector)).ToHaveText(text)
}

// timeoutMillis converts d to Playwright's millisecond timeouts. Zero means
// Playwright's default.
func timeoutMillis(d time.Duration) *float64 {
	if d <= 0 {
		return nil
	}
	return playwright.Float(float64(d.Milliseconds()))
}
