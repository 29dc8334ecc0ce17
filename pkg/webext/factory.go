package webext

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// WithExtension wraps browserType so that browsers it launches have the
// unpacked extensions in extensionPaths installed. The concrete decorator is
// chosen by browserType.Name(); WebKit is not supported.
func WithExtension(browserType playwright.BrowserType, extensionPaths []string, opts ...Option) (playwright.BrowserType, error) {
	switch name := browserType.Name(); name {
	case BrowserFirefox:
		f, err := NewFirefox(browserType, extensionPaths, opts...)
		if err != nil {
			return nil, err
		}
		return f, nil
	case BrowserChromium:
		c, err := NewChromium(browserType, extensionPaths, opts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %w: %s", ErrConfiguration, ErrUnsupportedBrowser, name)
	}
}
