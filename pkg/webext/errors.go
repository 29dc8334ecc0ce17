package webext

import "errors"

var (
	// ErrConfiguration is wrapped by every error caused by how a decorator
	// was set up rather than by a launch.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrUnexpectedBrowser means a decorator was given a browser type of
	// another family.
	ErrUnexpectedBrowser = errors.New("unexpected browser")

	// ErrUnsupportedBrowser means WithExtension has no decorator for the
	// browser family.
	ErrUnsupportedBrowser = errors.New("unsupported browser")
)
