package webext

import (
	"slices"
	"strings"
)

// ChromiumOverrides computes the launch arguments that preload unpacked
// extensions in Chromium.
type ChromiumOverrides struct {
	extensionPaths []string
}

// NewChromiumOverrides returns overrides for the given extension directories.
func NewChromiumOverrides(extensionPaths []string) *ChromiumOverrides {
	return &ChromiumOverrides{extensionPaths: slices.Clone(extensionPaths)}
}

// Args returns args followed by --disable-extensions-except and
// --load-extension listing every extension in order. args is not modified.
func (o *ChromiumOverrides) Args(args []string) []string {
	joined := strings.Join(o.extensionPaths, ",")
	out := make([]string, 0, len(args)+2)
	out = append(out, args...)
	return append(out,
		"--disable-extensions-except="+joined,
		"--load-extension="+joined,
	)
}
