// Package webext launches Playwright browsers with unpacked extensions
// installed.
//
// WithExtension wraps a playwright.BrowserType so that every browser it
// launches comes up with the given extension directories active. The wrapper
// implements playwright.BrowserType itself and can be used anywhere the
// wrapped browser type was.
//
// # Chromium
//
// Chromium loads unpacked extensions natively; the wrapper appends
// --load-extension and --disable-extensions-except to the launch arguments.
//
// # Firefox
//
// Firefox has no flag for unpacked extensions. The wrapper starts Firefox with
// its remote debugging server on a free port and, once the browser is up,
// installs every extension as a temporary addon over that port before handing
// the browser back. For persistent contexts, Manifest V3 addons also get their
// content script origins and optional permissions written into the profile's
// extension-preferences.json before launch, since Firefox does not grant them
// to a freshly installed MV3 addon.
//
// # Example
//
//	pw, _ := playwright.Run()
//	firefox, err := webext.WithExtension(pw.Firefox, []string{"./my-extension"})
//	if err != nil {
//		return err
//	}
//	browser, err := firefox.Launch(playwright.BrowserTypeLaunchOptions{
//		Headless: playwright.Bool(true),
//	})
package webext
