package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/entrhq/webext/pkg/launch"
	"github.com/entrhq/webext/pkg/logging"
)

// launchFlags holds the launch command line. Values only override the
// configuration file when the flag was given.
type launchFlags struct {
	ConfigFile      string
	Browser         string
	Extensions      stringList
	URL             string
	Expect          expectList
	Headless        bool
	Channel         string
	UserDataDir     string
	DebuggerPort    int
	Timeout         time.Duration
	Hold            bool
	Snapshot        bool
	OutputDir       string
	Screenshot      bool
	InstallBrowsers bool
	LogDir          string
	LogLevel        string
}

func parseLaunchFlags(args []string, stderr io.Writer) (*launchFlags, map[string]bool, error) {
	defaults := launch.DefaultConfig()
	f := &launchFlags{}

	fs := flag.NewFlagSet("launch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.ConfigFile, "config", "", "Path to configuration file (YAML)")
	fs.StringVar(&f.Browser, "browser", defaults.Browser, "Browser: chromium or firefox")
	fs.Var(&f.Extensions, "ext", "Extension directory or pattern (repeatable)")
	fs.StringVar(&f.URL, "url", "", "Page to open after the extensions are installed")
	fs.Var(&f.Expect, "expect", "selector=text the page must show; text starts after the first = outside [...] (repeatable)")
	fs.BoolVar(&f.Headless, "headless", defaults.Headless, "Run the browser headless")
	fs.StringVar(&f.Channel, "channel", "", "Browser channel, e.g. chromium for Chromium's new headless mode")
	fs.StringVar(&f.UserDataDir, "user-data-dir", "", "Persistent profile directory")
	fs.IntVar(&f.DebuggerPort, "debugger-port", 0, "Firefox remote debugging port (0 picks a free port)")
	fs.DurationVar(&f.Timeout, "timeout", defaults.Timeout, "Launch, install and navigation timeout")
	fs.BoolVar(&f.Hold, "hold", false, "Keep the browser open until interrupted")
	fs.BoolVar(&f.Snapshot, "snapshot", false, "Print a cleaned snapshot of the page")
	fs.StringVar(&f.OutputDir, "output", "", "Directory for result.json and snapshot.html")
	fs.BoolVar(&f.Screenshot, "screenshot", false, "Save screenshot.png to the output directory")
	fs.BoolVar(&f.InstallBrowsers, "install-browsers", false, "Download the Playwright browser before launching")
	fs.StringVar(&f.LogDir, "log-dir", "", "Write the session log to this directory instead of stderr")
	fs.StringVar(&f.LogLevel, "log-level", defaults.Logging.Level, "Log level: debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	f.Extensions = append(f.Extensions, fs.Args()...)

	set := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	if fs.NArg() > 0 {
		set["ext"] = true
	}
	return f, set, nil
}

// buildLaunchConfig loads the configuration file, if any, and applies the
// flags that were given over it.
func buildLaunchConfig(f *launchFlags, set map[string]bool) (*launch.Config, error) {
	cfg := launch.DefaultConfig()
	if f.ConfigFile != "" {
		loaded, err := launch.LoadConfig(f.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if set["browser"] {
		cfg.Browser = f.Browser
	}
	if set["ext"] {
		cfg.Extensions = f.Extensions
	}
	if set["url"] {
		cfg.URL = f.URL
	}
	if set["expect"] {
		cfg.Expect = f.Expect
	}
	if set["headless"] {
		cfg.Headless = f.Headless
	}
	if set["channel"] {
		cfg.Channel = f.Channel
	}
	if set["user-data-dir"] {
		cfg.UserDataDir = f.UserDataDir
	}
	if set["debugger-port"] {
		cfg.DebuggerPort = f.DebuggerPort
	}
	if set["timeout"] {
		cfg.Timeout = f.Timeout
	}
	if set["hold"] {
		cfg.Hold = f.Hold
	}
	if set["snapshot"] {
		cfg.Snapshot.Enabled = f.Snapshot
	}
	if set["output"] {
		cfg.Artifacts.OutputDir = f.OutputDir
	}
	if set["screenshot"] {
		cfg.Artifacts.Screenshot = f.Screenshot
	}
	if set["install-browsers"] {
		cfg.InstallBrowsers = f.InstallBrowsers
	}
	if set["log-dir"] {
		cfg.Logging.Dir = f.LogDir
	}
	if set["log-level"] {
		cfg.Logging.Level = f.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger creates the session logger: a log file when a directory is
// configured, stderr otherwise.
func newLogger(cfg *launch.Config, stderr io.Writer) *logging.Logger {
	var logger *logging.Logger
	if cfg.Logging.Dir != "" {
		// On failure NewFileLogger falls back to stderr and says so
		logger, _ = logging.NewFileLogger("webext", cfg.Logging.Dir)
	} else {
		logger = logging.New("webext", stderr)
	}
	logger.SetLevel(cfg.LogLevel())
	return logger
}

func runLaunch(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	f, set, err := parseLaunchFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := buildLaunchConfig(f, set)
	if err != nil {
		return err
	}

	logger := newLogger(cfg, stderr)
	defer logger.Close()
	if path := logger.LogPath(); path != "" {
		fmt.Fprintf(stderr, "Logging to %s\n", path)
	}

	runner := launch.NewRunner(logger)
	if err := runner.Initialize(cfg.InstallBrowsers, cfg.Browser); err != nil {
		return err
	}
	defer func() {
		if err := runner.Shutdown(); err != nil {
			logger.Warnf("%v", err)
		}
	}()

	result, err := runner.Run(ctx, cfg)
	if err != nil {
		return err
	}

	printResult(stdout, result)
	if !result.Passed() {
		return errChecksFailed
	}
	return nil
}
