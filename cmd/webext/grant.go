package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/entrhq/webext/pkg/extension"
	"github.com/entrhq/webext/pkg/firefox/prefs"
	"github.com/entrhq/webext/pkg/logging"
)

// runGrant writes the origins and permissions Manifest V3 addons need into a
// Firefox profile, the same grants a persistent Firefox launch applies.
func runGrant(args []string, stdout, stderr io.Writer) error {
	var (
		profile  string
		exts     stringList
		logLevel string
	)

	fs := flag.NewFlagSet("grant", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&profile, "profile", "", "Firefox profile directory (required)")
	fs.Var(&exts, "ext", "Extension directory (repeatable, or pass as arguments)")
	fs.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return err
	}
	exts = append(exts, fs.Args()...)

	if profile == "" {
		return fmt.Errorf("-profile is required")
	}
	if len(exts) == 0 {
		return fmt.Errorf("at least one extension is required")
	}

	logger := logging.New("webext", stderr)
	logger.SetLevel(logging.ParseLevel(logLevel))

	loaded, err := extension.LoadAll(exts)
	if err != nil {
		return err
	}

	repo := prefs.NewRepository(profile)
	granted, err := repo.Grant(loaded, logger)
	if err != nil {
		return err
	}
	logger.Debugf("Extension preferences at %s", repo.Path())

	printGrants(stdout, repo.Path(), granted)
	return nil
}
