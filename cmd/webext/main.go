// Package main provides the webext command: launch Playwright browsers with
// unpacked extensions installed, and pre-grant Firefox addon permissions in
// a profile.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

const version = "0.1.0"

// errChecksFailed is returned when the browser launched but an expectation
// did not hold.
var errChecksFailed = errors.New("expectations failed")

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		cancel()
	}()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	if err != nil {
		if !errors.Is(err, errChecksFailed) {
			fmt.Fprintf(os.Stderr, "webext: %v\n", err)
		}
		os.Exit(1)
	}
}

// run dispatches to a subcommand
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stderr)
		return fmt.Errorf("a command is required")
	}

	switch args[0] {
	case "launch":
		return runLaunch(ctx, args[1:], stdout, stderr)
	case "grant":
		return runGrant(args[1:], stdout, stderr)
	case "version", "-version", "--version":
		fmt.Fprintf(stdout, "webext v%s\n", version)
		return nil
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return nil
	default:
		usage(stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "webext - launch Playwright browsers with unpacked extensions\n\n")
	fmt.Fprintf(w, "Usage: webext <command> [options]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  launch    Launch a browser with extensions and check the page they render\n")
	fmt.Fprintf(w, "  grant     Pre-grant Manifest V3 addon permissions in a Firefox profile\n")
	fmt.Fprintf(w, "  version   Show version and exit\n\n")
	fmt.Fprintf(w, "Examples:\n")
	fmt.Fprintf(w, "  # Run with a config file\n")
	fmt.Fprintf(w, "  webext launch -config webext.yaml\n\n")
	fmt.Fprintf(w, "  # Check an extension renders into a page\n")
	fmt.Fprintf(w, "  webext launch -browser firefox -ext ./my-extension -url https://example.com -expect '#badge=ok'\n\n")
	fmt.Fprintf(w, "  # Prepare a profile before starting Firefox yourself\n")
	fmt.Fprintf(w, "  webext grant -profile ./profile ./my-extension\n")
}
