package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/entrhq/webext/pkg/firefox/prefs"
	"github.com/entrhq/webext/pkg/launch"
)

var (
	salmonPink = lipgloss.Color("#FFB3BA")
	mintGreen  = lipgloss.Color("#A8E6CF")
	mutedGray  = lipgloss.Color("#6B7280")
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	passStyle = lipgloss.NewStyle().
			Foreground(mintGreen).
			Bold(true)

	failStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedGray)

	snapshotStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedGray).
			Padding(0, 1)
)

// printResult writes a human-readable summary of a launch
func printResult(w io.Writer, result *launch.Result) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%s with %d extension(s)", result.Browser, len(result.Extensions))))
	for _, ext := range result.Extensions {
		fmt.Fprintln(w, mutedStyle.Render("  "+ext))
	}

	if result.URL != "" {
		fmt.Fprintf(w, "\n%s %s\n", headerStyle.Render("Page:"), result.URL)
		if result.Title != "" {
			fmt.Fprintf(w, "%s %s\n", headerStyle.Render("Title:"), result.Title)
		}
	}

	if len(result.Checks) > 0 {
		fmt.Fprintln(w)
		for _, c := range result.Checks {
			if c.Passed {
				fmt.Fprintf(w, "%s %s = %q\n", passStyle.Render("PASS"), c.Selector, c.Expected)
				continue
			}
			fmt.Fprintf(w, "%s %s = %q\n", failStyle.Render("FAIL"), c.Selector, c.Expected)
			fmt.Fprintln(w, mutedStyle.Render("     "+firstLine(c.Error)))
		}
	}

	if result.Snapshot != nil {
		fmt.Fprintf(w, "\n%s\n", snapshotStyle.Render(result.Snapshot.HTML))
		if result.Snapshot.Truncated {
			fmt.Fprintln(w, mutedStyle.Render("(snapshot truncated)"))
		}
	}

	fmt.Fprintf(w, "\n%s\n", mutedStyle.Render(fmt.Sprintf("session %s, %s", result.SessionID, result.Duration.Round(time.Millisecond))))
}

// printGrants writes the grants written to a profile
func printGrants(w io.Writer, path string, granted *prefs.Preferences) {
	if granted == nil || granted.Len() == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No Manifest V3 addon needs permissions granted, nothing written"))
		return
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Granted permissions to %d addon(s)", granted.Len())))
	for _, id := range granted.AddonIDs() {
		perms, _ := granted.Addon(id)
		fmt.Fprintf(w, "%s %s\n", passStyle.Render("+"), id)
		if len(perms.Origins) > 0 {
			fmt.Fprintf(w, "    origins:     %s\n", strings.Join(perms.Origins, ", "))
		}
		if len(perms.Permissions) > 0 {
			fmt.Fprintf(w, "    permissions: %s\n", strings.Join(perms.Permissions, ", "))
		}
	}
	fmt.Fprintln(w, mutedStyle.Render(path))
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
