package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webext/pkg/firefox/prefs"
	"github.com/entrhq/webext/pkg/launch"
)

func writeExtension(t *testing.T, dir, manifest string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(manifest), 0644))
	return dir
}

func TestRun_Commands(t *testing.T) {
	var stdout, stderr bytes.Buffer

	require.NoError(t, run(context.Background(), []string{"version"}, &stdout, &stderr))
	assert.Equal(t, "webext v"+version+"\n", stdout.String())

	stdout.Reset()
	require.NoError(t, run(context.Background(), []string{"help"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Usage: webext <command>")

	err := run(context.Background(), []string{"frobnicate"}, &stdout, &stderr)
	assert.ErrorContains(t, err, `unknown command "frobnicate"`)

	err = run(context.Background(), nil, &stdout, &stderr)
	assert.ErrorContains(t, err, "a command is required")
}

func TestExpectList(t *testing.T) {
	var l expectList
	require.NoError(t, l.Set("#magic-number=42"))
	require.NoError(t, l.Set(`[data-id="x"]=0xDEADBEEF`))
	require.NoError(t, l.Set("#empty="))
	require.NoError(t, l.Set("#q=a=b"))
	require.NoError(t, l.Set(`a[href="/?x=1"]=link=text`))
	require.NoError(t, l.Set(`[title='a]b']=c`))
	assert.Equal(t, expectList{
		{Selector: "#magic-number", Text: "42"},
		{Selector: `[data-id="x"]`, Text: "0xDEADBEEF"},
		{Selector: "#empty", Text: ""},
		{Selector: "#q", Text: "a=b"},
		{Selector: `a[href="/?x=1"]`, Text: "link=text"},
		{Selector: `[title='a]b']`, Text: "c"},
	}, l)

	assert.Error(t, l.Set("no-separator"))
	assert.Error(t, l.Set("=42"))
	assert.Error(t, l.Set(`[data-id="x=1"]`))
}

func TestBuildLaunchConfig_FlagsOnly(t *testing.T) {
	f, set, err := parseLaunchFlags([]string{
		"-browser", "chromium",
		"-ext", "a",
		"-url", "https://example.com/",
		"-expect", "#magic-number=42",
		"-headless=false",
		"-timeout", "10s",
		"b",
	}, &bytes.Buffer{})
	require.NoError(t, err)

	cfg, err := buildLaunchConfig(f, set)
	require.NoError(t, err)
	assert.Equal(t, "chromium", cfg.Browser)
	assert.Equal(t, []string{"a", "b"}, cfg.Extensions)
	assert.Equal(t, "https://example.com/", cfg.URL)
	assert.Equal(t, []launch.Expectation{{Selector: "#magic-number", Text: "42"}}, cfg.Expect)
	assert.False(t, cfg.Headless)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
}

func TestBuildLaunchConfig_FlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "webext.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
browser: chromium
extensions: ["ext"]
url: https://example.com/
headless: true
timeout: 20s
`), 0644))

	f, set, err := parseLaunchFlags([]string{"-config", path, "-url", "https://example.org/"}, &bytes.Buffer{})
	require.NoError(t, err)

	cfg, err := buildLaunchConfig(f, set)
	require.NoError(t, err)
	assert.Equal(t, "chromium", cfg.Browser)
	assert.Equal(t, []string{"ext"}, cfg.Extensions)
	assert.Equal(t, "https://example.org/", cfg.URL)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 20*time.Second, cfg.Timeout)
}

func TestBuildLaunchConfig_Invalid(t *testing.T) {
	f, set, err := parseLaunchFlags([]string{"-browser", "webkit", "-ext", "a"}, &bytes.Buffer{})
	require.NoError(t, err)

	_, err = buildLaunchConfig(f, set)
	assert.ErrorContains(t, err, "invalid browser")
}

func TestParseLaunchFlags_Unknown(t *testing.T) {
	_, _, err := parseLaunchFlags([]string{"-nope"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRunGrant(t *testing.T) {
	base := t.TempDir()
	mv3 := writeExtension(t, filepath.Join(base, "mv3"), `{
		"manifest_version": 3,
		"browser_specific_settings": {"gecko": {"id": "mv3@webext.test"}},
		"content_scripts": [{"matches": ["<all_urls>"]}],
		"optional_permissions": ["tabs"]
	}`)
	mv2 := writeExtension(t, filepath.Join(base, "mv2"), `{"manifest_version": 2}`)
	profile := filepath.Join(base, "profile")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"grant", "-profile", profile, mv3, mv2}, &stdout, &stderr)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "mv3@webext.test")
	assert.Contains(t, stdout.String(), "<all_urls>, tabs")

	stored, err := prefs.NewRepository(profile).Load()
	require.NoError(t, err)
	perms, ok := stored.Addon("mv3@webext.test")
	require.True(t, ok)
	assert.Equal(t, []string{"<all_urls>"}, perms.Origins)
	assert.Equal(t, []string{"<all_urls>", "tabs"}, perms.Permissions)
}

func TestRunGrant_NothingToGrant(t *testing.T) {
	base := t.TempDir()
	mv2 := writeExtension(t, filepath.Join(base, "mv2"), `{"manifest_version": 2}`)
	profile := filepath.Join(base, "profile")

	var stdout bytes.Buffer
	require.NoError(t, runGrant([]string{"-profile", profile, "-ext", mv2}, &stdout, &bytes.Buffer{}))
	assert.Contains(t, stdout.String(), "nothing written")
	assert.NoFileExists(t, filepath.Join(profile, prefs.FileName))
}

func TestRunGrant_Errors(t *testing.T) {
	err := runGrant([]string{"ext"}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "-profile is required")

	err = runGrant([]string{"-profile", t.TempDir()}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "at least one extension")

	err = runGrant([]string{"-profile", t.TempDir(), t.TempDir()}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestPrintResult(t *testing.T) {
	result := &launch.Result{
		SessionID:  "session",
		Browser:    "firefox",
		Extensions: []string{"/ext/magic-number-extension"},
		URL:        "https://example.com/",
		Title:      "Example Domain",
		Checks: []launch.CheckResult{
			{Selector: "#magic-number", Expected: "42", Passed: true},
			{Selector: "#deadbeef-container", Expected: "0xDEADBEEF", Error: "timed out\ncall log"},
		},
		Snapshot: &launch.PageSnapshot{HTML: `<div id="magic-number">42</div>`},
	}

	var out bytes.Buffer
	printResult(&out, result)
	text := out.String()
	assert.Contains(t, text, "firefox with 1 extension(s)")
	assert.Contains(t, text, "/ext/magic-number-extension")
	assert.Contains(t, text, "Example Domain")
	assert.Contains(t, text, `PASS #magic-number = "42"`)
	assert.Contains(t, text, `FAIL #deadbeef-container = "0xDEADBEEF"`)
	assert.Contains(t, text, "timed out")
	assert.NotContains(t, text, "call log")
	assert.Contains(t, text, `<div id="magic-number">42</div>`)
}
