package launch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	"github.com/entrhq/webext/pkg/logging"
	"github.com/entrhq/webext/pkg/webext"
)

// Config describes one browser launch with extensions
type Config struct {
	// Browser family: chromium or firefox
	Browser string `yaml:"browser" json:"browser"`

	// Extension directories. Entries may use glob patterns in their last
	// path element, e.g. testdata/*-extension.
	Extensions []string `yaml:"extensions" json:"extensions"`

	Headless bool   `yaml:"headless" json:"headless"`
	Channel  string `yaml:"channel" json:"channel"`

	// Profile directory. Firefox MV3 grants are written here before launch.
	UserDataDir string `yaml:"user_data_dir" json:"user_data_dir"`

	// Page to open once the extensions are installed
	URL string `yaml:"url" json:"url"`

	// Text each selector must show after navigation
	Expect []Expectation `yaml:"expect" json:"expect"`

	// Firefox remote debugging port (0 picks a free port per launch)
	DebuggerPort int `yaml:"debugger_port" json:"debugger_port"`

	// Bounds the launch, addon installation, navigation and each expectation
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// Download Playwright browsers on Initialize
	InstallBrowsers bool `yaml:"install_browsers" json:"install_browsers"`

	// Keep the browser open until the run is canceled
	Hold bool `yaml:"hold" json:"hold"`

	Snapshot  SnapshotConfig `yaml:"snapshot" json:"snapshot"`
	Artifacts ArtifactConfig `yaml:"artifacts" json:"artifacts"`
	Logging   LoggingConfig  `yaml:"logging" json:"logging"`

	// Directory relative extension paths are resolved against
	baseDir string
}

// Expectation asserts the text content of the element matched by Selector
type Expectation struct {
	Selector string `yaml:"selector" json:"selector"`
	Text     string `yaml:"text" json:"text"`
}

// SnapshotConfig controls capture of the cleaned page HTML
type SnapshotConfig struct {
	Enabled   bool `yaml:"enabled" json:"enabled"`
	MaxLength int  `yaml:"max_length" json:"max_length"`
}

// ArtifactConfig controls the files written after a run
type ArtifactConfig struct {
	OutputDir  string `yaml:"output_dir" json:"output_dir"`
	Screenshot bool   `yaml:"screenshot" json:"screenshot"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Directory for the session log file; empty logs to stderr
	Dir string `yaml:"dir" json:"dir"`
	// Level: debug, info, warn or error
	Level string `yaml:"level" json:"level"`
}

// DefaultConfig returns a configuration for a headless Firefox launch
func DefaultConfig() *Config {
	return &Config{
		Browser:  webext.BrowserFirefox,
		Headless: true,
		Timeout:  30 * time.Second,
		Snapshot: SnapshotConfig{
			MaxLength: 20000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads a YAML configuration file over the defaults. Relative
// extension paths in the file are resolved against the file's directory.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	cfg.baseDir = filepath.Dir(absPath)
	return cfg, nil
}

// SetBaseDir sets the directory relative extension paths are resolved against.
func (c *Config) SetBaseDir(dir string) {
	c.baseDir = dir
}

// Validate validates the configuration and fills in defaults
func (c *Config) Validate() error {
	c.Browser = strings.ToLower(strings.TrimSpace(c.Browser))
	if c.Browser != webext.BrowserChromium && c.Browser != webext.BrowserFirefox {
		return fmt.Errorf("invalid browser: %q (must be 'chromium' or 'firefox')", c.Browser)
	}

	if len(c.Extensions) == 0 {
		return fmt.Errorf("at least one extension is required")
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}

	if c.DebuggerPort < 0 || c.DebuggerPort > 65535 {
		return fmt.Errorf("invalid debugger_port: %d", c.DebuggerPort)
	}

	if len(c.Expect) > 0 && c.URL == "" {
		return fmt.Errorf("expect requires a url to navigate to")
	}
	for i, e := range c.Expect {
		if strings.TrimSpace(e.Selector) == "" {
			return fmt.Errorf("expect[%d]: selector is required", i)
		}
	}

	if c.Snapshot.MaxLength <= 0 {
		c.Snapshot.MaxLength = DefaultConfig().Snapshot.MaxLength
	}

	if c.Artifacts.Screenshot && c.Artifacts.OutputDir == "" {
		return fmt.Errorf("artifacts.screenshot requires artifacts.output_dir")
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid logging level: %s (must be 'debug', 'info', 'warn', or 'error')", c.Logging.Level)
	}

	return nil
}

// LogLevel returns the configured logging level
func (c *Config) LogLevel() logging.Level {
	return logging.ParseLevel(c.Logging.Level)
}

// ExtensionPaths expands the configured extension entries into absolute
// directory paths, in configuration order. A pattern must match at least one
// directory.
func (c *Config) ExtensionPaths() ([]string, error) {
	base := c.baseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		base = wd
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve extension base directory: %w", err)
	}

	var paths []string
	seen := make(map[string]bool)
	for _, entry := range c.Extensions {
		if !filepath.IsAbs(entry) {
			entry = filepath.Join(base, entry)
		}
		matches, err := expandExtensionEntry(filepath.Clean(entry))
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	return paths, nil
}

func expandExtensionEntry(entry string) ([]string, error) {
	dir, pattern := filepath.Split(entry)
	if strings.ContainsAny(dir, "*?[{") {
		return nil, fmt.Errorf("invalid extension pattern '%s': only the last path element may contain a pattern", entry)
	}

	if !strings.ContainsAny(pattern, "*?[{") {
		info, err := os.Stat(entry)
		if err != nil {
			return nil, fmt.Errorf("extension directory not found: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("extension path '%s' is not a directory", entry)
		}
		return []string{entry}, nil
	}

	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid extension pattern '%s': %w", entry, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list extension directory: %w", err)
	}

	var matches []string
	for _, e := range entries {
		if e.IsDir() && g.Match(e.Name()) {
			matches = append(matches, filepath.Join(dir, e.Name()))
		}
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("extension pattern '%s' matched no directories", entry)
	}
	return matches, nil
}
