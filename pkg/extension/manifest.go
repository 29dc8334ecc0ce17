// Package extension reads unpacked WebExtension directories.
//
// Manifests are foreign input: every field this module looks at is optional,
// and a field of the wrong JSON type is treated as absent instead of failing
// the whole manifest. Only a file that cannot be read or is not JSON at all is
// reported as a ManifestError.
package extension

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ManifestFile is the manifest name inside an unpacked extension directory.
const ManifestFile = "manifest.json"

// AllURLs is the match pattern and permission granting access to every origin.
const AllURLs = "<all_urls>"

// ErrManifest is wrapped by every ManifestError.
var ErrManifest = errors.New("invalid extension manifest")

// ManifestError reports an unreadable or malformed manifest.json.
type ManifestError struct {
	Path string
	Err  error
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("manifest %s: %v", e.Path, e.Err)
}

func (e *ManifestError) Unwrap() []error {
	return []error{ErrManifest, e.Err}
}

// Manifest holds the manifest.json fields used for launching and permission grants.
type Manifest struct {
	ManifestVersion     int
	Name                string
	Version             string
	ContentScripts      []ContentScript
	OptionalPermissions []string

	// GeckoID is browser_specific_settings.gecko.id, falling back to the
	// older applications.gecko.id key.
	GeckoID string
}

// ContentScript is one entry of content_scripts.
type ContentScript struct {
	Matches []string
}

// MatchPatterns returns the match patterns of all content scripts in
// declaration order, without duplicates.
func (m *Manifest) MatchPatterns() []string {
	var patterns []string
	seen := make(map[string]bool)
	for _, cs := range m.ContentScripts {
		for _, p := range cs.Matches {
			if seen[p] {
				continue
			}
			seen[p] = true
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// ParseManifest decodes manifest.json content.
func ParseManifest(data []byte) (*Manifest, error) {
	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	m := &Manifest{
		ManifestVersion:     int(raw.ManifestVersion),
		Name:                string(raw.Name),
		Version:             string(raw.Version),
		ContentScripts:      raw.ContentScripts,
		OptionalPermissions: raw.OptionalPermissions,
		GeckoID:             raw.BrowserSpecificSettings.geckoID,
	}
	if m.GeckoID == "" {
		m.GeckoID = raw.Applications.geckoID
	}
	return m, nil
}

// Extension is an unpacked extension directory and its manifest.
type Extension struct {
	// Dir is the absolute extension directory.
	Dir      string
	Manifest *Manifest
}

// Load reads the manifest of the extension in dir. The directory is made
// absolute so it can be handed to a browser started in another working directory.
func Load(dir string) (*Extension, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve extension path %s: %w", dir, err)
	}

	path := filepath.Join(abs, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ManifestError{Path: path, Err: err}
	}

	manifest, err := ParseManifest(data)
	if err != nil {
		return nil, &ManifestError{Path: path, Err: err}
	}

	return &Extension{Dir: abs, Manifest: manifest}, nil
}

// LoadAll loads every directory in order and stops at the first failure.
func LoadAll(dirs []string) ([]*Extension, error) {
	exts := make([]*Extension, 0, len(dirs))
	for _, dir := range dirs {
		ext, err := Load(dir)
		if err != nil {
			return nil, err
		}
		exts = append(exts, ext)
	}
	return exts, nil
}
