package prefs

import (
	"slices"

	"github.com/entrhq/webext/pkg/extension"
)

// Warner receives non-fatal problems found while building a patch set.
type Warner interface {
	Warnf(format string, v ...interface{})
}

// BuildPatchSet computes the grants to pre-apply for a set of extensions.
//
// Only Manifest V3 extensions that declare content script match patterns or
// optional permissions need grants. Each match pattern becomes a granted
// origin, <all_urls> among them is also granted as a permission, and optional
// permissions are granted as declared. Extensions without a gecko id cannot be
// addressed in the store and are skipped with a warning.
func BuildPatchSet(exts []*extension.Extension, warn Warner) *Preferences {
	set := NewPreferences()
	for _, ext := range exts {
		m := ext.Manifest
		if m.ManifestVersion != 3 {
			continue
		}

		patterns := m.MatchPatterns()
		if len(patterns) == 0 && len(m.OptionalPermissions) == 0 {
			continue
		}

		if m.GeckoID == "" {
			if warn != nil {
				warn.Warnf("Addon %s does not have browser_specific_settings.gecko.id, its permissions cannot be pre-granted", ext.Dir)
			}
			continue
		}

		set.AddOrigins(m.GeckoID, patterns)
		if slices.Contains(patterns, extension.AllURLs) {
			set.AddPermissions(m.GeckoID, []string{extension.AllURLs})
		}
		set.AddPermissions(m.GeckoID, m.OptionalPermissions)
	}
	return set
}

// Grant writes the grants required by exts into the repository. Nothing is
// written when no extension needs a grant.
func (r *Repository) Grant(exts []*extension.Extension, warn Warner) (*Preferences, error) {
	set := BuildPatchSet(exts, warn)
	if set.Len() == 0 {
		return set, nil
	}
	if err := r.Patch(func(p *Preferences) { p.Merge(set) }); err != nil {
		return nil, err
	}
	return set, nil
}
