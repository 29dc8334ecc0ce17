package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webext/pkg/extension"
)

type recordingWarner struct {
	messages []string
}

func (w *recordingWarner) Warnf(format string, v ...interface{}) {
	w.messages = append(w.messages, fmt.Sprintf(format, v...))
}

func ext(dir string, m extension.Manifest) *extension.Extension {
	return &extension.Extension{Dir: dir, Manifest: &m}
}

func TestBuildPatchSet(t *testing.T) {
	tests := []struct {
		name     string
		exts     []*extension.Extension
		expected map[string]Permissions
		warnings int
	}{
		{
			name: "manifest v2 is skipped",
			exts: []*extension.Extension{ext("/v2", extension.Manifest{
				ManifestVersion: 2,
				ContentScripts:  []extension.ContentScript{{Matches: []string{"<all_urls>"}}},
				GeckoID:         "v2@example.com",
			})},
			expected: map[string]Permissions{},
		},
		{
			name: "manifest v3 without grants is skipped",
			exts: []*extension.Extension{ext("/bare", extension.Manifest{
				ManifestVersion: 3,
				GeckoID:         "bare@example.com",
			})},
			expected: map[string]Permissions{},
		},
		{
			name: "content scripts without matches are skipped",
			exts: []*extension.Extension{ext("/empty", extension.Manifest{
				ManifestVersion: 3,
				ContentScripts:  []extension.ContentScript{{}},
				GeckoID:         "empty@example.com",
			})},
			expected: map[string]Permissions{},
		},
		{
			name: "all_urls grants origin and permission",
			exts: []*extension.Extension{ext("/all", extension.Manifest{
				ManifestVersion: 3,
				ContentScripts:  []extension.ContentScript{{Matches: []string{extension.AllURLs}}},
				GeckoID:         "all@example.com",
			})},
			expected: map[string]Permissions{
				"all@example.com": {Permissions: []string{extension.AllURLs}, Origins: []string{extension.AllURLs}},
			},
		},
		{
			name: "matches across scripts and optional permissions",
			exts: []*extension.Extension{ext("/multi", extension.Manifest{
				ManifestVersion: 3,
				ContentScripts: []extension.ContentScript{
					{Matches: []string{"https://a.example/*"}},
					{Matches: []string{"https://b.example/*", "https://a.example/*"}},
				},
				OptionalPermissions: []string{"tabs", "storage"},
				GeckoID:             "multi@example.com",
			})},
			expected: map[string]Permissions{
				"multi@example.com": {
					Permissions: []string{"tabs", "storage"},
					Origins:     []string{"https://a.example/*", "https://b.example/*"},
				},
			},
		},
		{
			name: "optional permissions only",
			exts: []*extension.Extension{ext("/opt", extension.Manifest{
				ManifestVersion:     3,
				OptionalPermissions: []string{"tabs"},
				GeckoID:             "opt@example.com",
			})},
			expected: map[string]Permissions{
				"opt@example.com": {Permissions: []string{"tabs"}, Origins: []string{}},
			},
		},
		{
			name: "missing gecko id warns and skips",
			exts: []*extension.Extension{
				ext("/anon", extension.Manifest{
					ManifestVersion: 3,
					ContentScripts:  []extension.ContentScript{{Matches: []string{extension.AllURLs}}},
				}),
				ext("/named", extension.Manifest{
					ManifestVersion:     3,
					OptionalPermissions: []string{"tabs"},
					GeckoID:             "named@example.com",
				}),
			},
			expected: map[string]Permissions{
				"named@example.com": {Permissions: []string{"tabs"}, Origins: []string{}},
			},
			warnings: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warner := &recordingWarner{}
			set := BuildPatchSet(tt.exts, warner)

			got := map[string]Permissions{}
			for _, id := range set.AddonIDs() {
				got[id], _ = set.Addon(id)
			}
			assert.Equal(t, tt.expected, got)
			assert.Len(t, warner.messages, tt.warnings)
		})
	}
}

func TestBuildPatchSet_WarningNamesAddon(t *testing.T) {
	warner := &recordingWarner{}
	BuildPatchSet([]*extension.Extension{ext("/path/to/anon", extension.Manifest{
		ManifestVersion:     3,
		OptionalPermissions: []string{"tabs"},
	})}, warner)

	require.Len(t, warner.messages, 1)
	assert.Contains(t, warner.messages[0], "/path/to/anon")
	assert.Contains(t, warner.messages[0], "gecko.id")
}

func TestRepository_Grant(t *testing.T) {
	t.Run("no qualifying extension writes nothing", func(t *testing.T) {
		dir := t.TempDir()
		repo := NewRepository(dir)

		set, err := repo.Grant([]*extension.Extension{ext("/bare", extension.Manifest{
			ManifestVersion: 3,
			GeckoID:         "bare@example.com",
		})}, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, set.Len())

		_, err = os.Stat(filepath.Join(dir, FileName))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("grants are persisted and idempotent", func(t *testing.T) {
		repo := NewRepository(t.TempDir())
		exts := []*extension.Extension{ext("/all", extension.Manifest{
			ManifestVersion: 3,
			ContentScripts:  []extension.ContentScript{{Matches: []string{extension.AllURLs}}},
			GeckoID:         "all@example.com",
		})}

		_, err := repo.Grant(exts, nil)
		require.NoError(t, err)
		_, err = repo.Grant(exts, nil)
		require.NoError(t, err)

		store := readStore(t, repo.Path())
		assert.Equal(t, Permissions{
			Permissions: []string{extension.AllURLs},
			Origins:     []string{extension.AllURLs},
		}, store["all@example.com"])
	})
}
