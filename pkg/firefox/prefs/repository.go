package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the permission store inside a Firefox profile directory.
const FileName = "extension-preferences.json"

var (
	// ErrRead is returned when an existing store cannot be read or decoded.
	ErrRead = errors.New("failed to read extension preferences")

	// ErrWrite is returned when the patched store cannot be persisted. The
	// store on disk is unchanged when it is returned.
	ErrWrite = errors.New("failed to write extension preferences")
)

// Repository reads and rewrites the permission store of one profile.
// It does not lock the file; only one writer per profile is supported.
type Repository struct {
	path string
}

// NewRepository returns a repository for the profile in profileDir.
func NewRepository(profileDir string) *Repository {
	return &Repository{path: filepath.Join(profileDir, FileName)}
}

// Path returns the file path of the store.
func (r *Repository) Path() string {
	return r.path
}

// Load reads the store. A missing file yields empty preferences.
func (r *Repository) Load() (*Preferences, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewPreferences(), nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}

	var addons map[string]*Permissions
	if err := json.Unmarshal(data, &addons); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRead, r.path, err)
	}

	prefs := NewPreferences()
	for id, perms := range addons {
		if perms == nil {
			continue
		}
		e := prefs.entry(id)
		e.Permissions = union(e.Permissions, perms.Permissions)
		e.Origins = union(e.Origins, perms.Origins)
		e.extra = perms.extra
	}
	return prefs, nil
}

// Patch loads the store, applies fn to it and writes the result back.
//
// The write goes to a temporary file in the profile directory that is renamed
// over the store, so a browser started afterwards sees either the old or the
// new content, never a partial file.
func (r *Repository) Patch(fn func(*Preferences)) error {
	prefs, err := r.Load()
	if err != nil {
		return err
	}

	fn(prefs)

	return r.save(prefs)
}

func (r *Repository) save(prefs *Preferences) error {
	data, err := json.MarshalIndent(prefs.addons, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("%w: failed to create profile directory: %v", ErrWrite, err)
	}

	// Create temp file for atomic write
	file, err := os.CreateTemp(dir, "."+FileName+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file: %v", ErrWrite, err)
	}
	tempPath := file.Name()

	if _, err := file.Write(append(data, '\n')); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("%w: failed to close temp file: %v", ErrWrite, err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, r.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("%w: failed to rename temp file: %v", ErrWrite, err)
	}

	return nil
}
