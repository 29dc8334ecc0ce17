// Package prefs edits the extension permission store of a Firefox profile.
//
// Firefox keeps the origins and optional permissions granted to each addon in
// extension-preferences.json inside the profile directory, keyed by addon id:
//
//	{"addon@example.com": {"permissions": ["tabs"], "origins": ["<all_urls>"]}}
//
// Writing grants there before the browser starts lets a Manifest V3 addon run
// its content scripts without an interactive permission prompt.
package prefs

import (
	"encoding/json"
	"maps"
	"slices"
	"sort"
)

const (
	permissionsKey = "permissions"
	originsKey     = "origins"
)

// Permissions are the grants recorded for one addon.
//
// Other keys Firefox stores next to the grants, such as data_collection,
// are kept as read and written back unchanged.
type Permissions struct {
	Permissions []string `json:"permissions"`
	Origins     []string `json:"origins"`

	extra map[string]json.RawMessage
}

// UnmarshalJSON decodes the grant lists and keeps every other key raw.
func (p *Permissions) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	decoded := Permissions{}
	for key, raw := range fields {
		switch key {
		case permissionsKey:
			if err := json.Unmarshal(raw, &decoded.Permissions); err != nil {
				return err
			}
		case originsKey:
			if err := json.Unmarshal(raw, &decoded.Origins); err != nil {
				return err
			}
		default:
			if decoded.extra == nil {
				decoded.extra = make(map[string]json.RawMessage)
			}
			decoded.extra[key] = raw
		}
	}
	*p = decoded
	return nil
}

// MarshalJSON encodes the grant lists together with the keys kept by
// UnmarshalJSON.
func (p Permissions) MarshalJSON() ([]byte, error) {
	fields := make(map[string]interface{}, len(p.extra)+2)
	for key, raw := range p.extra {
		fields[key] = raw
	}
	fields[permissionsKey] = nonNil(p.Permissions)
	fields[originsKey] = nonNil(p.Origins)
	return json.Marshal(fields)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// Preferences is the in-memory form of extension-preferences.json.
// The zero value is not usable; use NewPreferences.
type Preferences struct {
	addons map[string]*Permissions
}

// NewPreferences returns an empty preference set.
func NewPreferences() *Preferences {
	return &Preferences{addons: make(map[string]*Permissions)}
}

func (p *Preferences) entry(addonID string) *Permissions {
	perms, ok := p.addons[addonID]
	if !ok {
		perms = &Permissions{Permissions: []string{}, Origins: []string{}}
		p.addons[addonID] = perms
	}
	return perms
}

// AddOrigins grants host match patterns to an addon. Patterns already granted
// are left alone.
func (p *Preferences) AddOrigins(addonID string, patterns []string) {
	if len(patterns) == 0 {
		return
	}
	e := p.entry(addonID)
	e.Origins = union(e.Origins, patterns)
}

// AddPermissions grants named permissions to an addon. Permissions already
// granted are left alone.
func (p *Preferences) AddPermissions(addonID string, permissions []string) {
	if len(permissions) == 0 {
		return
	}
	e := p.entry(addonID)
	e.Permissions = union(e.Permissions, permissions)
}

// Merge adds every grant of other into p.
func (p *Preferences) Merge(other *Preferences) {
	for _, id := range other.AddonIDs() {
		perms := other.addons[id]
		p.AddOrigins(id, perms.Origins)
		p.AddPermissions(id, perms.Permissions)
	}
}

// Addon returns a copy of the grants recorded for addonID.
func (p *Preferences) Addon(addonID string) (Permissions, bool) {
	perms, ok := p.addons[addonID]
	if !ok {
		return Permissions{}, false
	}
	return Permissions{
		Permissions: slices.Clone(perms.Permissions),
		Origins:     slices.Clone(perms.Origins),
		extra:       maps.Clone(perms.extra),
	}, true
}

// AddonIDs returns the ids of all addons with recorded grants, sorted.
func (p *Preferences) AddonIDs() []string {
	ids := make([]string, 0, len(p.addons))
	for id := range p.addons {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of addons with recorded grants.
func (p *Preferences) Len() int {
	return len(p.addons)
}

// union appends the values of add missing from base, keeping order.
func union(base, add []string) []string {
	for _, v := range add {
		if !slices.Contains(base, v) {
			base = append(base, v)
		}
	}
	return base
}
