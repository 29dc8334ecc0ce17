package extension

import (
	"bytes"
	"encoding/json"
)

// rawManifest mirrors manifest.json with decoders that never fail on a
// mistyped field.
type rawManifest struct {
	ManifestVersion         looseInt      `json:"manifest_version"`
	Name                    looseString   `json:"name"`
	Version                 looseString   `json:"version"`
	ContentScripts          looseScripts  `json:"content_scripts"`
	OptionalPermissions     looseStrings  `json:"optional_permissions"`
	BrowserSpecificSettings geckoSettings `json:"browser_specific_settings"`
	Applications            geckoSettings `json:"applications"`
}

type looseInt int

func (v *looseInt) UnmarshalJSON(b []byte) error {
	var f float64
	if json.Unmarshal(b, &f) == nil && f == float64(int(f)) {
		*v = looseInt(f)
	}
	return nil
}

type looseString string

func (v *looseString) UnmarshalJSON(b []byte) error {
	var s string
	if json.Unmarshal(b, &s) == nil {
		*v = looseString(s)
	}
	return nil
}

// looseStrings keeps the string elements of an array and drops the rest.
type looseStrings []string

func (v *looseStrings) UnmarshalJSON(b []byte) error {
	var items []json.RawMessage
	if isNull(b) || json.Unmarshal(b, &items) != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if isNull(item) {
			continue
		}
		if json.Unmarshal(item, &s) == nil {
			out = append(out, s)
		}
	}
	*v = out
	return nil
}

// looseScripts keeps the object elements of content_scripts.
type looseScripts []ContentScript

func (v *looseScripts) UnmarshalJSON(b []byte) error {
	var items []json.RawMessage
	if isNull(b) || json.Unmarshal(b, &items) != nil {
		return nil
	}
	out := make([]ContentScript, 0, len(items))
	for _, item := range items {
		var cs struct {
			Matches looseStrings `json:"matches"`
		}
		if isNull(item) || json.Unmarshal(item, &cs) != nil {
			continue
		}
		out = append(out, ContentScript{Matches: cs.Matches})
	}
	*v = out
	return nil
}

type geckoSettings struct {
	geckoID string
}

func (g *geckoSettings) UnmarshalJSON(b []byte) error {
	var outer struct {
		Gecko json.RawMessage `json:"gecko"`
	}
	if json.Unmarshal(b, &outer) != nil || len(outer.Gecko) == 0 {
		return nil
	}
	var gecko struct {
		ID looseString `json:"id"`
	}
	if json.Unmarshal(outer.Gecko, &gecko) != nil {
		return nil
	}
	g.geckoID = string(gecko.ID)
	return nil
}

func isNull(b []byte) bool {
	return bytes.Equal(bytes.TrimSpace(b), []byte("null"))
}
