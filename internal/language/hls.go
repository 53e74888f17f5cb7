package language

import (
	"strings"
)

// MediaRendition is one #EXT-X-MEDIA alternate rendition from an HLS master
// playlist.
type MediaRendition struct {
	Type       string
	GroupID    string
	Name       string
	Language   string // raw LANGUAGE attribute, e.g. "deu"
	URI        string
	Default    bool
	Autoselect bool
}

// ParseHLSMedia scans a master playlist for #EXT-X-MEDIA renditions.
func ParseHLSMedia(playlist string) []MediaRendition {
	var renditions []MediaRendition
	for _, line := range strings.Split(playlist, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "#EXT-X-MEDIA:") {
			continue
		}
		attrs := parseAttributeList(strings.TrimPrefix(line, "#EXT-X-MEDIA:"))
		renditions = append(renditions, MediaRendition{
			Type:       attrs["TYPE"],
			GroupID:    attrs["GROUP-ID"],
			Name:       attrs["NAME"],
			Language:   attrs["LANGUAGE"],
			URI:        attrs["URI"],
			Default:    attrs["DEFAULT"] == "YES",
			Autoselect: attrs["AUTOSELECT"] == "YES",
		})
	}
	return renditions
}

// AudioRenditions returns the TYPE=AUDIO renditions of a master playlist.
func AudioRenditions(playlist string) []MediaRendition {
	var audio []MediaRendition
	for _, r := range ParseHLSMedia(playlist) {
		if strings.EqualFold(r.Type, "AUDIO") {
			audio = append(audio, r)
		}
	}
	return audio
}

// FromHLSMedia classifies one rendition. The playlist's own LANGUAGE
// attribute, normalized to ISO 639-1, is trusted as the audio language and
// wins over name heuristics. HLS cannot express whether a rendition is a dub
// or the original, so a dub is only reported when the rendition name carries
// explicit dub evidence.
func FromHLSMedia(r MediaRendition, opts Options) Detection {
	det := Classify(r.Name, opts)
	if lang := ToISO2(r.Language); lang != "" {
		det.Audio = lang
	}
	return det
}

// parseAttributeList splits an HLS attribute list ("KEY=VALUE,KEY="V,V"")
// respecting quoted values.
func parseAttributeList(s string) map[string]string {
	attrs := make(map[string]string)
	for len(s) > 0 {
		eq := strings.Index(s, "=")
		if eq < 0 {
			break
		}
		key := strings.ToUpper(strings.TrimSpace(s[:eq]))
		s = s[eq+1:]
		var value string
		if strings.HasPrefix(s, `"`) {
			end := strings.Index(s[1:], `"`)
			if end < 0 {
				value = s[1:]
				s = ""
			} else {
				value = s[1 : 1+end]
				s = strings.TrimPrefix(s[end+2:], ",")
			}
		} else {
			if comma := strings.Index(s, ","); comma >= 0 {
				value = s[:comma]
				s = s[comma+1:]
			} else {
				value = s
				s = ""
			}
		}
		if key != "" {
			attrs[key] = value
		}
	}
	return attrs
}
