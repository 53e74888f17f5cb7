package organizer

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	xlanguage "golang.org/x/text/language"

	"spool/internal/language"
	"spool/internal/queue"
	"spool/internal/textutil"
)

var titleCaser = cases.Title(xlanguage.Und, cases.NoLower)

// libraryTarget computes the final library path for an episode:
// <library>/<Series>/Season NN/<Series - SxxEyy[ - Title]><ext>.
func libraryTarget(libraryDir string, item *queue.Item, ext string) string {
	series := textutil.SanitizeFileName(item.Series)
	if series == "" {
		series = "Unknown Series"
	}
	name := series + " - " + item.EpisodeCode()
	if title := episodeTitle(item.Title); title != "" {
		name += " - " + title
	}
	if tag := languageTag(item); tag != "" {
		name += " [" + tag + "]"
	}
	season := fmt.Sprintf("Season %02d", item.Season)
	return filepath.Join(libraryDir, series, season, name+ext)
}

var dubTags = map[string]string{
	"de": "GerDub",
	"en": "EngDub",
	"ja": "JapDub",
	"fr": "FrDub",
	"es": "EsDub",
	"it": "ItDub",
	"pt": "PtDub",
	"ru": "RuDub",
}

var subTags = map[string]string{
	"de": "GerSub",
	"en": "EngSub",
}

// languageTag derives the bracket tag for a filename from the verified
// language evidence on the item. A dubbed track always wins; original audio
// over subtitles is marked OmU; subtitle-only evidence gets a sub tag.
func languageTag(item *queue.Item) string {
	if lang := tagLang(item.DubLang); lang != "" {
		return dubTag(lang)
	}
	audio := tagLang(item.AudioLang)
	var subs []string
	for _, raw := range strings.Split(item.SubtitleLangs, ",") {
		if lang := tagLang(raw); lang != "" {
			subs = append(subs, lang)
		}
	}
	if len(subs) > 0 {
		if audio != "" && !slices.Contains(subs, audio) {
			return "OmU"
		}
		if audio != "" {
			// Audio matches a subtitle language, so it is effectively
			// a dub of the target.
			return dubTag(audio)
		}
		if tag, ok := subTags[subs[0]]; ok {
			return tag
		}
		return "OmU"
	}
	if audio != "" {
		return dubTag(audio)
	}
	return ""
}

func dubTag(lang string) string {
	if tag, ok := dubTags[lang]; ok {
		return tag
	}
	return "Dub:" + strings.ToUpper(lang)
}

// tagLang collapses a stored language value ("ger", "de-AT") to the bare
// two-letter code the tag tables key on.
func tagLang(raw string) string {
	return language.Base(language.ToISO2(strings.TrimSpace(raw)))
}

// episodeTitle cleans a seed title for use in a filename. Slug-style titles
// ("the-one-with-the-plan") are unslugged and title-cased; already-readable
// titles keep their casing.
func episodeTitle(raw string) string {
	title := textutil.SanitizeFileName(raw)
	if title == "" {
		return ""
	}
	if !strings.Contains(title, " ") && strings.Contains(title, "-") {
		title = strings.Join(strings.FieldsFunc(title, func(r rune) bool {
			return r == '-' || r == '_'
		}), " ")
		title = titleCaser.String(strings.ToLower(title))
	}
	return strings.TrimSpace(title)
}

// withCollisionSuffix returns target, or the first "name (n).ext" variant
// that does not collide with an existing file.
func withCollisionSuffix(target string, exists func(string) bool) string {
	if !exists(target) {
		return target
	}
	ext := filepath.Ext(target)
	base := strings.TrimSuffix(target, ext)
	for counter := 1; ; counter++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, counter, ext)
		if !exists(candidate) {
			return candidate
		}
	}
}
