package language

import (
	"regexp"
	"sort"
	"strings"
)

// Detection is the outcome of classifying one free-text label. Empty fields
// mean the label carried no evidence; codes are lowercase ISO 639-1, with
// regional refinements written as "de-at".
type Detection struct {
	Audio string
	Dub   string
	Subs  []string
}

// Empty reports whether the detection carries no evidence at all.
func (d Detection) Empty() bool {
	return d.Audio == "" && d.Dub == "" && len(d.Subs) == 0
}

// Hint maps a topical context pattern to the original audio language it
// implies when a dub is detected without any base audio evidence.
type Hint struct {
	Pattern *regexp.Regexp
	Lang    string
}

// Options tunes the classifier edge rules.
type Options struct {
	// PrimaryTarget is the subtitle language assumed when an
	// original-with-subtitles marker appears without naming one.
	PrimaryTarget string
	// AssumeOriginal is the audio language assumed for
	// original-with-subtitles releases whose subtitle language was detected
	// as a dub token.
	AssumeOriginal string
	// OriginalHints infer the original audio language from topical keywords
	// for dub-only labels. An empty list disables the inference.
	OriginalHints []Hint
}

// DefaultOptions returns the classifier tuning for a German-dub pipeline:
// German subtitles assumed for bare OmU markers, Japanese assumed as the
// original of a dubbed release, anime context implies a Japanese original
// and western cartoon context an English one.
func DefaultOptions() Options {
	return Options{
		PrimaryTarget:  "de",
		AssumeOriginal: "ja",
		OriginalHints: []Hint{
			{Pattern: regexp.MustCompile(`(?i)\b(?:animes?|manga)\b`), Lang: "ja"},
			{Pattern: regexp.MustCompile(`(?i)\b(?:cartoons?|western animation)\b`), Lang: "en"},
		},
	}
}

// CompileHints builds classifier hints from a keyword-to-language table.
// Keywords match case-insensitively on word boundaries; entries with an
// unrecognized language code are dropped. The result is ordered by keyword
// so classification stays deterministic across runs.
func CompileHints(keywords map[string]string) []Hint {
	if len(keywords) == 0 {
		return nil
	}
	keys := make([]string, 0, len(keywords))
	for kw := range keywords {
		if strings.TrimSpace(kw) != "" {
			keys = append(keys, kw)
		}
	}
	sort.Strings(keys)
	hints := make([]Hint, 0, len(keys))
	for _, kw := range keys {
		lang := ToISO2(keywords[kw])
		if lang == "" {
			continue
		}
		pattern := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(strings.TrimSpace(kw)) + `\b`)
		hints = append(hints, Hint{Pattern: pattern, Lang: lang})
	}
	return hints
}

type family struct {
	code     string
	patterns []*regexp.Regexp
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		out = append(out, regexp.MustCompile(`(?i)`+expr))
	}
	return out
}

// Family order is preference order when a label names several languages.
// The pattern sets are disjoint from quality tokens ("1080p", "hd", "4k");
// every token is word-bounded so resolution strings never read as languages.
var baseFamilies = []family{
	{"de", compile(`\bdeutsch(?:e[nrs]?)?\b`, `\bgerman\b`, `\bger\b`, `\bdeu\b`, `\bde\b`, `\bdt\b`, `🇩🇪`)},
	{"en", compile(`\benglish\b`, `\benglisch\w*`, `\beng\b`, `\ben\b`, `🇬🇧`, `🇺🇸`)},
	{"ja", compile(`\bjapanese\b`, `\bjapanisch\w*`, `\bjap\b`, `\bjpn\b`, `\bjp\b`, `\bja\b`, `🇯🇵`)},
	{"fr", compile(`\bfrench\b`, `\bfranz(?:ö|oe)sisch\w*`, `\bfra\b`, `\bfre\b`, `\bfr\b`, `🇫🇷`)},
	{"es", compile(`\bspanish\b`, `\bspanisch\w*`, `\bspa\b`, `\bes\b`, `🇪🇸`)},
	{"it", compile(`\bitalian\b`, `\bitalienisch\w*`, `\bita\b`, `\bit\b`, `🇮🇹`)},
	{"pt", compile(`\bportuguese\b`, `\bportugiesisch\w*`, `\bpor\b`, `\bpt\b`, `🇵🇹`)},
	{"ru", compile(`\brussian\b`, `\brussisch\w*`, `\brus\b`, `\bru\b`, `🇷🇺`)},
}

// Dub families bind a language to an explicit dub marker. Matched spans are
// cut from the label before the base scan so "Japanese German Dub" reads as
// audio ja, dub de rather than audio de.
var dubFamilies = []family{
	{"de", compile(
		`\b(?:ger(?:man)?|deutsch(?:e[nrs]?)?)[\s\-.,_]*dub(?:bed)?\b`,
		`\bdub(?:bed)?\b[\s:.,_\-]*(?:de|ger|german|deutsch(?:e[nrs]?)?)\b`,
		`\b(?:deutsch(?:e[nrs]?)?[\s\-.,_]*)?synchro(?:nisation|nfassung)?\b`,
	)},
	{"en", compile(
		`\b(?:eng(?:lish)?|englisch\w*)[\s\-.,_]*dub(?:bed)?\b`,
		`\bdub(?:bed)?\b[\s:.,_\-]*(?:en|eng|english)\b`,
	)},
	{"ja", compile(
		`\b(?:jap(?:anese)?|japanisch\w*|jpn)[\s\-.,_]*dub(?:bed)?\b`,
		`\bdub(?:bed)?\b[\s:.,_\-]*(?:ja|jp|jpn|jap|japanese)\b`,
	)},
	{"fr", compile(`\b(?:fr(?:ench)?|franz(?:ö|oe)sisch\w*)[\s\-.,_]*dub(?:bed)?\b`)},
	{"es", compile(`\b(?:spanish|spanisch\w*|spa)[\s\-.,_]*dub(?:bed)?\b`)},
	{"it", compile(`\b(?:italian|italienisch\w*|ita)[\s\-.,_]*dub(?:bed)?\b`)},
	{"pt", compile(`\b(?:portuguese|portugiesisch\w*|por)[\s\-.,_]*dub(?:bed)?\b`)},
	{"ru", compile(`\b(?:russian|russisch\w*|rus)[\s\-.,_]*dub(?:bed)?\b`)},
}

var subFamilies = []family{
	{"de", compile(
		`\b(?:ger(?:man)?|deutsch(?:e[nrs]?)?)[\s\-.,_]*sub(?:s|bed|titles?)?\b`,
		`\bsub(?:s|titles?)?\b[\s:.,_\-]*(?:de|ger|german)\b`,
		`\bdeutsch(?:e[nrs]?)?[\s\-.,_]*untertitel\w*`,
	)},
	{"en", compile(
		`\b(?:eng(?:lish)?|englisch\w*)[\s\-.,_]*sub(?:s|bed|titles?)?\b`,
		`\bsub(?:s|titles?)?\b[\s:.,_\-]*(?:en|eng|english)\b`,
	)},
	{"ja", compile(`\b(?:jap(?:anese)?|japanisch\w*)[\s\-.,_]*sub(?:s|bed|titles?)?\b`)},
}

var omuPatterns = compile(
	`\bome?u\b`,
	`\bo\.m\.u\.?`,
	`\boriginal(?:fassung|version)?\s*(?:mit|with)\s*(?:deutschen?\s+|german\s+)?(?:untertitel\w*|sub(?:s|titles?)?)\b`,
	`\bov\s*(?:mit|with)\s*(?:deutschen?\s+)?(?:untertitel\w*|sub(?:s|titles?)?)\b`,
)

var regionalMarkers = []struct {
	pattern *regexp.Regexp
	region  string
}{
	{regexp.MustCompile(`(?i)\b(?:österreich\w*|oesterreich\w*|austrian?)\b`), "at"},
	{regexp.MustCompile(`(?i)\b(?:schweiz\w*|swiss|schwiizerd(?:ü|ue)tsch)\b`), "ch"},
}

// GuessAudioAndDub classifies a label with the default tuning and returns
// the inferred audio and dub languages, empty when unknown.
func GuessAudioAndDub(label string) (audio, dub string) {
	det := Classify(label, DefaultOptions())
	return det.Audio, det.Dub
}

// Classify infers audio, dub, and subtitle languages from one free-text label.
// The label is scanned for dub and subtitle markers first; their spans are
// removed before base-language matching so a language bound to a marker is
// not also read as the audio language.
func Classify(label string, opts Options) Detection {
	det := Detection{}
	text := strings.TrimSpace(label)
	if text == "" {
		return det
	}

	omu := false
	for _, re := range omuPatterns {
		if loc := re.FindStringIndex(text); loc != nil {
			omu = true
			text = cutSpan(text, loc)
		}
	}

	for _, fam := range dubFamilies {
		for _, re := range fam.patterns {
			if loc := re.FindStringIndex(text); loc != nil {
				if det.Dub == "" {
					det.Dub = fam.code
				}
				text = cutSpan(text, loc)
			}
		}
	}

	for _, fam := range subFamilies {
		for _, re := range fam.patterns {
			if loc := re.FindStringIndex(text); loc != nil {
				det.Subs = appendUnique(det.Subs, fam.code)
				text = cutSpan(text, loc)
			}
		}
	}

	for _, fam := range baseFamilies {
		if matchAny(text, fam.patterns) {
			det.Audio = fam.code
			break
		}
	}

	if omu {
		if det.Dub != "" {
			det.Subs = appendUnique(det.Subs, det.Dub)
			if det.Audio == "" && opts.AssumeOriginal != "" {
				det.Audio = opts.AssumeOriginal
			}
			det.Dub = ""
		} else if opts.PrimaryTarget != "" {
			det.Subs = appendUnique(det.Subs, opts.PrimaryTarget)
		}
	}

	if det.Dub != "" && det.Audio == "" {
		for _, hint := range opts.OriginalHints {
			if hint.Pattern.MatchString(label) {
				det.Audio = hint.Lang
				break
			}
		}
	}

	if region := regionFor(label); region != "" {
		switch {
		case det.Audio == "de":
			det.Audio = "de-" + region
		case det.Dub == "de":
			det.Dub = "de-" + region
		}
	}

	return det
}

func regionFor(label string) string {
	for _, marker := range regionalMarkers {
		if marker.pattern.MatchString(label) {
			return marker.region
		}
	}
	return ""
}

func matchAny(text string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func cutSpan(text string, loc []int) string {
	return text[:loc[0]] + " " + text[loc[1]:]
}

func appendUnique(list []string, code string) []string {
	for _, have := range list {
		if have == code {
			return list
		}
	}
	return append(list, code)
}
