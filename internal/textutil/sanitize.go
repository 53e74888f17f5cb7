package textutil

import "strings"

// Slashes, backslashes, colons, and asterisks become dashes; quote and
// shell-redirect characters vanish entirely.
var unsafeChars = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName strips filesystem-unsafe characters from a filename and
// trims surrounding whitespace.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(unsafeChars.Replace(name))
}

// SanitizePathSegment reduces a string to one dash-joined path segment:
// unsafe characters are sanitized, whitespace runs collapse to a single
// dash, and leading/trailing separator noise is trimmed. Returns "" when
// nothing printable survives.
func SanitizePathSegment(value string) string {
	value = SanitizeFileName(value)
	if value == "" {
		return ""
	}
	value = strings.Join(strings.Fields(value), "-")
	return strings.Trim(value, "-_")
}
