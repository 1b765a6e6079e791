package project

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxFolderNameLength = 40

// fallbackFolderName is used when a label has no usable characters.
const fallbackFolderName = "branch"

// FolderName derives a filesystem-safe folder name from a branch label:
// diacritics are folded to ASCII, everything is lowercased and runs of other
// characters collapse into single hyphens.
//
//	FolderName("Alt Idea")      → "alt-idea"
//	FolderName("Café  Version") → "cafe-version"
//	FolderName("!!!")           → "branch"
func FolderName(label string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		label,
	)
	if err != nil {
		folded = label
	}

	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case r == '_' || r == '.':
			if !lastHyphen {
				b.WriteRune(r)
				lastHyphen = false
			}
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	name := strings.Trim(b.String(), "-_.")
	if len(name) > maxFolderNameLength {
		name = strings.TrimRight(name[:maxFolderNameLength], "-_.")
	}
	if name == "" || name == VersionsDir || IsProtectedDir(name) {
		return fallbackFolderName
	}
	return name
}

// UniqueFolderName returns base, or base suffixed with -2, -3, … until the
// result is not reported as taken.
func UniqueFolderName(base string, taken func(name string) bool) string {
	if !taken(base) {
		return base
	}
	for i := 2; ; i++ {
		candidate := base + "-" + strconv.Itoa(i)
		if !taken(candidate) {
			return candidate
		}
	}
}
