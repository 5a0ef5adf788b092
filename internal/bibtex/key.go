package bibtex

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/NotThatKindOfDrLiz/knowtation/internal/models"
)

// titleStopWords are skipped when picking the title word for a citation key.
var titleStopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "on": {}, "in": {},
	"at": {}, "to": {}, "for": {}, "of": {},
}

// CitationKey derives a deterministic key of the form
// lastname + year + first-significant-title-word, lower-cased with all
// non-alphanumeric characters stripped.
func CitationKey(r *models.CitationRecord) string {
	author := "Unknown"
	if len(r.Authors) > 0 {
		author = r.Authors[0]
	}

	year := "nd"
	if r.Year != 0 {
		year = strconv.Itoa(r.Year)
	}

	return sanitizeKey(lastNameOf(author) + year + significantTitleWord(r.Title))
}

// lastNameOf picks the last name out of a display name: the part before a
// comma if present, otherwise the final whitespace-separated token.
func lastNameOf(name string) string {
	if last, _, found := strings.Cut(name, ","); found {
		return strings.TrimSpace(last)
	}
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return name
	}
	return parts[len(parts)-1]
}

func significantTitleWord(title string) string {
	words := strings.Fields(title)
	for _, w := range words {
		if _, stop := titleStopWords[strings.ToLower(sanitizeKey(w))]; !stop {
			return w
		}
	}
	if len(words) > 0 {
		return words[0]
	}
	return "untitled"
}

func sanitizeKey(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
