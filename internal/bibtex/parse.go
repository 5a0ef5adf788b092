package bibtex

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/NotThatKindOfDrLiz/knowtation/internal/models"
)

// Parse scans text for @type{key, ...} blocks and converts each well-formed
// block into a citation record. Malformed blocks are skipped without error.
//
// Imported records are always private regardless of any source hint, and
// carry no tags (BibTeX has no native tag field).
func Parse(text string) []*models.CitationRecord {
	var records []*models.CitationRecord
	for _, e := range scanEntries(text) {
		records = append(records, recordFromEntry(e))
	}
	return records
}

func recordFromEntry(e Entry) *models.CitationRecord {
	title := e.Fields["title"]
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle
	}

	r := models.New(title)

	if raw, ok := e.Fields["author"]; ok {
		for _, chunk := range strings.Split(raw, " and ") {
			name := normalizeAuthor(strings.TrimSpace(chunk))
			if name != "" {
				r.Authors = append(r.Authors, name)
			}
		}
	}
	if raw, ok := e.Fields["year"]; ok {
		if y, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			r.Year = y
		}
	}
	if v, ok := e.Fields["journal"]; ok {
		r.Container = v
	} else if v, ok := e.Fields["booktitle"]; ok {
		r.Container = v
	}
	r.DOI = e.Fields["doi"]
	r.URL = e.Fields["url"]

	return r
}

// normalizeAuthor reorders "Last, First" to "First Last"; anything else is
// left as-is.
func normalizeAuthor(name string) string {
	last, first, found := strings.Cut(name, ",")
	if !found {
		return name
	}
	first = strings.TrimSpace(first)
	last = strings.TrimSpace(last)
	if first == "" {
		return last
	}
	return first + " " + last
}

// scanEntries walks the text looking for @type{...} blocks with balanced
// braces. Blocks that never close, or carry no citation key, are dropped.
func scanEntries(text string) []Entry {
	var entries []Entry
	for i := 0; i < len(text); i++ {
		if text[i] != '@' {
			continue
		}
		entry, next, ok := scanEntry(text, i)
		if !ok {
			continue
		}
		entries = append(entries, entry)
		i = next - 1
	}
	return entries
}

func scanEntry(text string, at int) (Entry, int, bool) {
	i := at + 1
	start := i
	for i < len(text) && (unicode.IsLetter(rune(text[i])) || unicode.IsDigit(rune(text[i]))) {
		i++
	}
	entryType := strings.ToLower(text[start:i])
	if entryType == "" {
		return Entry{}, 0, false
	}

	for i < len(text) && unicode.IsSpace(rune(text[i])) {
		i++
	}
	if i >= len(text) || text[i] != '{' {
		return Entry{}, 0, false
	}

	body, end, ok := balancedBody(text, i)
	if !ok {
		return Entry{}, 0, false
	}

	key, rest, found := strings.Cut(body, ",")
	if !found {
		return Entry{}, 0, false
	}

	e := Entry{
		Type:   entryType,
		Key:    strings.TrimSpace(key),
		Fields: scanFields(rest),
	}
	return e, end, true
}

// balancedBody returns the contents between the brace at open and its match.
func balancedBody(text string, open int) (string, int, bool) {
	depth := 0
	for i := open; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[open+1 : i], i + 1, true
			}
		}
	}
	return "", 0, false
}

// scanFields extracts field = {value} pairs. Field names are lower-cased;
// values keep their raw text. Pairs that do not match are ignored.
func scanFields(body string) map[string]string {
	fields := make(map[string]string)
	i := 0
	for i < len(body) {
		for i < len(body) && !unicode.IsLetter(rune(body[i])) {
			i++
		}
		start := i
		for i < len(body) && unicode.IsLetter(rune(body[i])) {
			i++
		}
		name := strings.ToLower(body[start:i])
		if name == "" {
			break
		}

		for i < len(body) && unicode.IsSpace(rune(body[i])) {
			i++
		}
		if i >= len(body) || body[i] != '=' {
			continue
		}
		i++
		for i < len(body) && unicode.IsSpace(rune(body[i])) {
			i++
		}
		if i >= len(body) || body[i] != '{' {
			continue
		}

		value, end, ok := balancedBody(body, i)
		if !ok {
			break
		}
		fields[name] = strings.TrimSpace(value)
		i = end
	}
	return fields
}
