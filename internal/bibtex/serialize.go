package bibtex

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/NotThatKindOfDrLiz/knowtation/internal/models"
)

// Serialize renders records as BibTeX text. The entry type is derived from
// the container: "inproceedings" when it mentions proceedings, "article"
// when a container is present, "misc" otherwise.
func Serialize(records []*models.CitationRecord) string {
	var b strings.Builder
	for i, r := range records {
		if i > 0 {
			b.WriteString("\n")
		}
		writeEntry(&b, r)
	}
	return b.String()
}

func writeEntry(b *strings.Builder, r *models.CitationRecord) {
	entryType := "misc"
	containerField := "howpublished"
	switch {
	case strings.Contains(strings.ToLower(r.Container), "proceedings"):
		entryType = "inproceedings"
		containerField = "booktitle"
	case r.Container != "":
		entryType = "article"
		containerField = "journal"
	}

	fmt.Fprintf(b, "@%s{%s,\n", entryType, CitationKey(r))
	writeField(b, "title", r.Title)
	if len(r.Authors) > 0 {
		names := make([]string, len(r.Authors))
		for i, a := range r.Authors {
			names[i] = invertAuthor(a)
		}
		writeField(b, "author", strings.Join(names, " and "))
	}
	if r.Year != 0 {
		writeField(b, "year", strconv.Itoa(r.Year))
	}
	if r.Container != "" {
		writeField(b, containerField, r.Container)
	}
	if r.DOI != "" {
		writeField(b, "doi", r.DOI)
	}
	if r.URL != "" {
		writeField(b, "url", r.URL)
	}
	if len(r.Tags) > 0 {
		writeField(b, "keywords", strings.Join(r.Tags, ", "))
	}
	b.WriteString("}\n")
}

func writeField(b *strings.Builder, name, value string) {
	fmt.Fprintf(b, "  %s = {%s},\n", name, escape(value))
}

// invertAuthor converts "First Last" to "Last, First", treating the last
// token as the last name. Single-token names are left unchanged.
func invertAuthor(name string) string {
	parts := strings.Fields(name)
	if len(parts) < 2 {
		return name
	}
	last := parts[len(parts)-1]
	first := strings.Join(parts[:len(parts)-1], " ")
	return last + ", " + first
}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	`{`, `\{`,
	`}`, `\}`,
	`&`, `\&`,
	`%`, `\%`,
	`$`, `\$`,
	`#`, `\#`,
	`_`, `\_`,
	`^`, `\^`,
	`~`, `\~`,
)

func escape(s string) string {
	return escaper.Replace(s)
}
