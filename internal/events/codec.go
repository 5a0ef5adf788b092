package events

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/NotThatKindOfDrLiz/knowtation/internal/common"
	"github.com/NotThatKindOfDrLiz/knowtation/internal/cryptox"
	"github.com/NotThatKindOfDrLiz/knowtation/internal/models"
)

// Codec converts citation records to and from the three wire variants.
type Codec struct {
	kinds Kinds
}

func NewCodec(kinds Kinds) *Codec {
	return &Codec{kinds: kinds}
}

// Kinds returns the kind numbers this codec encodes with.
func (c *Codec) Kinds() Kinds { return c.kinds }

// ToPublicEvent maps every non-confidential field of r to a tag entry.
// Notes never appear in the result.
func (c *Codec) ToPublicEvent(r *models.CitationRecord) Event {
	tags := [][]string{{TagTitle, r.Title}}
	for _, a := range r.Authors {
		tags = append(tags, []string{TagAuthor, a})
	}
	if r.Year != 0 {
		tags = append(tags, []string{TagYear, strconv.Itoa(r.Year)})
	}
	if r.Container != "" {
		tags = append(tags, []string{TagJournal, r.Container})
	}
	if r.DOI != "" {
		tags = append(tags, []string{TagDOI, r.DOI})
	}
	if r.URL != "" {
		tags = append(tags, []string{TagURL, r.URL})
	}
	for _, t := range r.Tags {
		tags = append(tags, []string{TagLabel, t})
	}
	tags = append(tags, []string{TagClientRef, r.ID})

	return Event{
		Kind:      c.kinds.PublicReference,
		Tags:      tags,
		CreatedAt: time.Now().Unix(),
	}
}

// payload is the canonical serialized form of a record inside a private
// event. It includes confidential fields; it exists only encrypted.
type payload struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Authors   []string `json:"authors,omitempty"`
	Year      int      `json:"year,omitempty"`
	Container string   `json:"container,omitempty"`
	DOI       string   `json:"doi,omitempty"`
	URL       string   `json:"url,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Notes     string   `json:"notes,omitempty"`
}

// ToPrivateEvent serializes the full record, encrypts it with key, and
// carries the blob as content. Tags stay minimal: only the local reference
// id and a fixed type marker, revealing no title, author or year metadata.
func (c *Codec) ToPrivateEvent(r *models.CitationRecord, key []byte) (Event, error) {
	p := payload{
		ID:        r.ID,
		Title:     r.Title,
		Authors:   r.Authors,
		Year:      r.Year,
		Container: r.Container,
		DOI:       r.DOI,
		URL:       r.URL,
		Tags:      r.Tags,
		Notes:     r.Notes,
	}
	plaintext, err := json.Marshal(p)
	if err != nil {
		return Event{}, fmt.Errorf("serializing record: %w", err)
	}

	blob, err := cryptox.Encrypt(plaintext, key)
	if err != nil {
		return Event{}, fmt.Errorf("encrypting record: %w", err)
	}

	return Event{
		Kind:    c.kinds.PrivateReference,
		Content: blob,
		Tags: [][]string{
			{TagClientRef, r.ID},
			{TagType, PrivateTypeMarker},
		},
		CreatedAt: time.Now().Unix(),
	}, nil
}

// FromPublicEvent reconstructs a record from a public reference event. The
// record id comes from the client-ref-id tag when present, otherwise from
// the transport-assigned event id. Both timestamps take the event's
// timestamp: each publish is a new point-in-time event.
func (c *Codec) FromPublicEvent(ev *Event) *models.CitationRecord {
	r := &models.CitationRecord{
		ID:         ev.TagValue(TagClientRef),
		Title:      ev.TagValue(TagTitle),
		Authors:    ev.TagValues(TagAuthor),
		Container:  ev.TagValue(TagJournal),
		DOI:        ev.TagValue(TagDOI),
		URL:        ev.TagValue(TagURL),
		Tags:       ev.TagValues(TagLabel),
		Visibility: models.VisibilityPublic,
		CreatedAt:  ev.CreatedAt,
		UpdatedAt:  ev.CreatedAt,
	}
	if r.ID == "" {
		r.ID = ev.ID
	}
	if r.Title == "" {
		r.Title = "Untitled Reference"
	}
	if y, err := strconv.Atoi(ev.TagValue(TagYear)); err == nil {
		r.Year = y
	}
	return r
}

// FromPrivateEvent decrypts a private reference event back into a record.
// Visibility is private; timestamps take the event's timestamp.
func (c *Codec) FromPrivateEvent(ev *Event, key []byte) (*models.CitationRecord, error) {
	plaintext, err := cryptox.Decrypt(ev.Content, key)
	if err != nil {
		return nil, fmt.Errorf("decrypting event content: %w", err)
	}

	var p payload
	if err := json.Unmarshal(plaintext, &p); err != nil {
		return nil, fmt.Errorf("decoding decrypted payload: %w", err)
	}

	r := &models.CitationRecord{
		ID:         p.ID,
		Title:      p.Title,
		Authors:    p.Authors,
		Year:       p.Year,
		Container:  p.Container,
		DOI:        p.DOI,
		URL:        p.URL,
		Tags:       p.Tags,
		Notes:      p.Notes,
		Visibility: models.VisibilityPrivate,
		CreatedAt:  ev.CreatedAt,
		UpdatedAt:  ev.CreatedAt,
	}
	if r.ID == "" {
		r.ID = ev.TagValue(TagClientRef)
	}
	return r, nil
}

// ToRetraction builds a retraction of the record's current network
// representation. A record that was never mirrored cannot be retracted.
func (c *Codec) ToRetraction(r *models.CitationRecord, reason string) (Event, error) {
	if r.NetworkRef == nil {
		return Event{}, common.ErrNotPublished
	}
	return Event{
		Kind:      c.kinds.Retraction,
		Content:   reason,
		Tags:      [][]string{{TagEvent, r.NetworkRef.EventID}},
		CreatedAt: time.Now().Unix(),
	}, nil
}
