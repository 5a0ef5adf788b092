// Package events maps citation records to and from the network wire
// encodings: a plaintext publicly-queryable event, an encrypted
// metadata-minimized event, and a retraction.
package events

// Kinds holds the wire kind numbers for the three event variants. They are
// passed in at construction time rather than read from process globals.
type Kinds struct {
	PublicReference  int
	PrivateReference int
	Retraction       int
}

// DefaultKinds returns the kind numbers of the reference network dialect.
func DefaultKinds() Kinds {
	return Kinds{
		PublicReference:  50000,
		PrivateReference: 50001,
		Retraction:       5,
	}
}

// Tag names used on the wire. The first element of each tag array is the
// tag name, the remainder its values.
const (
	TagTitle     = "title"
	TagAuthor    = "author"
	TagYear      = "year"
	TagJournal   = "journal"
	TagDOI       = "doi"
	TagURL       = "url"
	TagLabel     = "t"
	TagClientRef = "client-ref-id"
	TagType      = "type"
	TagEvent     = "e"

	// PrivateTypeMarker is the only metadata a private event reveals.
	PrivateTypeMarker = "encrypted-reference"
)

// Event is a single wire-format message. Events are immutable once sent;
// ID is assigned by the transport, not by this codec.
type Event struct {
	ID        string     `json:"id,omitempty"`
	Kind      int        `json:"kind"`
	Content   string     `json:"content"`
	Tags      [][]string `json:"tags"`
	CreatedAt int64      `json:"created_at"`
}

// TagValue returns the first value of the first tag with the given name,
// or "" if absent.
func (e *Event) TagValue(name string) string {
	for _, tag := range e.Tags {
		if len(tag) >= 2 && tag[0] == name {
			return tag[1]
		}
	}
	return ""
}

// TagValues returns the first value of every tag with the given name,
// preserving order.
func (e *Event) TagValues(name string) []string {
	var values []string
	for _, tag := range e.Tags {
		if len(tag) >= 2 && tag[0] == name {
			values = append(values, tag[1])
		}
	}
	return values
}
