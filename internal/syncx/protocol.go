package syncx

import (
	"context"
	"fmt"

	"github.com/NotThatKindOfDrLiz/knowtation/internal/common"
	"github.com/NotThatKindOfDrLiz/knowtation/internal/events"
	"github.com/NotThatKindOfDrLiz/knowtation/internal/logging"
	"github.com/NotThatKindOfDrLiz/knowtation/internal/models"
)

// State describes a record's relationship to its network mirror.
type State int

const (
	// StateUnsynced: the record has no network reference.
	StateUnsynced State = iota
	// StateSynced: the network reference matches current content and visibility.
	StateSynced
	// StateStale: content or visibility changed after the reference was set.
	StateStale
)

func (s State) String() string {
	switch s {
	case StateUnsynced:
		return "unsynced"
	case StateSynced:
		return "synced"
	default:
		return "stale"
	}
}

// Protocol mirrors records onto the network through an injected transport.
//
// Operations are independent per record; the caller must not issue
// overlapping calls for the same record. On any transport failure the
// record keeps its prior state — retries belong to the caller.
type Protocol struct {
	transport Transport
	codec     *events.Codec
	key       []byte
	log       logging.Logger
}

func NewProtocol(transport Transport, codec *events.Codec, key []byte, log logging.Logger) *Protocol {
	return &Protocol{transport: transport, codec: codec, key: key, log: log}
}

// State reports whether r is unsynced, synced or stale with respect to its
// network mirror.
func (p *Protocol) State(r *models.CitationRecord) State {
	if r.NetworkRef == nil {
		return StateUnsynced
	}
	if r.NetworkRef.Fingerprint == r.Fingerprint() {
		return StateSynced
	}
	return StateStale
}

// Publish encodes r according to its current visibility and sends it. On
// success the network reference is set to the transport-assigned id. A
// record that is already synced is left alone.
func (p *Protocol) Publish(ctx context.Context, r *models.CitationRecord) error {
	if p.State(r) == StateSynced {
		return common.ErrAlreadySynced
	}
	return p.publish(ctx, r)
}

func (p *Protocol) publish(ctx context.Context, r *models.CitationRecord) error {
	ev, err := p.encode(r)
	if err != nil {
		return err
	}

	id, err := p.transport.Send(ctx, ev)
	if err != nil {
		return fmt.Errorf("publishing record %s: %w", r.ID, err)
	}

	r.NetworkRef = &models.NetworkRef{
		EventID:     id,
		Kind:        ev.Kind,
		Fingerprint: r.Fingerprint(),
	}
	p.log.Debug(ctx, "record published", "id", r.ID, "event", id, "kind", ev.Kind)
	return nil
}

// Update replaces the network representation of an already-mirrored record:
// the old event is retracted best-effort, then the new encoding is
// published. If the retraction succeeds but the publish fails, the record
// ends stale with no network reference; the caller retries the publish.
//
// Relays that ignore or delay retractions leave the old event visible for a
// while. That eventual-consistency window is a documented limitation.
func (p *Protocol) Update(ctx context.Context, r *models.CitationRecord) error {
	if r.NetworkRef == nil {
		return common.ErrNotPublished
	}

	ret, err := p.codec.ToRetraction(r, "superseded by update")
	if err != nil {
		return err
	}
	if _, err := p.transport.Send(ctx, ret); err != nil {
		p.log.Warn(ctx, "retraction failed, continuing with publish",
			"id", r.ID, "event", r.NetworkRef.EventID, "error", err)
	} else {
		r.NetworkRef = nil
	}

	// no synced check here: an update republishes even unchanged content
	return p.publish(ctx, r)
}

// Retract sends a retraction for the record's current network event and, on
// success, clears the reference, returning the record to unsynced.
func (p *Protocol) Retract(ctx context.Context, r *models.CitationRecord, reason string) error {
	ret, err := p.codec.ToRetraction(r, reason)
	if err != nil {
		return err
	}

	if _, err := p.transport.Send(ctx, ret); err != nil {
		return fmt.Errorf("retracting record %s: %w", r.ID, err)
	}

	p.log.Debug(ctx, "record retracted", "id", r.ID, "event", r.NetworkRef.EventID)
	r.NetworkRef = nil
	return nil
}

// FetchPublic queries public reference events, optionally restricted to the
// given authors, and decodes them into records.
func (p *Protocol) FetchPublic(ctx context.Context, authors []string, limit int) ([]*models.CitationRecord, error) {
	f := Filter{
		Kinds:   []int{p.codec.Kinds().PublicReference},
		Authors: authors,
		Limit:   limit,
	}
	evs, err := p.transport.Query(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("querying public references: %w", err)
	}

	records := make([]*models.CitationRecord, 0, len(evs))
	for i := range evs {
		records = append(records, p.codec.FromPublicEvent(&evs[i]))
	}
	return records, nil
}

func (p *Protocol) encode(r *models.CitationRecord) (events.Event, error) {
	switch r.Visibility {
	case models.VisibilityPublic:
		return p.codec.ToPublicEvent(r), nil
	case models.VisibilityPrivate:
		return p.codec.ToPrivateEvent(r, p.key)
	default:
		return events.Event{}, fmt.Errorf("%w: unknown visibility %q", common.ErrValidation, r.Visibility)
	}
}
