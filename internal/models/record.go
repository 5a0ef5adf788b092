// Package models defines the citation record, the canonical bibliographic
// entity owned by the local library, and its validation rules.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Visibility controls how a record is mirrored onto the network.
type Visibility string

const (
	// VisibilityPublic records are mirrored in cleartext.
	VisibilityPublic Visibility = "public"
	// VisibilityPrivate records are mirrored only as an encrypted blob.
	VisibilityPrivate Visibility = "private"
)

// NetworkRef identifies the most recent network event representing a record.
// It is owned exclusively by the synchronization protocol: absent until the
// first successful publish, cleared by a successful retraction.
type NetworkRef struct {
	// EventID is the transport-assigned identifier of the event.
	EventID string `json:"event_id"`
	// Kind is the wire kind the record was published under.
	Kind int `json:"kind"`
	// Fingerprint is the content digest of the record at publish time.
	// A mismatch with the current digest means the reference is stale.
	Fingerprint string `json:"fingerprint"`
}

// CitationRecord is a single bibliographic entry.
//
// Author order is citation order. Tags are a set for matching purposes but
// keep their display order. Notes are confidential and must never appear in
// a plaintext wire encoding. A Year of zero means "no year".
type CitationRecord struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Authors    []string    `json:"authors,omitempty"`
	Year       int         `json:"year,omitempty"`
	Container  string      `json:"container,omitempty"`
	DOI        string      `json:"doi,omitempty"`
	URL        string      `json:"url,omitempty"`
	Tags       []string    `json:"tags,omitempty"`
	Notes      string      `json:"notes,omitempty"`
	Visibility Visibility  `json:"visibility"`
	CreatedAt  int64       `json:"created_at"`
	UpdatedAt  int64       `json:"updated_at"`
	NetworkRef *NetworkRef `json:"network_ref,omitempty"`
}

// New returns a fresh private record with a generated id and both timestamps
// stamped with the current time.
func New(title string) *CitationRecord {
	now := time.Now().Unix()
	return &CitationRecord{
		ID:         uuid.NewString(),
		Title:      title,
		Visibility: VisibilityPrivate,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Touch advances UpdatedAt, keeping it monotonic non-decreasing.
func (r *CitationRecord) Touch() {
	now := time.Now().Unix()
	if now > r.UpdatedAt {
		r.UpdatedAt = now
	} else {
		r.UpdatedAt++
	}
}

// contentDigest mirrors the fields whose change makes a published
// representation stale. NetworkRef and timestamps are deliberately excluded.
type contentDigest struct {
	Title      string     `json:"title"`
	Authors    []string   `json:"authors"`
	Year       int        `json:"year"`
	Container  string     `json:"container"`
	DOI        string     `json:"doi"`
	URL        string     `json:"url"`
	Tags       []string   `json:"tags"`
	Notes      string     `json:"notes"`
	Visibility Visibility `json:"visibility"`
}

// Fingerprint returns a hex digest of the record's content and visibility.
// Two records with equal content always produce the same fingerprint.
func (r *CitationRecord) Fingerprint() string {
	d := contentDigest{
		Title:      r.Title,
		Authors:    r.Authors,
		Year:       r.Year,
		Container:  r.Container,
		DOI:        r.DOI,
		URL:        r.URL,
		Tags:       r.Tags,
		Notes:      r.Notes,
		Visibility: r.Visibility,
	}
	b, _ := json.Marshal(d)
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// NormalizeTags collapses duplicate tags, keeping first-occurrence order.
func (r *CitationRecord) NormalizeTags() {
	if len(r.Tags) == 0 {
		return
	}
	seen := make(map[string]struct{}, len(r.Tags))
	out := r.Tags[:0]
	for _, t := range r.Tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	r.Tags = out
}
