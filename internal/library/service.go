// Package library is the orchestration layer over the citation store and the
// network mirror: batch import/export, record CRUD with whole-library
// persistence, and per-record synchronization.
package library

import (
	"context"
	"errors"
	"fmt"

	"github.com/NotThatKindOfDrLiz/knowtation/internal/bibtex"
	"github.com/NotThatKindOfDrLiz/knowtation/internal/common"
	"github.com/NotThatKindOfDrLiz/knowtation/internal/logging"
	"github.com/NotThatKindOfDrLiz/knowtation/internal/models"
	"github.com/NotThatKindOfDrLiz/knowtation/internal/store"
	"github.com/NotThatKindOfDrLiz/knowtation/internal/syncx"
)

// ImportReport summarizes a batch import: parse-level skips are invisible
// (malformed blocks never produce records), validation failures are counted
// and reported per item.
type ImportReport struct {
	Total     int
	Succeeded int
	Failed    int
	Errors    []error
}

// Service exposes the operations the UI layer calls into.
type Service struct {
	store store.Store
	proto *syncx.Protocol
	log   logging.Logger
}

func NewService(st store.Store, proto *syncx.Protocol, log logging.Logger) *Service {
	return &Service{store: st, proto: proto, log: log}
}

// ImportBibTeX parses text, validates each resulting record, appends the
// valid ones to the library and persists it. Invalid records are dropped
// and reported; the batch never fails as a whole on per-item errors.
func (s *Service) ImportBibTeX(ctx context.Context, text string) (*ImportReport, error) {
	parsed := bibtex.Parse(text)
	report := &ImportReport{Total: len(parsed)}

	records, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading library: %w", err)
	}

	for _, r := range parsed {
		r.NormalizeTags()
		if err := r.Validate(); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Errorf("record %q: %w", r.Title, err))
			continue
		}
		records = append(records, r)
		report.Succeeded++
	}

	if report.Succeeded > 0 {
		if err := s.store.Save(ctx, records); err != nil {
			return nil, fmt.Errorf("saving library: %w", err)
		}
	}

	s.log.Info(ctx, "bibtex import finished",
		"total", report.Total, "succeeded", report.Succeeded, "failed", report.Failed)
	return report, nil
}

// ExportBibTeX renders the whole library as BibTeX text.
func (s *Service) ExportBibTeX(ctx context.Context) (string, error) {
	records, err := s.store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("loading library: %w", err)
	}
	return bibtex.Serialize(records), nil
}

// List returns every record in the library.
func (s *Service) List(ctx context.Context) ([]*models.CitationRecord, error) {
	return s.store.Load(ctx)
}

// Get returns the record with the given id.
func (s *Service) Get(ctx context.Context, id string) (*models.CitationRecord, error) {
	records, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading library: %w", err)
	}
	for _, r := range records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("record %s: %w", id, common.ErrNotFound)
}

// Put inserts or replaces a record and persists the library. Replacing an
// existing record keeps its network reference; staleness is derived from
// the content fingerprint, not tracked here.
func (s *Service) Put(ctx context.Context, rec *models.CitationRecord) error {
	rec.NormalizeTags()
	if err := rec.Validate(); err != nil {
		return err
	}

	records, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading library: %w", err)
	}

	replaced := false
	for i, r := range records {
		if r.ID == rec.ID {
			if rec.NetworkRef == nil {
				rec.NetworkRef = r.NetworkRef
			}
			rec.Touch()
			records[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, rec)
	}

	return s.store.Save(ctx, records)
}

// Delete removes a record from the library. If the record is mirrored, its
// network event is retracted first, best-effort: a failed retraction is
// logged and does not block local deletion.
func (s *Service) Delete(ctx context.Context, id string) error {
	records, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading library: %w", err)
	}

	idx := -1
	for i, r := range records {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("record %s: %w", id, common.ErrNotFound)
	}

	if records[idx].NetworkRef != nil {
		if err := s.proto.Retract(ctx, records[idx], "deleted by owner"); err != nil {
			s.log.Warn(ctx, "retraction on delete failed", "id", id, "error", err)
		}
	}

	records = append(records[:idx], records[idx+1:]...)
	return s.store.Save(ctx, records)
}

// Publish mirrors one record onto the network and persists the updated
// reference.
func (s *Service) Publish(ctx context.Context, id string) error {
	return s.withRecord(ctx, id, func(r *models.CitationRecord) error {
		return s.proto.Publish(ctx, r)
	})
}

// Update replaces the network representation of one record (retract old,
// publish new) and persists the updated reference.
func (s *Service) Update(ctx context.Context, id string) error {
	return s.withRecord(ctx, id, func(r *models.CitationRecord) error {
		return s.proto.Update(ctx, r)
	})
}

// Retract withdraws one record from the network and persists the cleared
// reference.
func (s *Service) Retract(ctx context.Context, id, reason string) error {
	return s.withRecord(ctx, id, func(r *models.CitationRecord) error {
		return s.proto.Retract(ctx, r, reason)
	})
}

// SyncAll publishes every unsynced record and refreshes every stale one.
// Records are handled independently: one failure never blocks the others,
// and there is no atomicity across the batch. All failures are joined into
// the returned error.
func (s *Service) SyncAll(ctx context.Context) error {
	records, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading library: %w", err)
	}

	var errs []error
	for _, r := range records {
		switch s.proto.State(r) {
		case syncx.StateSynced:
			continue
		case syncx.StateUnsynced:
			if err := s.proto.Publish(ctx, r); err != nil {
				errs = append(errs, fmt.Errorf("record %s: %w", r.ID, err))
			}
		case syncx.StateStale:
			if err := s.proto.Update(ctx, r); err != nil {
				errs = append(errs, fmt.Errorf("record %s: %w", r.ID, err))
			}
		}
	}

	// persist whatever succeeded; failed records keep their prior state
	if err := s.store.Save(ctx, records); err != nil {
		errs = append(errs, fmt.Errorf("saving library: %w", err))
	}
	return errors.Join(errs...)
}

// FetchPublic queries the network for public reference events, optionally
// restricted to the given authors.
func (s *Service) FetchPublic(ctx context.Context, authors []string, limit int) ([]*models.CitationRecord, error) {
	return s.proto.FetchPublic(ctx, authors, limit)
}

func (s *Service) withRecord(ctx context.Context, id string, op func(*models.CitationRecord) error) error {
	records, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading library: %w", err)
	}

	var rec *models.CitationRecord
	for _, r := range records {
		if r.ID == id {
			rec = r
			break
		}
	}
	if rec == nil {
		return fmt.Errorf("record %s: %w", id, common.ErrNotFound)
	}

	// persist even on failure: a failed update may legitimately leave the
	// record stale with its reference cleared, and that must survive
	opErr := op(rec)
	if err := s.store.Save(ctx, records); err != nil {
		return errors.Join(opErr, fmt.Errorf("saving library: %w", err))
	}
	return opErr
}
