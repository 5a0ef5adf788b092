package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/NotThatKindOfDrLiz/knowtation/internal/common"
	"github.com/NotThatKindOfDrLiz/knowtation/internal/models"
)

// SQLiteStore keeps the library in a single SQLite table, one JSON document
// per record. Save runs the whole-library replace inside one transaction.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (or creates) the library database at path. Use ":memory:" for
// an ephemeral library.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", common.ErrIO, err)
	}

	s := &SQLiteStore{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an existing database handle.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS citations (
  id  TEXT PRIMARY KEY,
  doc TEXT NOT NULL
);`)
	if err != nil {
		return fmt.Errorf("%w: creating schema: %v", common.ErrIO, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context) ([]*models.CitationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc FROM citations ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("%w: selecting citations: %v", common.ErrIO, err)
	}
	defer rows.Close()

	var records []*models.CitationRecord
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("%w: scanning row: %v", common.ErrIO, err)
		}
		var r models.CitationRecord
		if err := json.Unmarshal([]byte(doc), &r); err != nil {
			return nil, fmt.Errorf("%w: decoding record: %v", common.ErrIO, err)
		}
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating rows: %v", common.ErrIO, err)
	}
	return records, nil
}

func (s *SQLiteStore) Save(ctx context.Context, records []*models.CitationRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", common.ErrIO, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM citations`); err != nil {
		return fmt.Errorf("%w: clearing library: %v", common.ErrIO, err)
	}

	for _, r := range records {
		doc, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("%w: encoding record %s: %v", common.ErrIO, r.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO citations (id, doc) VALUES (?, ?)`, r.ID, string(doc)); err != nil {
			return fmt.Errorf("%w: inserting record %s: %v", common.ErrIO, r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing library: %v", common.ErrIO, err)
	}
	return nil
}
