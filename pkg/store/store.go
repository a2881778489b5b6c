// Package store keeps diagram documents in named SQLite slots.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/ha1tch/fsm-designer/pkg/diagram"
	"github.com/ha1tch/fsm-designer/pkg/docfile"
)

// DefaultSlot is the slot the editor saves to when none is configured.
const DefaultSlot = "fsm_db"

// ErrNotFound is returned when a slot holds no document.
var ErrNotFound = errors.New("slot not found")

// Store is a SQLite-backed set of document slots.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open opens (creating if needed) the database at path. ":memory:" gives a
// private in-memory database.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps an in-memory database alive and serialises writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS slots (
		name TEXT PRIMARY KEY,
		document TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save writes data into slot, replacing what was there.
func (s *Store) Save(ctx context.Context, slot string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO slots (name, document, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at
	`, slot, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save slot %s: %w", slot, err)
	}
	s.log.Debug("slot saved", zap.String("slot", slot), zap.Int("bytes", len(data)))
	return nil
}

// Load returns the document stored in slot.
func (s *Store) Load(ctx context.Context, slot string) ([]byte, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM slots WHERE name = ?`, slot).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load slot %s: %w", slot, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load slot %s: %w", slot, err)
	}
	return []byte(doc), nil
}

// Delete removes a slot. Deleting a missing slot returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, slot string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM slots WHERE name = ?`, slot)
	if err != nil {
		return fmt.Errorf("failed to delete slot %s: %w", slot, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete slot %s: %w", slot, err)
	}
	if n == 0 {
		return fmt.Errorf("delete slot %s: %w", slot, ErrNotFound)
	}
	return nil
}

// Slots lists slot names in name order.
func (s *Store) Slots(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM slots ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query slots: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// SaveGraph stores g as a JSON interchange document.
func (s *Store) SaveGraph(ctx context.Context, slot string, g *diagram.Graph) error {
	data, err := docfile.ToJSON(docfile.FromGraph(g), false)
	if err != nil {
		return err
	}
	return s.Save(ctx, slot, data)
}

// LoadGraph returns the graph stored in slot. A missing or malformed
// document yields the starter template with loaded false; only database
// failures are returned as errors.
func (s *Store) LoadGraph(ctx context.Context, slot string) (*diagram.Graph, bool, error) {
	data, err := s.Load(ctx, slot)
	if errors.Is(err, ErrNotFound) {
		return diagram.Starter(), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if strings.TrimSpace(string(data)) == "" {
		return diagram.Starter(), false, nil
	}
	doc, err := docfile.ParseJSON(data)
	if err != nil {
		s.log.Warn("stored document rejected, using starter diagram",
			zap.String("slot", slot), zap.Error(err))
		return diagram.Starter(), false, nil
	}
	return doc.Graph(), true, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
