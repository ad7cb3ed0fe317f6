package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/themeschema/internal/apperr"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS snapshots (
	checksum     TEXT PRIMARY KEY,
	version      INTEGER NOT NULL,
	generated_at DATETIME NOT NULL,
	saved_at     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshot_properties (
	checksum    TEXT NOT NULL REFERENCES snapshots(checksum) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	id          TEXT NOT NULL,
	path        TEXT NOT NULL,
	name        TEXT NOT NULL DEFAULT '',
	title       TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	types       TEXT NOT NULL DEFAULT '[]',
	category    TEXT NOT NULL DEFAULT '',
	visuals     TEXT NOT NULL DEFAULT '[]',
	depth       INTEGER NOT NULL DEFAULT 0,
	state       INTEGER NOT NULL DEFAULT 0,
	constraints TEXT NOT NULL DEFAULT '{}',
	PRIMARY KEY (checksum, position)
);
`

// Store persists processed-schema documents in SQLite, keyed by source
// checksum.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("snapshot: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("snapshot: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("snapshot: apply schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

type constraintsRow struct {
	Minimum *float64 `json:"minimum,omitempty"`
	Maximum *float64 `json:"maximum,omitempty"`
	Enum    []any    `json:"enum,omitempty"`
}

// Save replaces any stored document with the same checksum within a
// single transaction.
func (s *Store) Save(ctx context.Context, doc *Document) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("snapshot: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_properties WHERE checksum = ?`, doc.Checksum); err != nil {
		return fmt.Errorf("snapshot: clear properties: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE checksum = ?`, doc.Checksum); err != nil {
		return fmt.Errorf("snapshot: clear snapshot: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (checksum, version, generated_at, saved_at)
		VALUES (?, ?, ?, ?)
	`, doc.Checksum, doc.Version, doc.GeneratedAt, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("snapshot: insert snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_properties
			(checksum, position, id, path, name, title, description, types, category, visuals, depth, state, constraints)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("snapshot: prepare property insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range doc.Properties {
		types, _ := json.Marshal(nonNil(r.Type))
		visuals, _ := json.Marshal(nonNil(r.Visuals))
		cons, err := json.Marshal(constraintsRow{Minimum: r.Minimum, Maximum: r.Maximum, Enum: r.Enum})
		if err != nil {
			return fmt.Errorf("snapshot: encode constraints %s: %w", r.Path, err)
		}
		_, err = stmt.ExecContext(ctx, doc.Checksum, i, r.ID, r.Path, r.Name, r.Title, r.Description,
			string(types), r.Category, string(visuals), r.Depth, r.IsStateEnabled, string(cons))
		if err != nil {
			return fmt.Errorf("snapshot: insert property %s: %w", r.Path, err)
		}
	}

	return tx.Commit()
}

// Load returns the document stored for checksum, or apperr.ErrNotFound, and
// marks it as the most recently used.
func (s *Store) Load(ctx context.Context, checksum string) (*Document, error) {
	doc := &Document{Checksum: checksum}
	err := s.conn.QueryRowContext(ctx,
		`SELECT version, generated_at FROM snapshots WHERE checksum = ?`, checksum,
	).Scan(&doc.Version, &doc.GeneratedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: load: %w", err)
	}
	if doc.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, path, name, title, description, types, category, visuals, depth, state, constraints
		FROM snapshot_properties
		WHERE checksum = ?
		ORDER BY position
	`, checksum)
	if err != nil {
		return nil, fmt.Errorf("snapshot: load properties: %w", err)
	}
	defer rows.Close()

	doc.Properties = []PropertyRecord{}
	for rows.Next() {
		var (
			r                     PropertyRecord
			types, visuals, consJ string
			c                     constraintsRow
		)
		if err := rows.Scan(&r.ID, &r.Path, &r.Name, &r.Title, &r.Description,
			&types, &r.Category, &visuals, &r.Depth, &r.IsStateEnabled, &consJ); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(types), &r.Type); err != nil {
			return nil, fmt.Errorf("snapshot: decode types %s: %w", r.Path, err)
		}
		if err := json.Unmarshal([]byte(visuals), &r.Visuals); err != nil {
			return nil, fmt.Errorf("snapshot: decode visuals %s: %w", r.Path, err)
		}
		if err := json.Unmarshal([]byte(consJ), &c); err != nil {
			return nil, fmt.Errorf("snapshot: decode constraints %s: %w", r.Path, err)
		}
		r.Minimum, r.Maximum, r.Enum = c.Minimum, c.Maximum, c.Enum
		doc.Properties = append(doc.Properties, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// A hit counts as use, so the live snapshot survives Prune.
	if _, err := s.conn.ExecContext(ctx,
		`UPDATE snapshots SET saved_at = ? WHERE checksum = ?`, time.Now().UnixNano(), checksum,
	); err != nil {
		return nil, fmt.Errorf("snapshot: touch: %w", err)
	}
	return doc, nil
}

// Checksums returns the stored snapshot checksums, most recently used first.
func (s *Store) Checksums(ctx context.Context) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT checksum FROM snapshots ORDER BY saved_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("snapshot: checksums: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Prune deletes all but the keep most recently saved or loaded snapshots.
func (s *Store) Prune(ctx context.Context, keep int) error {
	if keep < 1 {
		keep = 1
	}
	_, err := s.conn.ExecContext(ctx, `
		DELETE FROM snapshots
		WHERE checksum NOT IN (
			SELECT checksum FROM snapshots ORDER BY saved_at DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("snapshot: prune: %w", err)
	}
	return nil
}
