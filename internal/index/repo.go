package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/docdustry/internal/apperr"
)

// DocumentRow represents a row in the documents table.
type DocumentRow struct {
	DID       string
	Path      string
	Title     string
	Status    string
	Checksum  string
	Tags      []string
	Raw       string
	URL       string
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	DID     string
	Title   string
	Snippet string
}

// DefaultSearchLimit applies when Search is called with a non-positive limit.
const DefaultSearchLimit = 20

func searchLimit(limit int) int {
	if limit <= 0 {
		return DefaultSearchLimit
	}
	return limit
}

// UpsertDocument inserts or replaces a document, its FTS entry, and links within a transaction.
func (db *DB) UpsertDocument(d DocumentRow, links []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if d.Tags == nil {
		d.Tags = []string{}
	}
	tagsJSON, _ := json.Marshal(d.Tags)

	_, err = tx.Exec(`
		INSERT INTO documents (did, path, title, status, checksum, tags, raw, url, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(did) DO UPDATE SET
			path       = excluded.path,
			title      = excluded.title,
			status     = excluded.status,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			raw        = excluded.raw,
			url        = excluded.url,
			updated_at = excluded.updated_at
	`, d.DID, d.Path, d.Title, d.Status, d.Checksum, string(tagsJSON), d.Raw, d.URL, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, d.DID, d.Title, d.Raw, d.Tags); err != nil {
		return err
	}

	// Replace links: delete old then bulk insert.
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, d.DID)
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, target := range links {
			if _, err := stmt.Exec(d.DID, target); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document, its FTS entry, and outgoing links.
func (db *DB) DeleteDocument(did string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, did)
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, did)
	_, _ = tx.Exec(`DELETE FROM documents WHERE did = ?`, did)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a document, or empty string if not found.
func (db *DB) GetChecksum(did string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE did = ?`, did).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums returns the checksum of every stored document keyed by id.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT did, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var did, cs string
		if err := rows.Scan(&did, &cs); err != nil {
			return nil, err
		}
		out[did] = cs
	}
	return out, rows.Err()
}

// GetDocument returns one document including its raw source.
func (db *DB) GetDocument(did string) (*DocumentRow, error) {
	var (
		d    DocumentRow
		tags string
	)
	err := db.conn.QueryRow(`
		SELECT did, path, title, status, checksum, tags, raw, url, updated_at
		FROM documents WHERE did = ?
	`, did).Scan(&d.DID, &d.Path, &d.Title, &d.Status, &d.Checksum, &tags, &d.Raw, &d.URL, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: document %s: %w", did, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get document: %w", err)
	}
	_ = json.Unmarshal([]byte(tags), &d.Tags)
	return &d, nil
}

// ListDocuments returns every document without its raw source, ordered by
// title. A non-empty tag restricts the result to documents carrying it.
func (db *DB) ListDocuments(tag string) ([]DocumentRow, error) {
	query := `SELECT did, path, title, status, checksum, tags, url, updated_at FROM documents`
	var args []any
	if tag != "" {
		query += ` WHERE EXISTS (SELECT 1 FROM json_each(documents.tags) WHERE json_each.value = ?)`
		args = append(args, tag)
	}
	query += ` ORDER BY title, path`

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		var (
			d    DocumentRow
			tags string
		)
		if err := rows.Scan(&d.DID, &d.Path, &d.Title, &d.Status, &d.Checksum, &tags, &d.URL, &d.UpdatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(tags), &d.Tags)
		out = append(out, d)
	}
	return out, rows.Err()
}

// Backlinks returns the ids of all documents that link to the given target.
func (db *DB) Backlinks(target string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT source FROM links WHERE target = ? ORDER BY source`, target)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
