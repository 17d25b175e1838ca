//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

// Without FTS5 the search scans documents with LIKE.
func initFTS(*sql.DB) error { return nil }

func ftsUpsert(*sql.Tx, string, string, string, []string) error { return nil }

func ftsDelete(*sql.Tx, string) {}

// Search matches the query as a substring of titles, sources and tags.
// Snippets are cut around the first hit in the source and mark it with <b>.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	like := "%" + escapeLike(query) + "%"
	rows, err := db.conn.Query(`
		SELECT did, title, raw
		FROM documents
		WHERE title LIKE ? ESCAPE '\' OR raw LIKE ? ESCAPE '\' OR tags LIKE ? ESCAPE '\'
		ORDER BY title, path
		LIMIT ?
	`, like, like, like, searchLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var (
			r   SearchResult
			raw string
		)
		if err := rows.Scan(&r.DID, &r.Title, &raw); err != nil {
			return nil, err
		}
		r.Snippet = snippet(raw, query, 60)
		out = append(out, r)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// snippet returns up to width bytes of context on each side of the first
// case-insensitive occurrence of query in raw. Without a hit it returns the
// head of raw.
func snippet(raw, query string, width int) string {
	haystack, needle := strings.ToLower(raw), strings.ToLower(query)
	if len(haystack) != len(raw) || len(needle) != len(query) {
		haystack, needle = raw, query
	}
	i := strings.Index(haystack, needle)
	if i < 0 {
		if len(raw) > 2*width {
			return strings.ToValidUTF8(raw[:2*width], "") + "..."
		}
		return raw
	}
	start, end := max(0, i-width), min(len(raw), i+len(query)+width)
	var b strings.Builder
	if start > 0 {
		b.WriteString("...")
	}
	b.WriteString(strings.ToValidUTF8(raw[start:i], ""))
	b.WriteString("<b>" + raw[i:i+len(query)] + "</b>")
	b.WriteString(strings.ToValidUTF8(raw[i+len(query):end], ""))
	if end < len(raw) {
		b.WriteString("...")
	}
	return b.String()
}
